package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/SAZZAD-404/vidpilot/internal/api"
	"github.com/SAZZAD-404/vidpilot/internal/config"
	"github.com/SAZZAD-404/vidpilot/internal/health"
	"github.com/SAZZAD-404/vidpilot/internal/observe"
)

const shutdownTimeout = 15 * time.Second

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newServeCommand(cc *commandContext) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.ListenAddr = listen
			}
			return serve(cmd.Context(), cfg, cc.configPath)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address, overrides server.listen_addr")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, configPath string) error {
	tel, err := observe.Setup(ctx, observe.Options{Service: "vidpilot", Version: version})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown", "err", err)
		}
	}()

	var watcher *config.Watcher
	if configPath != "" {
		watcher, err = config.NewWatcher(configPath,
			config.WithValidator(builtinRegistry().Check),
			config.WithOnChange(func(_, next *config.Config) {
				slog.SetDefault(newLogger(logOutput, next.Server.LogLevel))
			}),
		)
		if err != nil {
			return err
		}
	}

	app, err := newApplication(ctx, cfg, watcher)
	if err != nil {
		return err
	}
	defer app.Close()

	auth := api.NewAuthenticator(cfg.Auth.Secret(config.OSEnv), cfg.Auth.Issuer, cfg.Auth.Audience)
	if !auth.Enabled() {
		slog.Warn("no JWT secret configured; running in single-user mode", "user", api.LocalUser)
	}
	srv := api.New(app.service, app.history, auth,
		api.WithHealth(health.New(app.checkers...)),
		api.WithProviders(func() []config.ProviderStatus {
			return app.registry.Snapshot(app.current(), config.OSEnv)
		}),
		api.WithMetricsHandler(tel.Handler()),
	)

	httpSrv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	printStartupSummary(cfg, app)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if tls := cfg.Server.TLS; tls != nil {
			err = httpSrv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = httpSrv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	if watcher != nil {
		g.Go(func() error { return watcher.Run(gctx) })
		g.Go(func() error {
			reloadOnHangup(gctx, watcher)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("goodbye")
	return nil
}

func printStartupSummary(cfg *config.Config, app *application) {
	runnable := 0
	statuses := app.registry.Snapshot(cfg, config.OSEnv)
	for _, st := range statuses {
		if st.Registered && st.CredentialPresent && !st.Disabled {
			runnable++
		}
	}
	slog.Info("vidpilot ready",
		"version", version,
		"listen_addr", cfg.Server.ListenAddr,
		"tls", cfg.Server.TLS != nil,
		"providers", len(statuses),
		"runnable", runnable,
		"credits", cfg.Credits.Backend,
		"history", cfg.History.Backend,
	)
}

// reloadOnHangup forces a config reload on every SIGHUP until ctx is done.
func reloadOnHangup(ctx context.Context, w *config.Watcher) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			changed, err := w.Reload(true)
			if err != nil {
				slog.Warn("config reload rejected", "err", err)
				continue
			}
			slog.Info("config reload requested", "changed", changed)
		}
	}
}
