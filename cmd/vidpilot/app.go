package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/SAZZAD-404/vidpilot/internal/config"
	"github.com/SAZZAD-404/vidpilot/internal/credits"
	"github.com/SAZZAD-404/vidpilot/internal/generate"
	"github.com/SAZZAD-404/vidpilot/internal/health"
	"github.com/SAZZAD-404/vidpilot/internal/history"
	"github.com/SAZZAD-404/vidpilot/internal/localgen"
)

// application bundles the long-lived components shared by the server and
// the one-shot commands.
type application struct {
	registry *config.Registry
	current  func() *config.Config
	ledger   credits.Ledger
	history  history.Store
	service  *generate.Service
	checkers []health.Checker
	closers  []func() error
}

// newApplication opens the configured stores and builds the generation
// service. When w is non-nil every generation reads the latest config from
// it; otherwise cfg is used for the process lifetime.
func newApplication(ctx context.Context, cfg *config.Config, w *config.Watcher) (_ *application, err error) {
	app := &application{registry: builtinRegistry()}
	if err := app.registry.Check(cfg); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	app.current = func() *config.Config { return cfg }
	if w != nil {
		app.current = w.Current
	}

	if app.ledger, err = app.openLedger(ctx, cfg.Credits); err != nil {
		return nil, err
	}
	if app.history, err = app.openHistory(ctx, cfg.History); err != nil {
		return nil, err
	}
	app.closers = append(app.closers, app.history.Close)

	app.checkers = append(app.checkers, health.Checker{
		Name:     "providers",
		Optional: true,
		Check:    app.providersReady,
	})

	app.service = generate.New(app.registry, app.current, app.ledger,
		generate.WithHistory(app.history),
		generate.WithSpeaker(&localgen.LocalSpeaker{Binary: cfg.Generation.LocalSynthesizer}),
	)
	return app, nil
}

func (a *application) openLedger(ctx context.Context, cc config.CreditsConfig) (credits.Ledger, error) {
	switch cc.Backend {
	case config.BackendRedis:
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cc.RedisAddr},
			Password: cc.RedisPassword,
			DB:       cc.RedisDB,
		})
		a.closers = append(a.closers, client.Close)
		l := credits.NewRedisLedger(client, cc.Allowance)
		if err := l.Ping(ctx); err != nil {
			return nil, fmt.Errorf("credits: connect redis %s: %w", cc.RedisAddr, err)
		}
		a.checkers = append(a.checkers, health.Ping("credits", l))
		return l, nil
	case config.BackendPostgres:
		pool, err := a.pgPool(ctx, cc.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("credits: %w", err)
		}
		l := credits.NewPostgresLedger(pool, cc.Allowance)
		if err := l.Migrate(ctx); err != nil {
			return nil, err
		}
		a.checkers = append(a.checkers, health.Ping("credits", pool))
		return l, nil
	default:
		return credits.NewMemoryLedger(cc.Allowance), nil
	}
}

func (a *application) openHistory(ctx context.Context, hc config.HistoryConfig) (history.Store, error) {
	switch hc.Backend {
	case config.BackendPostgres:
		pool, err := a.pgPool(ctx, hc.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
		st := history.NewPostgresStore(pool)
		if err := st.Migrate(ctx); err != nil {
			return nil, err
		}
		a.checkers = append(a.checkers, health.Ping("history", pool))
		return st, nil
	case config.BackendSQLite:
		st, err := history.OpenSQLite(ctx, hc.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.checkers = append(a.checkers, health.Ping("history", st))
		return st, nil
	default:
		return history.NewMemoryStore(), nil
	}
}

func (a *application) pgPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.closers = append(a.closers, func() error { pool.Close(); return nil })
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

var errNoCredentialedProvider = errors.New("no text provider has a credential; serving local fallback only")

// providersReady reports degraded readiness when no text provider can run.
func (a *application) providersReady(context.Context) error {
	for _, st := range a.registry.Snapshot(a.current(), config.OSEnv) {
		if st.Chain == "text" && st.Registered && st.CredentialPresent && !st.Disabled {
			return nil
		}
	}
	return errNoCredentialedProvider
}

// Close releases every opened resource in reverse order.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("close failed", "err", err)
		}
	}
	a.closers = nil
}
