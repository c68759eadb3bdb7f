package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/SAZZAD-404/vidpilot/internal/config"
)

// defaultConfigPath is read when present and --config is not given.
const defaultConfigPath = "vidpilot.yaml"

func newRootCommand() *cobra.Command {
	var configFlag, envFlag, userFlag string
	cc := &commandContext{configFlag: &configFlag, envFlag: &envFlag, userFlag: &userFlag}

	root := &cobra.Command{
		Use:           "vidpilot",
		Short:         "AI content generation with provider fallback",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cc.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "YAML configuration file (default ./vidpilot.yaml when present)")
	root.PersistentFlags().StringVar(&envFlag, "env-file", ".env", "dotenv file loaded before credentials are resolved")
	root.PersistentFlags().StringVarP(&userFlag, "user", "u", "local", "user ID for credits and history")

	root.AddCommand(newServeCommand(cc))
	for _, cmd := range newGenerateCommands(cc) {
		root.AddCommand(cmd)
	}
	root.AddCommand(newVoiceCommand(cc))
	root.AddCommand(newProvidersCommand(cc))
	root.AddCommand(newHistoryCommand(cc))
	root.AddCommand(newCreditsCommand(cc))
	return root
}

// commandContext lazily loads configuration shared by every subcommand.
type commandContext struct {
	configFlag *string
	envFlag    *string
	userFlag   *string

	once       sync.Once
	cfg        *config.Config
	configPath string
	err        error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.once.Do(func() {
		if env := strings.TrimSpace(*c.envFlag); env != "" {
			if err := config.LoadDotEnv(env); err != nil {
				c.err = err
				return
			}
		}

		path := strings.TrimSpace(*c.configFlag)
		if path == "" {
			if _, err := os.Stat(defaultConfigPath); err == nil {
				path = defaultConfigPath
			}
		}
		if path == "" {
			c.cfg = config.Default()
		} else {
			cfg, err := config.Load(path)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					err = fmt.Errorf("config file %q not found", path)
				}
				c.err = err
				return
			}
			c.cfg = cfg
			c.configPath = path
		}
		slog.SetDefault(newLogger(logOutput, c.cfg.Server.LogLevel))
	})
	return c.cfg, c.err
}

func (c *commandContext) user() string {
	if u := strings.TrimSpace(*c.userFlag); u != "" {
		return u
	}
	return "local"
}

// open builds the full application for one command and runs fn with it.
func (c *commandContext) open(ctx context.Context, fn func(*application) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	app, err := newApplication(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}
