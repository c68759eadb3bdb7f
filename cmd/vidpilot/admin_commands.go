package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/SAZZAD-404/vidpilot/internal/config"
	"github.com/SAZZAD-404/vidpilot/internal/export"
	"github.com/SAZZAD-404/vidpilot/internal/history"
	"github.com/SAZZAD-404/vidpilot/pkg/content"
)

func newProvidersCommand(cc *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List configured providers and whether they can run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}
			statuses := builtinRegistry().Snapshot(cfg, config.OSEnv)
			if asJSON {
				return printJSON(cmd.OutOrStdout(), statuses)
			}
			fmt.Fprintln(cmd.OutOrStdout(), providerTable(statuses))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func providerTable(statuses []config.ProviderStatus) string {
	rows := make([][]string, 0, len(statuses))
	for _, st := range statuses {
		state := "ready"
		switch {
		case st.Disabled:
			state = "disabled"
		case !st.Registered:
			state = "unknown provider"
		case !st.CredentialPresent:
			state = "no credential"
		}
		rows = append(rows, []string{st.Chain, strconv.Itoa(st.Priority), st.Name, st.Model, state})
	}
	return renderTable([]string{"Chain", "Priority", "Name", "Model", "State"}, rows, 1)
}

func newHistoryCommand(cc *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and export generation history",
	}
	cmd.AddCommand(newHistoryListCommand(cc), newHistoryExportCommand(cc))
	return cmd
}

func historyFlags(cmd *cobra.Command, kind *string, limit *int, defLimit int) {
	cmd.Flags().StringVar(kind, "kind", "", "only records of this kind")
	cmd.Flags().IntVarP(limit, "limit", "n", defLimit, "maximum number of records")
}

func listOptions(kind string, limit int) (history.ListOptions, error) {
	opts := history.ListOptions{Kind: content.Kind(kind), Limit: limit}
	if kind != "" && !opts.Kind.IsText() {
		return opts, fmt.Errorf("%w: unknown kind %q", content.ErrInvalidRequest, kind)
	}
	return opts, nil
}

func newHistoryListCommand(cc *commandContext) *cobra.Command {
	var (
		kind  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent generations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := listOptions(kind, limit)
			if err != nil {
				return err
			}
			return cc.open(cmd.Context(), func(app *application) error {
				recs, err := app.history.List(cmd.Context(), cc.user(), opts)
				if err != nil {
					return err
				}
				if len(recs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no history")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), historyTable(recs))
				return nil
			})
		},
	}
	historyFlags(cmd, &kind, &limit, history.DefaultLimit)
	return cmd
}

func historyTable(recs []history.Record) string {
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []string{
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			string(r.Kind),
			r.Provider,
			strconv.Itoa(r.Metrics.EngagementScore),
			truncate(r.Topic, 40),
			r.ID,
		})
	}
	return renderTable([]string{"Created", "Kind", "Provider", "Score", "Topic", "ID"}, rows, 3)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func newHistoryExportCommand(cc *commandContext) *cobra.Command {
	var (
		kind    string
		limit   int
		format  string
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export history as csv, json, txt or md",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			opts, err := listOptions(kind, limit)
			if err != nil {
				return err
			}
			return cc.open(cmd.Context(), func(app *application) error {
				recs, err := app.history.List(cmd.Context(), cc.user(), opts)
				if err != nil {
					return err
				}
				var w io.Writer = cmd.OutOrStdout()
				if outPath != "-" {
					if outPath == "" {
						outPath = f.Filename(time.Now())
					}
					file, err := os.Create(outPath)
					if err != nil {
						return err
					}
					defer file.Close()
					w = file
				}
				if err := export.Write(w, f, recs); err != nil {
					return err
				}
				if outPath != "-" {
					fmt.Fprintf(cmd.ErrOrStderr(), "exported %d records to %s\n", len(recs), outPath)
				}
				return nil
			})
		},
	}
	historyFlags(cmd, &kind, &limit, history.MaxLimit)
	cmd.Flags().StringVar(&format, "format", "csv", "csv, json, txt or md")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output file, - for stdout (default vidpilot-history-<timestamp>.<ext>)")
	return cmd
}

func newCreditsCommand(cc *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Show the credit balance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cc.open(cmd.Context(), func(app *application) error {
				bal, err := app.ledger.Balance(cmd.Context(), cc.user())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d of %d credits remaining\n", cc.user(), bal.Remaining, bal.Total)
				return nil
			})
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "grant <n>",
		Short: "Add credits to the user's balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid credit amount %q", args[0])
			}
			return cc.open(cmd.Context(), func(app *application) error {
				bal, err := app.ledger.Grant(cmd.Context(), cc.user(), n)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d of %d credits remaining\n", cc.user(), bal.Remaining, bal.Total)
				return nil
			})
		},
	})
	return cmd
}
