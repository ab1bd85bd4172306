// Package main provides fitctl, the operator CLI for on-demand monthly runs, migrations and tokens.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"example.com/fitnesstracker/internal/app"
	"example.com/fitnesstracker/internal/auth"
	"example.com/fitnesstracker/internal/config"
	"example.com/fitnesstracker/internal/domain"
)

const asOfLayout = "2006-01-02"

var (
	runAsOf string

	tokenSubject string
	tokenScopes  []string
	tokenTTL     time.Duration
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "fitctl",
		Short:         "Operate the fitness tracker's monthly statistics and reports",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&runAsOf, "as-of", "", "pretend today is this date (YYYY-MM-DD); the run covers the month before it")

	rootCmd.AddCommand(newPipelineCmd("statistics", "Recompute every user's statistics for the previous month", runStatistics))
	rootCmd.AddCommand(newPipelineCmd("reports", "Send every user the previous month's training report", runReports))
	rootCmd.AddCommand(newPipelineCmd("monthly", "Run statistics and reports together over one shared window", runMonthly))
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newTokenCmd())

	return rootCmd
}

type pipelineFunc func(ctx context.Context, tracker *app.App, out io.Writer) error

func newPipelineCmd(name, short string, run pipelineFunc) *cobra.Command {
	cmd := &cobra.Command{Use: name, Short: short}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tracker, err := openApp(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer tracker.Close()
			return run(cmd.Context(), tracker, cmd.OutOrStdout())
		},
	})
	return cmd
}

func openApp(ctx context.Context, logOut io.Writer) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	opts := []app.Option{app.WithLogger(log.New(logOut, "", log.LstdFlags))}
	if runAsOf != "" {
		loc, err := cfg.Location()
		if err != nil {
			return nil, err
		}
		asOf, err := time.ParseInLocation(asOfLayout, runAsOf, loc)
		if err != nil {
			return nil, fmt.Errorf("--as-of must be YYYY-MM-DD: %w", err)
		}
		opts = append(opts, app.WithClock(func() time.Time { return asOf }))
	}
	return app.New(ctx, cfg, opts...)
}

func runStatistics(ctx context.Context, tracker *app.App, out io.Writer) error {
	result, err := tracker.Scheduler.RunStatistics(ctx)
	return summarize(out, result, err)
}

func runReports(ctx context.Context, tracker *app.App, out io.Writer) error {
	result, err := tracker.Scheduler.RunReports(ctx)
	return summarize(out, result, err)
}

func runMonthly(ctx context.Context, tracker *app.App, out io.Writer) error {
	result := tracker.Scheduler.RunMonthly(ctx)
	statsErr := summarize(out, result.Statistics, result.StatisticsErr)
	reportsErr := summarize(out, result.Reports, result.ReportsErr)
	if statsErr != nil {
		return statsErr
	}
	return reportsErr
}

// summarize prints one line per run plus each failed user, and returns an error when any user failed.
func summarize(out io.Writer, result domain.RunResult, err error) error {
	if err != nil {
		return fmt.Errorf("%s run: %w", result.Pipeline, err)
	}
	failed := result.Failed()
	fmt.Fprintf(out, "%s %s: %d succeeded, %d failed\n", result.Pipeline, result.Window, result.Succeeded(), len(failed))
	for _, o := range failed {
		fmt.Fprintf(out, "  %s: %v\n", o.UserID, o.Err)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%s run: %d user(s) failed", result.Pipeline, len(failed))
	}
	return nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending Postgres migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tracker, err := openApp(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer tracker.Close()
			if tracker.Pool == nil {
				return fmt.Errorf("POSTGRES_URL is required to migrate")
			}

			applied, err := tracker.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			}
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed bearer token for the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			token, err := auth.Sign(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, tokenSubject, tokenScopes, tokenTTL)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&tokenSubject, "subject", "fitctl", "token subject")
	cmd.Flags().StringSliceVar(&tokenScopes, "scope", []string{auth.ScopeReportsRun}, "scopes to grant (repeatable)")
	cmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	return cmd
}
