// Package cmd defines the thirteenf CLI.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aharmon/thirteenf/internal/config"
	"github.com/aharmon/thirteenf/internal/logging"
)

var cfgFile string

// appKeyType keys the app in the command context.
type appKeyType struct{}

var appKey appKeyType

// app bundles the services every subcommand needs.
type app struct {
	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thirteenf",
		Short: "Harvest and query institutional 13F filing disclosures",
		Long: `thirteenf builds a local, queryable archive of quarterly 13F-style
holdings disclosures. It crawls the letter-indexed manager hierarchy of the
source site incrementally, persists everything into a single SQLite file,
and answers a fixed catalog of analytical queries over the accumulated
history.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger, err := logging.New(logging.Options{
				Development: cfg.Logging.Development,
				Path:        cfg.Logging.Path,
			})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, &app{cfg: cfg, logger: logger})
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a, ok := cmd.Context().Value(appKey).(*app); ok && a != nil {
				_ = a.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults plus THIRTEENF_* env)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newRetryCmd())
	cmd.AddCommand(newQueryCmd())
	return cmd
}

func resolveApp(ctx context.Context) (*app, error) {
	a, ok := ctx.Value(appKey).(*app)
	if !ok || a == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return a, nil
}

// Execute is the CLI entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
