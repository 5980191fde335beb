package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Re-attempt every filing currently in the failed table",
		Long: `Loads the failed filings table and runs the fetch pipeline over it once.
Filings that recover are moved into the archive and their failed row deleted;
filings that fail again keep their row with a refreshed error and timestamp.`,
		RunE: runRetry,
	}
}

func runRetry(cmd *cobra.Command, _ []string) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	p, err := buildPipeline(cmd.Context(), a)
	if err != nil {
		return fmt.Errorf("build retry pipeline: %w", err)
	}
	defer p.close(context.WithoutCancel(cmd.Context()), a.logger)

	if err := p.orch.RetrySweep(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("retry sweep: %w", err)
	}
	return nil
}
