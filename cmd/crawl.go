package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Run one incremental crawl pass over the configured partitions",
		Long: `Walks every configured partition (letter-indexed manager buckets),
discovers each manager's filings, and fetches the holdings of filings not yet
in the archive. Completed partitions are checkpointed so a restart skips them
entirely; completed filings are skipped via the resume set.`,
		RunE: runCrawl,
	}
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	p, err := buildPipeline(cmd.Context(), a)
	if err != nil {
		return fmt.Errorf("build crawl pipeline: %w", err)
	}
	defer p.close(context.WithoutCancel(cmd.Context()), a.logger)

	if err := p.orch.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("crawl pass: %w", err)
	}
	return nil
}
