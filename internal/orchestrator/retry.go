package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/aharmon/thirteenf/internal/filings"
	"github.com/aharmon/thirteenf/internal/metrics"
)

// RetrySweep re-attempts every filing currently in the failed table using
// the same fetch-and-record pipeline as the crawl pass. Workers delete the
// failed row on success and refresh its error text and timestamp otherwise.
// Independently schedulable: run it after a full pass or on its own cadence.
func (o *Orchestrator) RetrySweep(ctx context.Context) error {
	failed, err := o.store.ListFailed(ctx)
	if err != nil {
		return fmt.Errorf("load failed filings: %w", err)
	}
	metrics.SetFailedBacklog(len(failed))
	if len(failed) == 0 {
		o.logger.Info("no failed filings to retry")
		return nil
	}
	o.logger.Info("retrying failed filings", zap.Int("count", len(failed)))

	items := make([]filings.WorkItem, 0, len(failed))
	for _, f := range failed {
		items = append(items, filings.WorkItem{
			ReportLink: f.ReportLink,
			Manager:    f.Manager,
			Quarter:    f.Quarter,
		})
	}

	recovered := 0
	o.tracker.AddPending(len(items))
	for res := range o.pool.Run(ctx, items) {
		if errors.Is(res.Err, filings.ErrStoreUnavailable) {
			return fmt.Errorf("retry %s: %w", res.Item.ReportLink, res.Err)
		}
		o.tracker.ItemDone(len(res.Holdings), res.Err != nil)
		if res.Err == nil {
			recovered++
			o.logger.Info("recovered filing",
				zap.String("report", res.Item.ReportLink),
				zap.Int("holdings", len(res.Holdings)),
			)
			continue
		}
		o.logger.Warn("still failing",
			zap.String("report", res.Item.ReportLink),
			zap.String("reason", filings.FailureReason(res.Err)),
		)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	remaining, err := o.store.ListFailed(ctx)
	if err != nil {
		return fmt.Errorf("recount failed filings: %w", err)
	}
	metrics.SetFailedBacklog(len(remaining))
	o.logger.Info("retry sweep finished",
		zap.Int("recovered", recovered),
		zap.Int("remaining", len(remaining)),
	)
	return nil
}
