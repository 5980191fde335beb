// Package orchestrator drives the crawl: partitions, discovery, scheduling,
// persistence, checkpoints and the retry sweep.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/aharmon/thirteenf/internal/filings"
	"github.com/aharmon/thirteenf/internal/metrics"
	"github.com/aharmon/thirteenf/internal/progress"
)

// Discovery produces managers and filings from the source site.
type Discovery interface {
	ListManagers(ctx context.Context, partition string) ([]filings.ManagerRef, error)
	ListFilings(ctx context.Context, manager filings.ManagerRef) ([]filings.FilingSummary, []filings.WorkItem, error)
}

// Runner executes a batch of work items; internal/scheduler.Pool satisfies it.
type Runner interface {
	Run(ctx context.Context, items []filings.WorkItem) <-chan filings.ItemResult
}

// Checkpoints is the coarse partition done-set; internal/checkpoint.File
// satisfies it.
type Checkpoints interface {
	Done(key string) bool
	MarkDone(key string) error
}

// Orchestrator walks partitions sequentially; within each partition managers
// are processed one after another while a manager's holdings fetches run in
// parallel under the Runner.
type Orchestrator struct {
	discovery   Discovery
	pool        Runner
	store       filings.Store
	checkpoints Checkpoints
	partitions  []string
	tracker     *progress.Tracker
	logger      *zap.Logger
}

// New wires an Orchestrator.
func New(
	discovery Discovery,
	pool Runner,
	st filings.Store,
	checkpoints Checkpoints,
	partitions []string,
	tracker *progress.Tracker,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		discovery:   discovery,
		pool:        pool,
		store:       st,
		checkpoints: checkpoints,
		partitions:  partitions,
		tracker:     tracker,
		logger:      logger,
	}
}

// Run executes one full crawl pass. Store and checkpoint errors are fatal;
// discovery errors advance to the next partition; item errors are handled
// entirely inside the worker pool.
func (o *Orchestrator) Run(ctx context.Context) error {
	resume, err := o.store.ResumeSet(ctx)
	if err != nil {
		return fmt.Errorf("load resume set: %w", err)
	}
	o.logger.Info("resuming crawl", zap.Int("already_scraped", len(resume)))

	seenManagers := make(map[string]struct{})
	for _, partition := range o.partitions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if o.checkpoints.Done(partition) {
			o.logger.Info("partition already done, skipping", zap.String("partition", partition))
			continue
		}
		if err := o.runPartition(ctx, partition, seenManagers, resume); err != nil {
			return err
		}
	}

	snap := o.tracker.Snapshot()
	o.logger.Info("crawl pass finished",
		zap.Int("completed", snap.Completed),
		zap.Int("failed", snap.Failed),
		zap.Int("skipped", snap.Skipped),
		zap.String("elapsed", snap.ElapsedText),
	)
	return nil
}

func (o *Orchestrator) runPartition(
	ctx context.Context,
	partition string,
	seenManagers map[string]struct{},
	resume map[string]struct{},
) error {
	o.logger.Info("processing partition", zap.String("partition", partition))

	managers, err := o.discovery.ListManagers(ctx, partition)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.logger.Error("manager listing failed, moving to next partition",
			zap.String("partition", partition),
			zap.Error(err),
		)
		return nil
	}

	for _, manager := range managers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, dup := seenManagers[manager.URL]; dup {
			continue
		}
		seenManagers[manager.URL] = struct{}{}
		if err := o.runManager(ctx, manager, resume); err != nil {
			return err
		}
	}

	if err := o.checkpoints.MarkDone(partition); err != nil {
		return fmt.Errorf("checkpoint partition %q: %w", partition, err)
	}
	o.logger.Info("partition done", zap.String("partition", partition))
	return nil
}

func (o *Orchestrator) runManager(
	ctx context.Context,
	manager filings.ManagerRef,
	resume map[string]struct{},
) error {
	summaries, items, listErr := o.discovery.ListFilings(ctx, manager)
	if listErr != nil {
		// Pagination was truncated; keep whatever was collected.
		o.logger.Warn("filing listing truncated",
			zap.String("manager", manager.URL),
			zap.Error(listErr),
		)
	}

	if err := o.store.RecordSummaries(ctx, summaries); err != nil {
		return fmt.Errorf("record summaries for %s: %w", manager.URL, err)
	}

	pending := make([]filings.WorkItem, 0, len(items))
	for _, item := range items {
		if _, done := resume[item.ReportLink]; done {
			if err := o.store.RecordSkipped(ctx, item.ReportLink); err != nil {
				return fmt.Errorf("record skipped %s: %w", item.ReportLink, err)
			}
			o.tracker.ItemSkipped()
			metrics.ObserveFiling("skipped")
			continue
		}
		pending = append(pending, item)
	}
	if len(pending) == 0 {
		return nil
	}

	o.tracker.AddPending(len(pending))
	for res := range o.pool.Run(ctx, pending) {
		if errors.Is(res.Err, filings.ErrStoreUnavailable) {
			// Nothing was recorded for this item; stop before the partition
			// can be checkpointed over unperformed work.
			return fmt.Errorf("process %s: %w", res.Item.ReportLink, res.Err)
		}
		o.tracker.ItemDone(len(res.Holdings), res.Err != nil)
		if res.Err == nil {
			resume[res.Item.ReportLink] = struct{}{}
		}
		snap := o.tracker.Snapshot()
		o.logger.Info("filing processed",
			zap.String("report", res.Item.ReportLink),
			zap.Int("holdings", len(res.Holdings)),
			zap.Int("done", snap.Completed),
			zap.String("elapsed", snap.ElapsedText),
			zap.String("eta", snap.ETAText),
		)
	}
	return ctx.Err()
}
