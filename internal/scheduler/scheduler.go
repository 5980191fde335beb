// Package scheduler fans holdings-fetch work out across a bounded pool of
// workers and yields results in completion order.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/aharmon/thirteenf/internal/filings"
	"github.com/aharmon/thirteenf/internal/metrics"
)

// CollectFunc executes one work item and returns its holdings, or an error
// (filings.ErrNoData when a successful fetch produced zero rows).
type CollectFunc func(ctx context.Context, item filings.WorkItem) ([]filings.HoldingRecord, error)

// Sink receives the persistence calls a worker makes for each completed
// item. *store.Session satisfies it.
type Sink interface {
	RecordSuccess(ctx context.Context, reportLink string, holdings []filings.HoldingRecord) error
	RecordFailure(ctx context.Context, item filings.WorkItem, reason string) error
	ClearFailure(ctx context.Context, reportLink string) error
}

// SinkFactory hands each worker its own Sink for the lifetime of the pool,
// plus a release function invoked on shutdown. One store connection per
// worker, acquired once, never per item.
type SinkFactory func(ctx context.Context) (Sink, func() error, error)

// Pool executes work items under a fixed concurrency bound. Item failures
// never cancel sibling items; each outcome is persisted by the worker that
// produced it and then emitted for progress accounting.
type Pool struct {
	collect CollectFunc
	sinks   SinkFactory
	workers int
	logger  *zap.Logger
}

// New builds a Pool with the given concurrency.
func New(collect CollectFunc, sinks SinkFactory, workers int, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{collect: collect, sinks: sinks, workers: workers, logger: logger}
}

// Run executes every item exactly once and returns a channel of results in
// completion order. The channel is buffered for the whole batch so no
// worker ever blocks on a slow consumer; it closes when the batch is done
// or the context ends. Items whose worker has no store session come back
// with filings.ErrStoreUnavailable instead of being dropped.
func (p *Pool) Run(ctx context.Context, items []filings.WorkItem) <-chan filings.ItemResult {
	out := make(chan filings.ItemResult, len(items))
	work := make(chan filings.WorkItem)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.runWorker(ctx, work, out)
		}()
	}

	go func() {
		defer close(work)
		for _, item := range items {
			select {
			case work <- item:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func (p *Pool) runWorker(ctx context.Context, work <-chan filings.WorkItem, out chan<- filings.ItemResult) {
	sink, release, err := p.sinks(ctx)
	if err != nil {
		p.logger.Error("worker could not acquire a store session", zap.Error(err))
		// Still drain the feed: every item owed a result gets one, carrying
		// the fatal store error, so the batch is never silently dropped.
		ferr := fmt.Errorf("acquire store session: %w: %v", filings.ErrStoreUnavailable, err)
		for item := range work {
			select {
			case out <- filings.ItemResult{Item: item, Err: ferr}:
			case <-ctx.Done():
				return
			}
		}
		return
	}
	defer func() {
		if cerr := release(); cerr != nil {
			p.logger.Warn("release store session", zap.Error(cerr))
		}
	}()

	for item := range work {
		metrics.IncActiveWorkers()
		res := p.processItem(ctx, sink, item)
		metrics.DecActiveWorkers()

		select {
		case out <- res:
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pool) processItem(ctx context.Context, sink Sink, item filings.WorkItem) filings.ItemResult {
	holdings, err := p.collect(ctx, item)
	if err != nil {
		reason := filings.FailureReason(err)
		if rerr := sink.RecordFailure(ctx, item, reason); rerr != nil {
			p.logger.Error("record failure",
				zap.String("report", item.ReportLink),
				zap.Error(rerr),
			)
			err = rerr
		}
		metrics.ObserveFiling("failed")
		return filings.ItemResult{Item: item, Err: err}
	}

	if serr := sink.RecordSuccess(ctx, item.ReportLink, holdings); serr != nil {
		p.logger.Error("record success",
			zap.String("report", item.ReportLink),
			zap.Error(serr),
		)
		metrics.ObserveFiling("failed")
		return filings.ItemResult{Item: item, Err: serr}
	}
	// A filing recovered in this pass may still have a failed row from an
	// earlier one.
	if cerr := sink.ClearFailure(ctx, item.ReportLink); cerr != nil {
		p.logger.Warn("clear stale failure",
			zap.String("report", item.ReportLink),
			zap.Error(cerr),
		)
	}
	metrics.ObserveFiling("scraped")
	metrics.AddHoldingsRows(len(holdings))
	return filings.ItemResult{Item: item, Holdings: holdings}
}
