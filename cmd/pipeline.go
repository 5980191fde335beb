package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aharmon/thirteenf/internal/checkpoint"
	"github.com/aharmon/thirteenf/internal/config"
	"github.com/aharmon/thirteenf/internal/fetch"
	"github.com/aharmon/thirteenf/internal/frontier"
	"github.com/aharmon/thirteenf/internal/headless"
	"github.com/aharmon/thirteenf/internal/orchestrator"
	"github.com/aharmon/thirteenf/internal/progress"
	"github.com/aharmon/thirteenf/internal/scheduler"
	"github.com/aharmon/thirteenf/internal/status"
	"github.com/aharmon/thirteenf/internal/store"
)

// storeFileName and doneFileName live under output.dir.
const (
	storeFileName = "filings.db"
	doneFileName  = "partitions.done"
)

// pipeline is the fully wired crawl machinery shared by crawl and retry.
type pipeline struct {
	orch     *orchestrator.Orchestrator
	store    *store.Store
	tracker  *progress.Tracker
	status   *status.Server
	renderer *headless.Renderer
}

func (p *pipeline) close(ctx context.Context, logger *zap.Logger) {
	if p.status != nil {
		if err := p.status.Shutdown(ctx); err != nil {
			logger.Warn("shutdown status server", zap.Error(err))
		}
	}
	if p.renderer != nil {
		p.renderer.Close()
	}
	if err := p.store.Close(); err != nil {
		logger.Warn("close store", zap.Error(err))
	}
}

// buildPipeline assembles the crawl stack from configuration. The store and
// schema failures here are the fatal class of errors; everything downstream
// is per-item.
func buildPipeline(ctx context.Context, a *app) (*pipeline, error) {
	cfg := a.cfg

	if err := os.MkdirAll(cfg.Output.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	st, err := store.Open(
		filepath.Join(cfg.Output.Dir, storeFileName),
		store.WithRunID(uuid.NewString()),
	)
	if err != nil {
		return nil, err
	}
	if err := st.InitSchema(ctx); err != nil {
		st.Close()
		return nil, err
	}

	checkpoints, err := checkpoint.Load(filepath.Join(cfg.Output.Dir, doneFileName))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("load partition checkpoints: %w", err)
	}

	limiter := fetch.NewLimiter(cfg.Crawl.RatePerSecond)
	pages := fetch.New(fetch.Config{
		UserAgent: cfg.Source.UserAgent,
		Timeout:   cfg.PageTimeout(),
	}, a.logger, fetch.WithLimiter(limiter))
	data := fetch.New(fetch.Config{
		UserAgent: cfg.Source.UserAgent,
		Timeout:   cfg.JSONTimeout(),
		Kind:      "json",
	}, a.logger, fetch.WithLimiter(limiter))

	disc, err := frontier.New(pages, cfg.Source.BaseURL, a.logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	p := &pipeline{store: st, tracker: progress.NewTracker()}

	var renderer scheduler.TableRenderer
	if cfg.Headless.Enabled {
		p.renderer = headless.New(headless.Config{
			UserAgent:         cfg.Source.UserAgent,
			NavigationTimeout: cfg.HeadlessNavTimeout(),
		}, disc, a.logger)
		renderer = p.renderer
	}

	retryPolicy := fetch.NewRetryPolicy(
		cfg.Crawl.Retries,
		cfg.BackoffInitial(),
		cfg.BackoffMax(),
	)
	strategy := scheduler.NewHoldingsStrategy(pages, data, disc, retryPolicy, renderer, a.logger)

	sinks := scheduler.SinkFactory(func(ctx context.Context) (scheduler.Sink, func() error, error) {
		sess, err := st.Session(ctx)
		if err != nil {
			return nil, nil, err
		}
		return sess, sess.Close, nil
	})
	pool := scheduler.New(strategy.Collect, sinks, cfg.Crawl.Concurrency, a.logger)

	partitions, err := config.ExpandPartitions(cfg.Crawl.Partitions)
	if err != nil {
		p.close(ctx, a.logger)
		return nil, err
	}

	p.orch = orchestrator.New(disc, pool, st, checkpoints, partitions, p.tracker, a.logger)

	if cfg.Status.Addr != "" {
		p.status = status.New(cfg.Status.Addr, p.tracker, a.logger)
		p.status.Start()
	}
	return p, nil
}
