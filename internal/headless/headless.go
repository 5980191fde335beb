// Package headless renders filing pages in a headless browser. It is the
// slow fallback strategy for pages whose holdings table only materializes
// after script execution; the crawl never requires it.
package headless

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/aharmon/thirteenf/internal/filings"
	"github.com/aharmon/thirteenf/internal/frontier"
)

// Config controls the renderer.
type Config struct {
	UserAgent         string
	NavigationTimeout time.Duration
}

// Renderer drives a shared headless Chrome allocator; each render gets its
// own browser context.
type Renderer struct {
	cfg         Config
	disc        *frontier.Discoverer
	allocator   context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// New creates a Renderer. Close must be called to release the allocator.
func New(cfg Config, disc *frontier.Discoverer, logger *zap.Logger) *Renderer {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Renderer{
		cfg:         cfg,
		disc:        disc,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		logger:      logger,
	}
}

// Close cancels the allocator context.
func (r *Renderer) Close() {
	r.allocCancel()
}

// RenderHoldings navigates to the filing page, waits for the aggregated
// table to appear and parses its rendered rows.
func (r *Renderer) RenderHoldings(ctx context.Context, item filings.WorkItem) ([]filings.HoldingRecord, error) {
	taskCtx, taskCancel := chromedp.NewContext(r.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, r.cfg.NavigationTimeout)
	defer cancel()

	// Propagate caller cancellation into the browser context.
	stop := context.AfterFunc(ctx, taskCancel)
	defer stop()

	var html string
	actions := []chromedp.Action{network.Enable()}
	if r.cfg.UserAgent != "" {
		actions = append(actions, network.SetExtraHTTPHeaders(network.Headers{"User-Agent": r.cfg.UserAgent}))
	}
	actions = append(actions,
		chromedp.Navigate(item.ReportLink),
		chromedp.WaitReady("#filingAggregated tbody tr", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return nil, fmt.Errorf("render %s: %w", item.ReportLink, err)
	}

	parsed, err := r.disc.ParseHoldingsPage([]byte(html), item)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("rendered holdings table",
		zap.String("report", item.ReportLink),
		zap.Int("rows", len(parsed.Static)),
	)
	return parsed.Static, nil
}
