package scheduler

import (
	"context"

	"go.uber.org/zap"

	"github.com/aharmon/thirteenf/internal/fetch"
	"github.com/aharmon/thirteenf/internal/filings"
	"github.com/aharmon/thirteenf/internal/frontier"
)

// TableRenderer is the optional browser-rendered fallback consulted after
// both primary strategies come up empty. See internal/headless.
type TableRenderer interface {
	RenderHoldings(ctx context.Context, item filings.WorkItem) ([]filings.HoldingRecord, error)
}

// HoldingsStrategy collects the holdings of one filing. Preferred path is
// the machine-readable data endpoint referenced by the filing page, retried
// under the policy; fallback is the static table of the page already in
// hand. Zero rows from both is ErrNoData, which is not a fetch error.
type HoldingsStrategy struct {
	pages    filings.Fetcher
	data     filings.Fetcher
	frontier *frontier.Discoverer
	retry    *fetch.RetryPolicy
	renderer TableRenderer
	logger   *zap.Logger
}

// NewHoldingsStrategy wires the strategy. renderer may be nil.
func NewHoldingsStrategy(
	pages, data filings.Fetcher,
	disc *frontier.Discoverer,
	retry *fetch.RetryPolicy,
	renderer TableRenderer,
	logger *zap.Logger,
) *HoldingsStrategy {
	return &HoldingsStrategy{
		pages:    pages,
		data:     data,
		frontier: disc,
		retry:    retry,
		renderer: renderer,
		logger:   logger,
	}
}

// Collect implements CollectFunc.
func (s *HoldingsStrategy) Collect(ctx context.Context, item filings.WorkItem) ([]filings.HoldingRecord, error) {
	page, err := s.pages.Fetch(ctx, item.ReportLink)
	if err != nil {
		return nil, err
	}

	parsed, err := s.frontier.ParseHoldingsPage(page.Body, item)
	if err != nil {
		return nil, err
	}

	if parsed.DataURL != "" {
		if rows, ok := s.collectStructured(ctx, parsed.DataURL, item); ok {
			return rows, nil
		}
	}
	if len(parsed.Static) > 0 {
		return parsed.Static, nil
	}
	if rows := s.collectRendered(ctx, item); len(rows) > 0 {
		return rows, nil
	}
	return nil, filings.ErrNoData
}

func (s *HoldingsStrategy) collectStructured(ctx context.Context, dataURL string, item filings.WorkItem) ([]filings.HoldingRecord, bool) {
	var payload struct {
		Data [][]any `json:"data"`
	}
	err := s.retry.Do(ctx, func() error {
		payload.Data = nil
		return fetch.JSON(ctx, s.data, dataURL, &payload)
	})
	if err != nil {
		s.logger.Warn("structured holdings fetch exhausted, falling back to static table",
			zap.String("report", item.ReportLink),
			zap.String("data_url", dataURL),
			zap.Error(err),
		)
		return nil, false
	}
	rows := frontier.HoldingsFromData(payload.Data, item)
	if len(rows) == 0 {
		return nil, false
	}
	return rows, true
}

func (s *HoldingsStrategy) collectRendered(ctx context.Context, item filings.WorkItem) []filings.HoldingRecord {
	if s.renderer == nil {
		return nil
	}
	rows, err := s.renderer.RenderHoldings(ctx, item)
	if err != nil {
		s.logger.Warn("rendered fallback failed",
			zap.String("report", item.ReportLink),
			zap.Error(err),
		)
		return nil
	}
	return rows
}
