package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/aharmon/thirteenf/internal/fetch"
	"github.com/aharmon/thirteenf/internal/filings"
	"github.com/aharmon/thirteenf/internal/frontier"
)

const strategyBase = "https://13f.info"

var strategyItem = filings.WorkItem{
	ReportLink: strategyBase + "/13f/filing-1",
	Manager:    strategyBase + "/manager/m",
	Quarter:    "Q1 2024",
}

// mapFetcher serves canned pages; failing URLs decrement a budget so tests
// can model endpoints that recover after n attempts.
type mapFetcher struct {
	pages    map[string]string
	failLeft map[string]*atomic.Int64
	calls    atomic.Int64
}

func (f *mapFetcher) Fetch(_ context.Context, url string) (filings.Page, error) {
	f.calls.Add(1)
	if left, ok := f.failLeft[url]; ok && left.Add(-1) >= 0 {
		return filings.Page{}, &filings.StatusError{URL: url, Code: 503}
	}
	body, ok := f.pages[url]
	if !ok {
		return filings.Page{}, &filings.StatusError{URL: url, Code: 404}
	}
	return filings.Page{URL: url, FinalURL: url, StatusCode: 200, Body: []byte(body)}, nil
}

func failures(n int64) *atomic.Int64 {
	v := &atomic.Int64{}
	v.Store(n)
	return v
}

const strategyPageWithData = `<html><body>
<table id="filingAggregated" data-url="/data/filing-1.json">
  <thead><tr><th>Symbol</th><th>Issuer Name</th></tr></thead>
  <tbody><tr><td>STATIC</td><td>Static Fallback Inc</td></tr></tbody>
</table></body></html>`

func newStrategy(t *testing.T, pages, data filings.Fetcher, renderer TableRenderer) *HoldingsStrategy {
	t.Helper()
	logger := zaptest.NewLogger(t)
	disc, err := frontier.New(pages, strategyBase, logger)
	require.NoError(t, err)
	policy := fetch.NewRetryPolicy(2, time.Millisecond, 5*time.Millisecond)
	return NewHoldingsStrategy(pages, data, disc, policy, renderer, logger)
}

func TestCollect_PrefersStructuredEndpoint(t *testing.T) {
	t.Parallel()

	pages := &mapFetcher{pages: map[string]string{strategyItem.ReportLink: strategyPageWithData}}
	data := &mapFetcher{pages: map[string]string{
		strategyBase + "/data/filing-1.json": `{"data": [["AAPL", "Apple Inc", "COM", "037833100", 100, 1.5, 100, "SH", ""]]}`,
	}}
	s := newStrategy(t, pages, data, nil)

	rows, err := s.Collect(context.Background(), strategyItem)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "AAPL", rows[0].Symbol)
	require.Equal(t, strategyItem.ReportLink, rows[0].ReportLink)
}

func TestCollect_RetriesStructuredEndpoint(t *testing.T) {
	t.Parallel()

	dataURL := strategyBase + "/data/filing-1.json"
	pages := &mapFetcher{pages: map[string]string{strategyItem.ReportLink: strategyPageWithData}}
	data := &mapFetcher{
		pages:    map[string]string{dataURL: `{"data": [["AAPL", "Apple Inc"]]}`},
		failLeft: map[string]*atomic.Int64{dataURL: failures(2)},
	}
	s := newStrategy(t, pages, data, nil)

	rows, err := s.Collect(context.Background(), strategyItem)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.EqualValues(t, 3, data.calls.Load(), "two failures then success")
}

func TestCollect_FallsBackToStaticTable(t *testing.T) {
	t.Parallel()

	pages := &mapFetcher{pages: map[string]string{strategyItem.ReportLink: strategyPageWithData}}
	data := &mapFetcher{} // every data fetch 404s until retries exhaust
	s := newStrategy(t, pages, data, nil)

	rows, err := s.Collect(context.Background(), strategyItem)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "STATIC", rows[0].Symbol)
}

func TestCollect_EmptyStructuredFallsThrough(t *testing.T) {
	t.Parallel()

	pages := &mapFetcher{pages: map[string]string{strategyItem.ReportLink: strategyPageWithData}}
	data := &mapFetcher{pages: map[string]string{
		strategyBase + "/data/filing-1.json": `{"data": []}`,
	}}
	s := newStrategy(t, pages, data, nil)

	rows, err := s.Collect(context.Background(), strategyItem)
	require.NoError(t, err)
	require.Equal(t, "STATIC", rows[0].Symbol, "an empty payload falls back to the static table")
}

func TestCollect_NoDataAnywhere(t *testing.T) {
	t.Parallel()

	pages := &mapFetcher{pages: map[string]string{
		strategyItem.ReportLink: `<html><body><table id="filingAggregated"><tbody></tbody></table></body></html>`,
	}}
	s := newStrategy(t, pages, &mapFetcher{}, nil)

	rows, err := s.Collect(context.Background(), strategyItem)
	require.ErrorIs(t, err, filings.ErrNoData)
	require.Empty(t, rows)
}

func TestCollect_PageFetchErrorIsNotNoData(t *testing.T) {
	t.Parallel()

	s := newStrategy(t, &mapFetcher{}, &mapFetcher{}, nil)

	_, err := s.Collect(context.Background(), strategyItem)
	require.Error(t, err)
	require.NotErrorIs(t, err, filings.ErrNoData)
	var statusErr *filings.StatusError
	require.ErrorAs(t, err, &statusErr)
}

type fakeRenderer struct {
	rows []filings.HoldingRecord
	err  error
}

func (r *fakeRenderer) RenderHoldings(context.Context, filings.WorkItem) ([]filings.HoldingRecord, error) {
	return r.rows, r.err
}

func TestCollect_RenderedFallback(t *testing.T) {
	t.Parallel()

	pages := &mapFetcher{pages: map[string]string{
		strategyItem.ReportLink: `<html><body><table id="filingAggregated"><tbody></tbody></table></body></html>`,
	}}
	renderer := &fakeRenderer{rows: []filings.HoldingRecord{{Symbol: "RENDERED", ReportLink: strategyItem.ReportLink}}}
	s := newStrategy(t, pages, &mapFetcher{}, renderer)

	rows, err := s.Collect(context.Background(), strategyItem)
	require.NoError(t, err)
	require.Equal(t, "RENDERED", rows[0].Symbol)
}
