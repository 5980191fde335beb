// Package filings defines the core types shared across the harvest pipeline.
package filings

import (
	"context"
	"time"
)

// ManagerRef identifies one institutional filer by its canonical page URL.
// The URL doubles as the foreign key joining summaries and holdings back to
// the manager that filed them.
type ManagerRef struct {
	URL  string
	Name string
}

// FilingSummary is one row of a manager's filing list: a single quarterly
// disclosure event. ReportLink is the join key to the filing's holdings.
type FilingSummary struct {
	Manager       string
	Quarter       string
	HoldingsCount int
	Value         string
	TopHoldings   string
	Form          string
	DateFiled     string
	FilingID      string
	ReportLink    string
}

// HoldingRecord is one security-level line item inside a filing. Rows are
// unique on (ReportLink, Symbol); the store enforces this.
type HoldingRecord struct {
	Symbol     string
	IssuerName string
	Class      string
	CUSIP      string
	Value      string
	Percent    string
	Shares     string
	Principal  string
	OptionType string
	ReportLink string
	Manager    string
	Quarter    string
}

// FailedFiling is a filing whose holdings could not be harvested so far.
// Keyed by ReportLink; deleted when a retry eventually succeeds.
type FailedFiling struct {
	ReportLink string
	Manager    string
	Quarter    string
	Error      string
	LastTried  time.Time
}

// AuditStatus tags an audit log entry.
type AuditStatus string

// Audit statuses recorded per filing item.
const (
	AuditScraped AuditStatus = "scraped"
	AuditFailed  AuditStatus = "failed"
	AuditSkipped AuditStatus = "skipped"
)

// AuditEntry is an append-only record of what happened to one filing item
// during one run. Never updated or deleted.
type AuditEntry struct {
	ReportLink string
	Status     AuditStatus
	RunID      string
	TS         time.Time
}

// WorkItem is one unit of holdings-fetch work: a filing page plus the
// manager and quarter it belongs to. Ephemeral, never persisted.
type WorkItem struct {
	ReportLink string
	Manager    string
	Quarter    string
}

// ItemResult pairs a WorkItem with its outcome. Holdings is nil when Err is
// set; Err is ErrNoData when the fetch succeeded but yielded zero rows.
type ItemResult struct {
	Item     WorkItem
	Holdings []HoldingRecord
	Err      error
}

// Page is the raw content returned by a Fetcher.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Body       []byte
}

// Fetcher retrieves a single URL. Implementations classify failures as
// *NetworkError, *StatusError or *DecodeError; retries are the caller's
// responsibility.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// Store is the durable side of the pipeline. All operations are atomic at
// single-transaction granularity; see internal/store for the SQLite
// implementation.
type Store interface {
	ResumeSet(ctx context.Context) (map[string]struct{}, error)
	RecordSummaries(ctx context.Context, summaries []FilingSummary) error
	RecordSuccess(ctx context.Context, reportLink string, holdings []HoldingRecord) error
	RecordFailure(ctx context.Context, item WorkItem, reason string) error
	RecordSkipped(ctx context.Context, reportLink string) error
	ClearFailure(ctx context.Context, reportLink string) error
	ListFailed(ctx context.Context) ([]FailedFiling, error)
}
