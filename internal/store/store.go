// Package store persists crawl results in a single SQLite file.
//
// Write discipline: one short-lived transaction per completed work item,
// one connection per worker (see Session). Idempotence rests on the
// holdings uniqueness constraint plus INSERT OR IGNORE / OR REPLACE, so
// concurrent writes commute without coordination.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/aharmon/thirteenf/internal/filings"
)

// Store wraps the SQLite database. It satisfies filings.Store.
type Store struct {
	db    *sql.DB
	runID string
}

// Option customizes an opened Store.
type Option func(*Store)

// WithRunID stamps audit entries with the given crawl pass identifier.
func WithRunID(id string) Option {
	return func(s *Store) { s.runID = id }
}

// Open opens (or creates) the store file. WAL mode and a busy timeout keep
// concurrent single-item transactions from starving each other.
func Open(path string, opts ...Option) (*Store, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		url.PathEscape(path),
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the pool for the read-only query catalog.
func (s *Store) DB() *sql.DB {
	return s.db
}

// RunID returns the audit run identifier this store stamps.
func (s *Store) RunID() string {
	return s.runID
}

// InitSchema creates the tables and uniqueness constraints if absent.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Conn so the Store and a
// per-worker Session share one implementation.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// ResumeSet returns every report link already present in holdings. The
// orchestrator consults it before submitting work; the uniqueness
// constraint remains the last line of defense.
func (s *Store) ResumeSet(ctx context.Context) (map[string]struct{}, error) {
	return resumeSet(ctx, s.db)
}

func resumeSet(ctx context.Context, q querier) (map[string]struct{}, error) {
	rows, err := q.QueryContext(ctx, `SELECT DISTINCT report_link FROM holdings`)
	if err != nil {
		return nil, fmt.Errorf("load resume set: %w", err)
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, fmt.Errorf("scan resume set row: %w", err)
		}
		set[link] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resume set: %w", err)
	}
	return set, nil
}

// RecordSummaries appends filing summaries, ignoring rows already known for
// the same (manager, report link).
func (s *Store) RecordSummaries(ctx context.Context, summaries []filings.FilingSummary) error {
	return recordSummaries(ctx, s.db, summaries)
}

func recordSummaries(ctx context.Context, q querier, summaries []filings.FilingSummary) error {
	if len(summaries) == 0 {
		return nil
	}
	tx, err := q.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin summaries tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO summaries
			(manager, quarter, holdings_count, value, top_holdings, form, date_filed, filing_id, report_link)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare summaries insert: %w", err)
	}
	defer stmt.Close()

	for _, sum := range summaries {
		if _, err := stmt.ExecContext(ctx,
			sum.Manager, sum.Quarter, sum.HoldingsCount, sum.Value,
			sum.TopHoldings, sum.Form, sum.DateFiled, sum.FilingID, sum.ReportLink,
		); err != nil {
			return fmt.Errorf("insert summary %s: %w", sum.ReportLink, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit summaries: %w", err)
	}
	return nil
}

// RecordSuccess inserts the holdings of one filing and appends a "scraped"
// audit entry in the same transaction. Rows colliding on the uniqueness
// constraint are treated as already present, not as errors.
func (s *Store) RecordSuccess(ctx context.Context, reportLink string, holdings []filings.HoldingRecord) error {
	return recordSuccess(ctx, s.db, s.runID, reportLink, holdings)
}

func recordSuccess(ctx context.Context, q querier, runID, reportLink string, holdings []filings.HoldingRecord) error {
	tx, err := q.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin success tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO holdings
			(symbol, issuer_name, class, cusip, value, percent, shares, principal, option_type, report_link, manager, quarter)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare holdings insert: %w", err)
	}
	defer stmt.Close()

	for _, h := range holdings {
		if _, err := stmt.ExecContext(ctx,
			h.Symbol, h.IssuerName, h.Class, h.CUSIP, h.Value, h.Percent,
			h.Shares, h.Principal, h.OptionType, h.ReportLink, h.Manager, h.Quarter,
		); err != nil {
			return fmt.Errorf("insert holding %s/%s: %w", h.ReportLink, h.Symbol, err)
		}
	}
	if err := appendAudit(ctx, tx, reportLink, filings.AuditScraped, runID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit success: %w", err)
	}
	return nil
}

// RecordFailure upserts the failed row for a filing (refreshing error text
// and timestamp on repeat) and appends a "failed" audit entry.
func (s *Store) RecordFailure(ctx context.Context, item filings.WorkItem, reason string) error {
	return recordFailure(ctx, s.db, s.runID, item, reason)
}

func recordFailure(ctx context.Context, q querier, runID string, item filings.WorkItem, reason string) error {
	tx, err := q.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin failure tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO failed_filings (report_link, manager, quarter, error, last_tried)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		item.ReportLink, item.Manager, item.Quarter, reason,
	); err != nil {
		return fmt.Errorf("upsert failed filing %s: %w", item.ReportLink, err)
	}
	if err := appendAudit(ctx, tx, item.ReportLink, filings.AuditFailed, runID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit failure: %w", err)
	}
	return nil
}

// RecordSkipped appends a "skipped" audit entry for an item excluded from
// this pass because the resume set already covers it.
func (s *Store) RecordSkipped(ctx context.Context, reportLink string) error {
	return recordSkipped(ctx, s.db, s.runID, reportLink)
}

func recordSkipped(ctx context.Context, q querier, runID, reportLink string) error {
	if _, err := q.ExecContext(ctx, `
		INSERT INTO audit_log (report_link, status, run_id) VALUES (?, ?, ?)`,
		reportLink, filings.AuditSkipped, runID,
	); err != nil {
		return fmt.Errorf("audit skipped %s: %w", reportLink, err)
	}
	return nil
}

// ClearFailure removes a failed row after a retry pass recovered it.
func (s *Store) ClearFailure(ctx context.Context, reportLink string) error {
	return clearFailure(ctx, s.db, reportLink)
}

func clearFailure(ctx context.Context, q querier, reportLink string) error {
	if _, err := q.ExecContext(ctx,
		`DELETE FROM failed_filings WHERE report_link = ?`, reportLink,
	); err != nil {
		return fmt.Errorf("clear failed filing %s: %w", reportLink, err)
	}
	return nil
}

// ListFailed returns every filing currently believed unrecoverable-so-far,
// oldest attempt first.
func (s *Store) ListFailed(ctx context.Context) ([]filings.FailedFiling, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT report_link, manager, quarter, error, last_tried
		FROM failed_filings
		ORDER BY last_tried ASC`)
	if err != nil {
		return nil, fmt.Errorf("list failed filings: %w", err)
	}
	defer rows.Close()

	var out []filings.FailedFiling
	for rows.Next() {
		var f filings.FailedFiling
		if err := rows.Scan(&f.ReportLink, &f.Manager, &f.Quarter, &f.Error, &f.LastTried); err != nil {
			return nil, fmt.Errorf("scan failed filing: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failed filings: %w", err)
	}
	return out, nil
}

func appendAudit(ctx context.Context, tx *sql.Tx, reportLink string, status filings.AuditStatus, runID string) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO audit_log (report_link, status, run_id) VALUES (?, ?, ?)`,
		reportLink, status, runID,
	); err != nil {
		return fmt.Errorf("append audit %s/%s: %w", reportLink, status, err)
	}
	return nil
}
