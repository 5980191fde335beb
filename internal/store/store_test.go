package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aharmon/thirteenf/internal/filings"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "filings.db"), WithRunID("run-test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.InitSchema(context.Background()))
	return s
}

func holding(link, symbol string) filings.HoldingRecord {
	return filings.HoldingRecord{
		Symbol:     symbol,
		IssuerName: symbol + " Corp",
		Value:      "1000",
		ReportLink: link,
		Manager:    "https://example.com/manager/1",
		Quarter:    "Q1 2024",
	}
}

func TestInitSchema_Idempotent(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	require.NoError(t, s.InitSchema(context.Background()))
	require.NoError(t, s.InitSchema(context.Background()))
}

func TestRecordSuccess_DeduplicatesOnRepeat(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	rows := []filings.HoldingRecord{
		holding("link-1", "AAPL"),
		holding("link-1", "MSFT"),
	}
	require.NoError(t, s.RecordSuccess(ctx, "link-1", rows))
	require.NoError(t, s.RecordSuccess(ctx, "link-1", rows))

	var count int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM holdings`).Scan(&count))
	require.Equal(t, 2, count)

	var audits int
	require.NoError(t, s.DB().QueryRow(
		`SELECT COUNT(*) FROM audit_log WHERE report_link = ? AND status = ?`,
		"link-1", filings.AuditScraped,
	).Scan(&audits))
	require.Equal(t, 2, audits, "audit log is append-only, one entry per pass")
}

func TestResumeSet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	set, err := s.ResumeSet(ctx)
	require.NoError(t, err)
	require.Empty(t, set)

	require.NoError(t, s.RecordSuccess(ctx, "link-1", []filings.HoldingRecord{holding("link-1", "AAPL")}))
	require.NoError(t, s.RecordSuccess(ctx, "link-2", []filings.HoldingRecord{holding("link-2", "MSFT")}))

	set, err = s.ResumeSet(ctx)
	require.NoError(t, err)
	require.Len(t, set, 2)
	require.Contains(t, set, "link-1")
	require.Contains(t, set, "link-2")
}

func TestRecordFailure_UpsertRefreshes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	item := filings.WorkItem{
		ReportLink: "link-bad",
		Manager:    "https://example.com/manager/2",
		Quarter:    "Q2 2024",
	}
	require.NoError(t, s.RecordFailure(ctx, item, "no data"))
	require.NoError(t, s.RecordFailure(ctx, item, "http status 503"))

	failed, err := s.ListFailed(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	require.Equal(t, "link-bad", failed[0].ReportLink)
	require.Equal(t, "http status 503", failed[0].Error, "repeat failure refreshes the error text")
	require.False(t, failed[0].LastTried.IsZero())

	var audits int
	require.NoError(t, s.DB().QueryRow(
		`SELECT COUNT(*) FROM audit_log WHERE status = ?`, filings.AuditFailed,
	).Scan(&audits))
	require.Equal(t, 2, audits)
}

func TestClearFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	item := filings.WorkItem{ReportLink: "link-bad", Manager: "m", Quarter: "Q1 2024"}
	require.NoError(t, s.RecordFailure(ctx, item, "no data"))
	require.NoError(t, s.ClearFailure(ctx, "link-bad"))

	failed, err := s.ListFailed(ctx)
	require.NoError(t, err)
	require.Empty(t, failed)

	// Clearing an absent row is a no-op, not an error.
	require.NoError(t, s.ClearFailure(ctx, "link-bad"))
}

func TestRecordSkipped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.RecordSkipped(ctx, "link-1"))

	var status, runID string
	require.NoError(t, s.DB().QueryRow(
		`SELECT status, run_id FROM audit_log WHERE report_link = ?`, "link-1",
	).Scan(&status, &runID))
	require.Equal(t, string(filings.AuditSkipped), status)
	require.Equal(t, "run-test", runID)
}

func TestRecordSummaries_UniqueOnManagerAndLink(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	sums := []filings.FilingSummary{
		{Manager: "m1", Quarter: "Q1 2024", HoldingsCount: 3, ReportLink: "link-1"},
		{Manager: "m1", Quarter: "Q2 2024", HoldingsCount: 5, ReportLink: "link-2"},
	}
	require.NoError(t, s.RecordSummaries(ctx, sums))
	require.NoError(t, s.RecordSummaries(ctx, sums))

	var count int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM summaries`).Scan(&count))
	require.Equal(t, 2, count, "re-running a pass must not duplicate summaries")
}

func TestSessions_ConcurrentDuplicateWrites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	// Two workers racing on the same item must not duplicate holdings.
	rows := []filings.HoldingRecord{holding("link-race", "NVDA")}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		sess, err := s.Session(ctx)
		require.NoError(t, err)
		wg.Add(1)
		go func(i int, sess *Session) {
			defer wg.Done()
			defer sess.Close()
			errs[i] = sess.RecordSuccess(ctx, "link-race", rows)
		}(i, sess)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	var count int
	require.NoError(t, s.DB().QueryRow(
		`SELECT COUNT(*) FROM holdings WHERE report_link = ?`, "link-race",
	).Scan(&count))
	require.Equal(t, 1, count)
}
