// Package progress tracks running counts and estimates for a crawl pass.
package progress

import (
	"fmt"
	"sync"
	"time"
)

// Tracker accumulates per-item outcomes. Safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	start     time.Time
	pending   int
	completed int
	failed    int
	skipped   int
	holdings  int
	now       func() time.Time
}

// NewTracker starts the clock.
func NewTracker() *Tracker {
	return newTracker(time.Now)
}

func newTracker(now func() time.Time) *Tracker {
	return &Tracker{start: now(), now: now}
}

// AddPending registers newly discovered work before submission.
func (t *Tracker) AddPending(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending += n
}

// ItemDone records one completed item.
func (t *Tracker) ItemDone(holdings int, failed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completed++
	if t.pending > 0 {
		t.pending--
	}
	if failed {
		t.failed++
	} else {
		t.holdings += holdings
	}
}

// ItemSkipped records one item excluded via the resume set.
func (t *Tracker) ItemSkipped() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.skipped++
}

// Snapshot is a point-in-time view of the run.
type Snapshot struct {
	Completed   int           `json:"completed"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"`
	Pending     int           `json:"pending"`
	Holdings    int           `json:"holdings"`
	Elapsed     time.Duration `json:"-"`
	ElapsedText string        `json:"elapsed"`
	AvgPerItem  time.Duration `json:"-"`
	ETA         time.Duration `json:"-"`
	ETAText     string        `json:"eta"`
}

// Snapshot computes elapsed time, average seconds per item and the ETA for
// the currently known pending work.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := t.now().Sub(t.start)
	var avg, eta time.Duration
	if t.completed > 0 {
		avg = elapsed / time.Duration(t.completed)
		eta = avg * time.Duration(t.pending)
	}
	return Snapshot{
		Completed:   t.completed,
		Failed:      t.failed,
		Skipped:     t.skipped,
		Pending:     t.pending,
		Holdings:    t.holdings,
		Elapsed:     elapsed,
		ElapsedText: FormatClock(elapsed),
		AvgPerItem:  avg,
		ETA:         eta,
		ETAText:     FormatClock(eta),
	}
}

// FormatClock renders a duration as HH:MM:SS.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
