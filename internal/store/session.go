package store

import (
	"context"
	"fmt"

	"github.com/aharmon/thirteenf/internal/filings"
)

// Session is a dedicated connection handed to one worker for its lifetime:
// acquired once before the worker starts, released on pool shutdown. Each
// write still runs in its own short transaction.
type Session struct {
	conn  sessionConn
	runID string
}

// sessionConn is the subset of *sql.Conn the session needs.
type sessionConn interface {
	querier
	Close() error
}

// Session pins a connection from the pool.
func (s *Store) Session(ctx context.Context) (*Session, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire store connection: %w", err)
	}
	return &Session{conn: conn, runID: s.runID}, nil
}

// Close returns the connection to the pool.
func (s *Session) Close() error {
	return s.conn.Close()
}

// RecordSuccess is Store.RecordSuccess on the session's own connection.
func (s *Session) RecordSuccess(ctx context.Context, reportLink string, holdings []filings.HoldingRecord) error {
	return recordSuccess(ctx, s.conn, s.runID, reportLink, holdings)
}

// RecordFailure is Store.RecordFailure on the session's own connection.
func (s *Session) RecordFailure(ctx context.Context, item filings.WorkItem, reason string) error {
	return recordFailure(ctx, s.conn, s.runID, item, reason)
}

// RecordSkipped is Store.RecordSkipped on the session's own connection.
func (s *Session) RecordSkipped(ctx context.Context, reportLink string) error {
	return recordSkipped(ctx, s.conn, s.runID, reportLink)
}

// ClearFailure is Store.ClearFailure on the session's own connection.
func (s *Session) ClearFailure(ctx context.Context, reportLink string) error {
	return clearFailure(ctx, s.conn, reportLink)
}
