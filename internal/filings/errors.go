package filings

import (
	"errors"
	"fmt"
)

// ErrNoData marks an item whose fetch succeeded but produced zero holdings.
// Operators need to tell "source had nothing" apart from "we could not reach
// the source", so this is never wrapped inside a fetch error.
var ErrNoData = errors.New("no data")

// NoDataReason is the failure reason persisted for ErrNoData items.
const NoDataReason = "no data"

// ErrStoreUnavailable marks results whose outcome could not be persisted
// because the worker had no usable store connection. Unlike item failures
// it is fatal: the orchestrator must stop instead of checkpointing work
// that was never recorded.
var ErrStoreUnavailable = errors.New("store unavailable")

// NetworkError wraps a transport-level failure (DNS, dial, timeout).
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusError reports a non-success HTTP status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d fetching %s", e.Code, e.URL)
}

// DecodeError reports a malformed payload, e.g. invalid JSON from the
// holdings data endpoint.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error for %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// FailureReason renders an item error as the text stored in failed_filings.
func FailureReason(err error) string {
	if errors.Is(err, ErrNoData) {
		return NoDataReason
	}
	return err.Error()
}
