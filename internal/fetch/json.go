package fetch

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/aharmon/thirteenf/internal/filings"
)

var errNoResponse = errors.New("no response received")

// JSON fetches url through f and decodes the body into v. A malformed
// payload comes back as *filings.DecodeError so callers can treat it as a
// transient fetch-class failure.
func JSON(ctx context.Context, f filings.Fetcher, url string, v any) error {
	page, err := f.Fetch(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(page.Body, v); err != nil {
		return &filings.DecodeError{URL: url, Err: err}
	}
	return nil
}
