package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/aharmon/thirteenf/internal/progress"
)

func newTestServer(t *testing.T) (*Server, *progress.Tracker) {
	t.Helper()
	tracker := progress.NewTracker()
	return New(":0", tracker, zaptest.NewLogger(t)), tracker
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestProgress(t *testing.T) {
	t.Parallel()
	s, tracker := newTestServer(t)

	tracker.AddPending(5)
	tracker.ItemDone(12, false)
	tracker.ItemDone(0, true)
	tracker.ItemSkipped()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/progress", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var snap struct {
		Completed int    `json:"completed"`
		Failed    int    `json:"failed"`
		Skipped   int    `json:"skipped"`
		Pending   int    `json:"pending"`
		Holdings  int    `json:"holdings"`
		Elapsed   string `json:"elapsed"`
		ETA       string `json:"eta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Equal(t, 2, snap.Completed)
	require.Equal(t, 1, snap.Failed)
	require.Equal(t, 1, snap.Skipped)
	require.Equal(t, 3, snap.Pending)
	require.Equal(t, 12, snap.Holdings)
	require.Regexp(t, `^\d{2}:\d{2}:\d{2}$`, snap.Elapsed)
	require.Regexp(t, `^\d{2}:\d{2}:\d{2}$`, snap.ETA)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
