// Package metrics exposes Prometheus collectors for the harvest pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	filingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thirteenf_filings_total",
			Help: "Filing items processed, labeled by outcome (scraped, failed, skipped).",
		},
		[]string{"outcome"},
	)

	holdingsRowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thirteenf_holdings_rows_total",
			Help: "Holding rows handed to the store for insertion.",
		},
	)

	fetchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thirteenf_fetch_duration_seconds",
			Help:    "Latency of outbound fetches, labeled by kind (page, json).",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"kind"},
	)

	activeWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thirteenf_active_workers",
			Help: "Workers currently executing a holdings fetch.",
		},
	)

	failedBacklog = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thirteenf_failed_backlog",
			Help: "Rows currently in the failed filings table.",
		},
	)
)

// Handler returns the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFiling counts one processed filing item by outcome.
func ObserveFiling(outcome string) {
	filingsTotal.WithLabelValues(outcome).Inc()
}

// AddHoldingsRows counts holding rows passed to the store.
func AddHoldingsRows(n int) {
	if n > 0 {
		holdingsRowsTotal.Add(float64(n))
	}
}

// ObserveFetch records one outbound request latency.
func ObserveFetch(kind string, d time.Duration) {
	fetchDurationSeconds.WithLabelValues(kind).Observe(d.Seconds())
}

// IncActiveWorkers and DecActiveWorkers track the worker gauge.
func IncActiveWorkers() { activeWorkers.Inc() }

// DecActiveWorkers decrements the active worker gauge.
func DecActiveWorkers() { activeWorkers.Dec() }

// SetFailedBacklog records the current failed filings count.
func SetFailedBacklog(n int) { failedBacklog.Set(float64(n)) }
