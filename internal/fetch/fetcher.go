// Package fetch implements the outbound HTTP client for the filing site.
package fetch

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/aharmon/thirteenf/internal/filings"
	"github.com/aharmon/thirteenf/internal/metrics"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// RatePerSecond bounds outbound requests against the source site.
	// Zero disables the politeness gate.
	RatePerSecond float64
	// Kind labels this client's fetches in the latency histogram
	// (defaults to "page").
	Kind string
}

// Client implements filings.Fetcher using a shared Colly collector. The
// collector is built once and cloned per call so connections are reused
// while per-fetch callbacks stay isolated.
type Client struct {
	cfg     Config
	base    *colly.Collector
	limiter *rate.Limiter
	logger  *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithLimiter shares one politeness limiter across several clients hitting
// the same site, overriding Config.RatePerSecond.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// New builds a Client.
func New(cfg Config, logger *zap.Logger, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.Kind == "" {
		cfg.Kind = "page"
	}
	base := colly.NewCollector(colly.Async(false))
	base.AllowURLRevisit = true
	base.WithTransport(newTransport())
	if cfg.UserAgent != "" {
		base.UserAgent = cfg.UserAgent
	}
	base.SetRequestTimeout(cfg.Timeout)

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	c := &Client{
		cfg:     cfg,
		base:    base,
		limiter: limiter,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewLimiter builds a token-bucket limiter for ratePerSecond, or nil when
// the gate is disabled.
func NewLimiter(ratePerSecond float64) *rate.Limiter {
	if ratePerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(ratePerSecond), 1)
}

// Fetch performs a single GET and classifies any failure.
func (c *Client) Fetch(ctx context.Context, url string) (filings.Page, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return filings.Page{}, &filings.NetworkError{URL: url, Err: err}
		}
	}

	var (
		page     filings.Page
		fetchErr error
	)
	start := time.Now()
	collector := c.base.Clone()

	collector.OnResponse(func(r *colly.Response) {
		page = filings.Page{
			URL:        url,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			fetchErr = &filings.StatusError{URL: url, Code: r.StatusCode}
			return
		}
		fetchErr = &filings.NetworkError{URL: url, Err: err}
	})

	if err := c.visit(ctx, collector, url); err != nil {
		return filings.Page{}, err
	}
	metrics.ObserveFetch(c.cfg.Kind, time.Since(start))
	if fetchErr != nil {
		return filings.Page{}, fetchErr
	}
	if page.StatusCode == 0 {
		return filings.Page{}, &filings.NetworkError{URL: url, Err: errNoResponse}
	}
	return page, nil
}

func (c *Client) visit(ctx context.Context, collector *colly.Collector, url string) error {
	// Colly has no context plumbing. On cancellation the goroutine and its
	// in-flight request live on until the collector's request timeout fires,
	// then exit via the buffered channel.
	done := make(chan error, 1)
	go func() {
		err := collector.Visit(url)
		collector.Wait()
		done <- err
	}()

	select {
	case <-ctx.Done():
		return &filings.NetworkError{URL: url, Err: ctx.Err()}
	case err := <-done:
		if err != nil {
			return &filings.NetworkError{URL: url, Err: err}
		}
		return nil
	}
}

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}
