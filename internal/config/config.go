// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures every configuration knob, layered as defaults, optional
// YAML file, THIRTEENF_* environment overrides and explicit flag overrides.
type Config struct {
	Source   SourceConfig   `mapstructure:"source"`
	Crawl    CrawlConfig    `mapstructure:"crawl"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Output   OutputConfig   `mapstructure:"output"`
	Status   StatusConfig   `mapstructure:"status"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SourceConfig points at the filing site.
type SourceConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`
}

// CrawlConfig governs the crawl pass.
type CrawlConfig struct {
	// Partitions is a range expression such as "a-z,0" expanded to a flat
	// ordered set of index buckets.
	Partitions    string  `mapstructure:"partitions"`
	Concurrency   int     `mapstructure:"concurrency"`
	Retries       int     `mapstructure:"retries"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
}

// HTTPConfig configures fetch timeouts and backoff.
type HTTPConfig struct {
	PageTimeoutSeconds int `mapstructure:"page_timeout_seconds"`
	JSONTimeoutSeconds int `mapstructure:"json_timeout_seconds"`
	BackoffInitialMs   int `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs       int `mapstructure:"backoff_max_ms"`
}

// HeadlessConfig controls the optional browser-rendered fallback.
type HeadlessConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	NavTimeoutSeconds int  `mapstructure:"nav_timeout_seconds"`
}

// OutputConfig sets where the store file and partition checkpoint live.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// StatusConfig enables the progress/metrics HTTP endpoint when Addr is set.
type StatusConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development mode and an extra log destination.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Path        string `mapstructure:"path"`
}

// Load builds a Config from disk and environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("THIRTEENF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.base_url", "https://13f.info")
	v.SetDefault("source.user_agent", "thirteenf-archive/0.3")
	v.SetDefault("crawl.partitions", "a-z,0")
	v.SetDefault("crawl.concurrency", 10)
	v.SetDefault("crawl.retries", 2)
	v.SetDefault("crawl.rate_per_second", 4)
	v.SetDefault("http.page_timeout_seconds", 20)
	v.SetDefault("http.json_timeout_seconds", 30)
	v.SetDefault("http.backoff_initial_ms", 250)
	v.SetDefault("http.backoff_max_ms", 5000)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.nav_timeout_seconds", 45)
	v.SetDefault("output.dir", "out")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Source.BaseURL == "" {
		return fmt.Errorf("source.base_url is required")
	}
	if c.Crawl.Concurrency <= 0 {
		return fmt.Errorf("crawl.concurrency must be > 0")
	}
	if c.Crawl.Retries < 0 {
		return fmt.Errorf("crawl.retries must be >= 0")
	}
	if c.HTTP.PageTimeoutSeconds <= 0 || c.HTTP.JSONTimeoutSeconds <= 0 {
		return fmt.Errorf("http timeouts must be > 0")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir is required")
	}
	if _, err := ExpandPartitions(c.Crawl.Partitions); err != nil {
		return fmt.Errorf("crawl.partitions: %w", err)
	}
	return nil
}

// PageTimeout returns the per-request timeout for filing pages.
func (c Config) PageTimeout() time.Duration {
	return time.Duration(c.HTTP.PageTimeoutSeconds) * time.Second
}

// JSONTimeout returns the per-request timeout for the holdings data endpoint.
func (c Config) JSONTimeout() time.Duration {
	return time.Duration(c.HTTP.JSONTimeoutSeconds) * time.Second
}

// BackoffInitial returns the first retry delay.
func (c Config) BackoffInitial() time.Duration {
	return time.Duration(c.HTTP.BackoffInitialMs) * time.Millisecond
}

// BackoffMax caps the retry delay.
func (c Config) BackoffMax() time.Duration {
	return time.Duration(c.HTTP.BackoffMaxMs) * time.Millisecond
}

// HeadlessNavTimeout bounds a single headless page render.
func (c Config) HeadlessNavTimeout() time.Duration {
	return time.Duration(c.Headless.NavTimeoutSeconds) * time.Second
}
