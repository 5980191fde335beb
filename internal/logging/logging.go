// Package logging builds the zap logger used across the harvester.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options control logger construction.
type Options struct {
	// Development switches to the console encoder with colored levels.
	Development bool
	// Path is an optional log destination appended to stderr.
	Path string
}

// New constructs a zap.Logger. The logger is created once per process and
// passed explicitly to every component; there is no package-level logger.
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.EncoderConfig.TimeKey = "ts"
	if opts.Path != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, opts.Path)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
