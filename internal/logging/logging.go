// Package logging builds the process-wide zap logger from the CLI
// verbosity count.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MaxVerbosity is the highest meaningful -v count.
const MaxVerbosity = 3

// levels maps the -v count to a zap level: errors only by default,
// then info, then debug. The top level keeps debug but switches to the
// development config below, which attaches stack traces from warn level
// up instead of from error level up.
var levels = []zapcore.Level{
	zapcore.ErrorLevel, // 0 (quiet)
	zapcore.InfoLevel,  // 1
	zapcore.DebugLevel, // 2
	zapcore.DebugLevel, // 3 (trace)
}

// New constructs the logger for the given verbosity. quiet wins over
// any -v count.
func New(verbosity int, quiet bool) (*zap.Logger, error) {
	if quiet {
		verbosity = 0
	}
	if verbosity > MaxVerbosity {
		verbosity = MaxVerbosity
	}
	if verbosity < 0 {
		verbosity = 0
	}

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	if verbosity >= MaxVerbosity {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(levels[verbosity])

	return cfg.Build()
}
