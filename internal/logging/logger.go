// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DefaultService is the service field stamped on every record.
const DefaultService = "palette-featurizer"

// Config holds logging configuration.
type Config struct {
	// Level is the minimum log level: trace, debug, info, warn, error, disabled.
	// Unknown values fall back to info. Default: info
	Level string

	// Format is json or console. Default: json
	Format string

	// Caller includes caller file and line number.
	Caller bool

	// Timestamp enables timestamps. Default: true
	Timestamp bool

	// Service is stamped on every record. Default: DefaultService
	Service string

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    "json",
		Timestamp: true,
		Service:   DefaultService,
		Output:    os.Stderr,
	}
}

// global holds the process logger. Init swaps it atomically.
var global atomic.Pointer[zerolog.Logger]

// zerolog's field names and time format are plain package variables read by
// every event, so they are set here once and never again.
//
//nolint:gochecknoinits // logging works before main calls Init
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "time"
	zerolog.MessageFieldName = "message"

	Init(DefaultConfig())
}

// Init builds the global logger from cfg. It is safe to call while other
// goroutines log. Loggers obtained afterwards use the new configuration;
// child loggers already handed out keep their writer.
func Init(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.Service == "" {
		cfg.Service = DefaultService
	}

	// SetGlobalLevel is an atomic store.
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if strings.EqualFold(cfg.Format, "console") {
		output = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}

	ctx := zerolog.New(output).With().Str("service", cfg.Service)
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	l := ctx.Logger()
	global.Store(&l)
}

// parseLevel maps a configured level onto zerolog. "warning" is accepted
// as an alias; anything unparsable becomes info.
func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	if level == "" {
		return zerolog.InfoLevel
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

// Logger returns a copy of the global logger.
func Logger() zerolog.Logger {
	return *global.Load()
}

// SetLogger replaces the global logger. Tests use it to capture output.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func SetLogger(l zerolog.Logger) {
	global.Store(&l)
}

// With creates a child logger context.
//
//	stageLogger := logging.With().Str("stage", "similarity").Logger()
func With() zerolog.Context {
	return global.Load().With()
}

// WithComponent creates a child logger tagged with component.
//
//	logger := logging.WithComponent("ledger")
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}

// Debug starts a debug message on the global logger.
func Debug() *zerolog.Event { return global.Load().Debug() }

// Info starts an info message on the global logger.
func Info() *zerolog.Event { return global.Load().Info() }

// Warn starts a warning message on the global logger.
func Warn() *zerolog.Event { return global.Load().Warn() }

// Error starts an error message on the global logger.
func Error() *zerolog.Event { return global.Load().Error() }

// Err starts an error-level message carrying err, or info when err is nil.
//
//	logging.Err(err).Msg("ledger prune")
func Err(err error) *zerolog.Event { return global.Load().Err(err) }

// NewTestLogger creates a logger writing JSON to w.
//
//	var buf bytes.Buffer
//	logger := logging.NewTestLogger(&buf)
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
