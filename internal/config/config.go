// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package config

import (
	"fmt"
	"time"
)

// Run modes.
const (
	ModeOnce     = "once"
	ModeSchedule = "schedule"
)

// Notification drivers.
const (
	DriverNATS    = "nats"
	DriverChannel = "channel"
)

// Config holds all featurizer configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any mapped setting
//
// Example:
//
//	cfg, err := config.LoadWithKoanf()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	db, err := store.Open(&cfg.Database)
type Config struct {
	Run        RunConfig        `koanf:"run"`
	Logging    LoggingConfig    `koanf:"logging"`
	Database   DatabaseConfig   `koanf:"database"`
	Pipeline   PipelineConfig   `koanf:"pipeline"`
	Features   FeaturesConfig   `koanf:"features"`
	Popularity PopularityConfig `koanf:"popularity"`
	Snapshot   SnapshotConfig   `koanf:"snapshot"`
	Ledger     LedgerConfig     `koanf:"ledger"`
	Notify     NotifyConfig     `koanf:"notify"`
	Breaker    BreakerConfig    `koanf:"breaker"`
	Schedule   ScheduleConfig   `koanf:"schedule"`
	Server     ServerConfig     `koanf:"server"`
	Metrics    MetricsConfig    `koanf:"metrics"`
}

// RunConfig selects how the featurizer is invoked.
type RunConfig struct {
	// Mode is "once" (single run, then exit) or "schedule" (supervised service).
	Mode string `koanf:"mode"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// DatabaseConfig holds DuckDB connection settings.
type DatabaseConfig struct {
	// Path is the database file, or ":memory:".
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	// Threads is the DuckDB worker count. 0 uses runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// PipelineConfig bounds a single run.
type PipelineConfig struct {
	// ReadTimeout is the deadline for the whole read phase.
	ReadTimeout time.Duration `koanf:"read_timeout"`

	// ApprovalWindow is the number of most recent approvals considered.
	ApprovalWindow int `koanf:"approval_window"`

	// BehaviorWindow is the number of most recent behavior events considered.
	BehaviorWindow int `koanf:"behavior_window"`

	// MaxCatalogSize fails runs over this many items. 0 means unlimited.
	MaxCatalogSize int `koanf:"max_catalog_size"`
}

// FeaturesConfig controls feature extraction.
type FeaturesConfig struct {
	ReferenceTags       []string `koanf:"reference_tags"`
	NormalizePopularity bool     `koanf:"normalize_popularity"`
}

// PopularityConfig sets the length of each ranked list.
type PopularityConfig struct {
	TopCategories int `koanf:"top_categories"`
	TopStyles     int `koanf:"top_styles"`
	TopTags       int `koanf:"top_tags"`
	TopCreators   int `koanf:"top_creators"`
}

// SnapshotConfig locates the output artifact.
type SnapshotConfig struct {
	Dir  string `koanf:"dir"`
	Name string `koanf:"name"`
	// KeepVersions is the number of gzip history copies kept. 0 disables history.
	KeepVersions int `koanf:"keep_versions"`
}

// LedgerConfig configures the Badger run ledger.
type LedgerConfig struct {
	Dir string `koanf:"dir"`
	// KeepRuns prunes the ledger to this many records after each run. 0 keeps all.
	KeepRuns int `koanf:"keep_runs"`
	// InMemory keeps the ledger in memory; no run lock across processes.
	InMemory bool `koanf:"in_memory"`
}

// NotifyConfig configures the snapshot-published event.
type NotifyConfig struct {
	Enabled bool `koanf:"enabled"`
	// Driver is "nats" or "channel".
	Driver    string        `koanf:"driver"`
	URL       string        `koanf:"url"`
	Topic     string        `koanf:"topic"`
	JetStream bool          `koanf:"jetstream"`
	Timeout   time.Duration `koanf:"timeout"`
}

// BreakerConfig configures the circuit breaker around store reads.
type BreakerConfig struct {
	Enabled bool   `koanf:"enabled"`
	Name    string `koanf:"name"`

	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32 `koanf:"max_requests"`

	// Interval resets the closed-state counts. 0 never resets.
	Interval time.Duration `koanf:"interval"`

	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration `koanf:"timeout"`

	// MinRequests is the sample size required before the circuit may open.
	MinRequests uint32 `koanf:"min_requests"`

	// FailureRatio opens the circuit once reached.
	FailureRatio float64 `koanf:"failure_ratio"`
}

// ScheduleConfig drives scheduled mode.
type ScheduleConfig struct {
	// Cron is a standard five-field cron expression. Takes precedence over Interval.
	Cron string `koanf:"cron"`

	// Interval is the fixed period used when Cron is empty.
	Interval time.Duration `koanf:"interval"`

	// RunOnStartup triggers a run as soon as the service starts.
	RunOnStartup bool `koanf:"run_on_startup"`

	// RunTimeout bounds each scheduled run.
	RunTimeout time.Duration `koanf:"run_timeout"`
}

// ServerConfig configures the ops HTTP server.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MetricsConfig configures metric export for one-shot runs.
type MetricsConfig struct {
	// PushURL is the Pushgateway base URL. Empty disables pushing.
	PushURL string `koanf:"push_url"`
	Job     string `koanf:"job"`
}
