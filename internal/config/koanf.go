// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/palette/config.yaml",
	"/etc/palette/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultReferenceTags mirrors the feature extractor's built-in vocabulary.
var defaultReferenceTags = []string{
	"anime", "cute", "cool", "fantasy", "horror", "cyber",
	"kemonomimi", "mecha", "idol", "gothic", "pastel", "retro",
}

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Run: RunConfig{
			Mode: ModeOnce,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Database: DatabaseConfig{
			Path:      "/data/palette.duckdb",
			MaxMemory: "2GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Pipeline: PipelineConfig{
			ReadTimeout:    2 * time.Minute,
			ApprovalWindow: 10000,
			BehaviorWindow: 10000,
			MaxCatalogSize: 0, // Unlimited
		},
		Features: FeaturesConfig{
			ReferenceTags:       append([]string(nil), defaultReferenceTags...),
			NormalizePopularity: false, // Raw engagement count for existing consumers
		},
		Popularity: PopularityConfig{
			TopCategories: 5,
			TopStyles:     5,
			TopTags:       10,
			TopCreators:   10,
		},
		Snapshot: SnapshotConfig{
			Dir:          "/data/snapshots",
			Name:         "features",
			KeepVersions: 10,
		},
		Ledger: LedgerConfig{
			Dir:      "/data/ledger",
			KeepRuns: 500,
			InMemory: false,
		},
		Notify: NotifyConfig{
			Enabled:   false,
			Driver:    DriverNATS,
			URL:       "nats://127.0.0.1:4222",
			Topic:     "recommend.snapshot.published",
			JetStream: false,
			Timeout:   10 * time.Second,
		},
		Breaker: BreakerConfig{
			Enabled:      true,
			Name:         "content-store",
			MaxRequests:  1,
			Interval:     10 * time.Minute,
			Timeout:      5 * time.Minute,
			MinRequests:  3,
			FailureRatio: 0.6,
		},
		Schedule: ScheduleConfig{
			Cron:         "",
			Interval:     6 * time.Hour,
			RunOnStartup: true,
			RunTimeout:   30 * time.Minute,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    9464,
			Timeout: 30 * time.Second,
		},
		Metrics: MetricsConfig{
			PushURL: "",
			Job:     "palette_featurizer",
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any mapped setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// DUCKDB_PATH -> database.path
	// SNAPSHOT_DIR -> snapshot.dir
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"features.reference_tags",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings; YAML already yields slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored so unrelated environment does not leak in.
var envMappings = map[string]string{
	"run_mode": "run.mode",

	// Logging mappings
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Database mappings
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	// Pipeline mappings
	"pipeline_read_timeout": "pipeline.read_timeout",
	"approval_window":       "pipeline.approval_window",
	"behavior_window":       "pipeline.behavior_window",
	"max_catalog_size":      "pipeline.max_catalog_size",

	// Feature mappings
	"features_reference_tags":       "features.reference_tags",
	"features_normalize_popularity": "features.normalize_popularity",

	// Popularity mappings
	"popularity_top_categories": "popularity.top_categories",
	"popularity_top_styles":     "popularity.top_styles",
	"popularity_top_tags":       "popularity.top_tags",
	"popularity_top_creators":   "popularity.top_creators",

	// Snapshot mappings
	"snapshot_dir":           "snapshot.dir",
	"snapshot_name":          "snapshot.name",
	"snapshot_keep_versions": "snapshot.keep_versions",

	// Ledger mappings
	"ledger_dir":       "ledger.dir",
	"ledger_keep_runs": "ledger.keep_runs",
	"ledger_in_memory": "ledger.in_memory",

	// Notification mappings
	"notify_enabled":   "notify.enabled",
	"notify_driver":    "notify.driver",
	"nats_url":         "notify.url",
	"notify_topic":     "notify.topic",
	"notify_jetstream": "notify.jetstream",
	"notify_timeout":   "notify.timeout",

	// Circuit breaker mappings
	"breaker_enabled":       "breaker.enabled",
	"breaker_max_requests":  "breaker.max_requests",
	"breaker_interval":      "breaker.interval",
	"breaker_timeout":       "breaker.timeout",
	"breaker_min_requests":  "breaker.min_requests",
	"breaker_failure_ratio": "breaker.failure_ratio",

	// Schedule mappings
	"schedule_cron":           "schedule.cron",
	"schedule_interval":       "schedule.interval",
	"schedule_run_on_startup": "schedule.run_on_startup",
	"schedule_run_timeout":    "schedule.run_timeout",

	// Server mappings
	"http_host":    "server.host",
	"http_port":    "server.port",
	"http_timeout": "server.timeout",

	// Metrics mappings
	"metrics_push_url": "metrics.push_url",
	"metrics_job":      "metrics.job",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - DUCKDB_PATH -> database.path
//   - SNAPSHOT_KEEP_VERSIONS -> snapshot.keep_versions
//   - NATS_URL -> notify.url
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
