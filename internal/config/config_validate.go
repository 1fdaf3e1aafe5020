// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateRun(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validatePipeline(); err != nil {
		return err
	}

	if err := c.validateFeatures(); err != nil {
		return err
	}

	if err := c.validatePopularity(); err != nil {
		return err
	}

	if err := c.validateSnapshot(); err != nil {
		return err
	}

	if err := c.validateLedger(); err != nil {
		return err
	}

	if err := c.validateNotify(); err != nil {
		return err
	}

	if err := c.validateBreaker(); err != nil {
		return err
	}

	if err := c.validateSchedule(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateMetrics(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateRun() error {
	switch c.Run.Mode {
	case ModeOnce, ModeSchedule:
		return nil
	default:
		return fmt.Errorf("RUN_MODE must be one of: %s, %s (got %q)", ModeOnce, ModeSchedule, c.Run.Mode)
	}
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be non-negative")
	}
	return nil
}

// validatePipeline validates the read-phase bounds.
func (c *Config) validatePipeline() error {
	if c.Pipeline.ReadTimeout <= 0 {
		return fmt.Errorf("PIPELINE_READ_TIMEOUT must be positive")
	}
	if c.Pipeline.ApprovalWindow <= 0 {
		return fmt.Errorf("APPROVAL_WINDOW must be positive")
	}
	if c.Pipeline.BehaviorWindow <= 0 {
		return fmt.Errorf("BEHAVIOR_WINDOW must be positive")
	}
	if c.Pipeline.MaxCatalogSize < 0 {
		return fmt.Errorf("MAX_CATALOG_SIZE must be non-negative (0 = unlimited)")
	}
	return nil
}

func (c *Config) validateFeatures() error {
	if len(c.Features.ReferenceTags) == 0 {
		return fmt.Errorf("FEATURES_REFERENCE_TAGS must contain at least one tag")
	}
	seen := make(map[string]struct{}, len(c.Features.ReferenceTags))
	for _, tag := range c.Features.ReferenceTags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("FEATURES_REFERENCE_TAGS must not contain empty tags")
		}
		if _, dup := seen[tag]; dup {
			return fmt.Errorf("FEATURES_REFERENCE_TAGS contains duplicate tag %q", tag)
		}
		seen[tag] = struct{}{}
	}
	return nil
}

func (c *Config) validatePopularity() error {
	limits := map[string]int{
		"POPULARITY_TOP_CATEGORIES": c.Popularity.TopCategories,
		"POPULARITY_TOP_STYLES":     c.Popularity.TopStyles,
		"POPULARITY_TOP_TAGS":       c.Popularity.TopTags,
		"POPULARITY_TOP_CREATORS":   c.Popularity.TopCreators,
	}
	for name, v := range limits {
		if v < 0 {
			return fmt.Errorf("%s must be non-negative (0 = default)", name)
		}
	}
	return nil
}

func (c *Config) validateSnapshot() error {
	if c.Snapshot.Dir == "" {
		return fmt.Errorf("SNAPSHOT_DIR is required")
	}
	if c.Snapshot.Name == "" {
		return fmt.Errorf("SNAPSHOT_NAME is required")
	}
	if strings.ContainsAny(c.Snapshot.Name, `/\`) {
		return fmt.Errorf("SNAPSHOT_NAME must be a bare file name, got %q", c.Snapshot.Name)
	}
	if c.Snapshot.KeepVersions < 0 {
		return fmt.Errorf("SNAPSHOT_KEEP_VERSIONS must be non-negative (0 = no history)")
	}
	return nil
}

func (c *Config) validateLedger() error {
	if !c.Ledger.InMemory && c.Ledger.Dir == "" {
		return fmt.Errorf("LEDGER_DIR is required unless LEDGER_IN_MEMORY=true")
	}
	if c.Ledger.KeepRuns < 0 {
		return fmt.Errorf("LEDGER_KEEP_RUNS must be non-negative (0 = keep all)")
	}
	return nil
}

// validateNotify validates notification configuration (only if enabled)
func (c *Config) validateNotify() error {
	if !c.Notify.Enabled {
		return nil
	}

	if c.Notify.Topic == "" {
		return fmt.Errorf("NOTIFY_TOPIC is required when NOTIFY_ENABLED=true")
	}
	if c.Notify.Timeout <= 0 {
		return fmt.Errorf("NOTIFY_TIMEOUT must be positive")
	}

	switch c.Notify.Driver {
	case DriverChannel:
		return nil
	case DriverNATS:
		if c.Notify.URL == "" {
			return fmt.Errorf("NATS_URL is required when NOTIFY_DRIVER=nats")
		}
		if err := validateNATSURL(c.Notify.URL); err != nil {
			return err
		}
		return nil
	default:
		return fmt.Errorf("NOTIFY_DRIVER must be one of: %s, %s (got %q)", DriverNATS, DriverChannel, c.Notify.Driver)
	}
}

func (c *Config) validateBreaker() error {
	if !c.Breaker.Enabled {
		return nil
	}
	if c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1 {
		return fmt.Errorf("BREAKER_FAILURE_RATIO must be in (0, 1], got %v", c.Breaker.FailureRatio)
	}
	if c.Breaker.Timeout <= 0 {
		return fmt.Errorf("BREAKER_TIMEOUT must be positive")
	}
	if c.Breaker.Interval < 0 {
		return fmt.Errorf("BREAKER_INTERVAL must be non-negative")
	}
	return nil
}

// validateSchedule validates the trigger (only in schedule mode)
func (c *Config) validateSchedule() error {
	if c.Run.Mode != ModeSchedule {
		return nil
	}

	if c.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			return fmt.Errorf("SCHEDULE_CRON is invalid: %w", err)
		}
	} else if c.Schedule.Interval <= 0 {
		return fmt.Errorf("SCHEDULE_INTERVAL must be positive when SCHEDULE_CRON is empty")
	}

	if c.Schedule.RunTimeout <= 0 {
		return fmt.Errorf("SCHEDULE_RUN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Run.Mode != ModeSchedule {
		return nil
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if c.Metrics.PushURL == "" {
		return nil
	}
	if err := validateHTTPURL(c.Metrics.PushURL, "METRICS_PUSH_URL"); err != nil {
		return err
	}
	if c.Metrics.Job == "" {
		return fmt.Errorf("METRICS_JOB is required when METRICS_PUSH_URL is set")
	}
	return nil
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if !validLogFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
