// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package recommend

import (
	"fmt"
	"time"

	"github.com/tomtom215/palette/internal/config"
	"github.com/tomtom215/palette/internal/recommend/features"
	"github.com/tomtom215/palette/internal/recommend/popularity"
)

// Config contains all configuration for a pipeline run.
type Config struct {
	// ReadTimeout bounds the whole read phase (catalog plus both event windows).
	ReadTimeout time.Duration `json:"read_timeout"`

	// ApprovalWindow is the number of most recent approvals read.
	ApprovalWindow int `json:"approval_window"`

	// BehaviorWindow is the number of most recent behavior events read.
	BehaviorWindow int `json:"behavior_window"`

	// MaxCatalogSize fails runs whose catalog exceeds it. 0 means unlimited.
	MaxCatalogSize int `json:"max_catalog_size"`

	// ReferenceTags fixes the tag vector layout.
	ReferenceTags []string `json:"reference_tags"`

	// NormalizePopularity scales popularity scores into [0,1].
	NormalizePopularity bool `json:"normalize_popularity"`

	// Popularity sets the ranked list lengths. Zero fields use defaults.
	Popularity popularity.Limits `json:"popularity"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ReadTimeout:         2 * time.Minute,
		ApprovalWindow:      10000,
		BehaviorWindow:      10000,
		MaxCatalogSize:      0,
		ReferenceTags:       append([]string(nil), features.DefaultReferenceTags...),
		NormalizePopularity: false,
		Popularity: popularity.Limits{
			Categories: popularity.DefaultTopCategories,
			Styles:     popularity.DefaultTopStyles,
			Tags:       popularity.DefaultTopTags,
			Creators:   popularity.DefaultTopCreators,
		},
	}
}

// ConfigFrom maps the loaded application configuration onto a pipeline Config.
func ConfigFrom(cfg *config.Config) *Config {
	return &Config{
		ReadTimeout:         cfg.Pipeline.ReadTimeout,
		ApprovalWindow:      cfg.Pipeline.ApprovalWindow,
		BehaviorWindow:      cfg.Pipeline.BehaviorWindow,
		MaxCatalogSize:      cfg.Pipeline.MaxCatalogSize,
		ReferenceTags:       append([]string(nil), cfg.Features.ReferenceTags...),
		NormalizePopularity: cfg.Features.NormalizePopularity,
		Popularity: popularity.Limits{
			Categories: cfg.Popularity.TopCategories,
			Styles:     cfg.Popularity.TopStyles,
			Tags:       cfg.Popularity.TopTags,
			Creators:   cfg.Popularity.TopCreators,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive, got %v", c.ReadTimeout)
	}
	if c.ApprovalWindow < 1 {
		return fmt.Errorf("approval_window must be positive, got %d", c.ApprovalWindow)
	}
	if c.BehaviorWindow < 1 {
		return fmt.Errorf("behavior_window must be positive, got %d", c.BehaviorWindow)
	}
	if c.MaxCatalogSize < 0 {
		return fmt.Errorf("max_catalog_size must be non-negative, got %d", c.MaxCatalogSize)
	}
	if len(c.ReferenceTags) == 0 {
		return fmt.Errorf("reference_tags must not be empty")
	}
	if c.Popularity.Categories < 0 || c.Popularity.Styles < 0 ||
		c.Popularity.Tags < 0 || c.Popularity.Creators < 0 {
		return fmt.Errorf("popularity limits must be non-negative, got %+v", c.Popularity)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.ReferenceTags = append([]string(nil), c.ReferenceTags...)
	return &clone
}
