// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

// Package features converts raw item attributes into fixed-length feature vectors.
//
// Extraction is total: unknown categories and styles degrade to a neutral
// score of 0.5 instead of failing, so every valid item yields a vector.
package features

import (
	"strings"
	"time"

	"github.com/tomtom215/palette/internal/catalog"
)

// NeutralScore is assigned to categories and styles missing from the tables.
const NeutralScore = 0.5

// recencyHorizonDays is the age at which the recency score reaches zero.
const recencyHorizonDays = 365.0

// categoryWeights holds the hand-assigned weight of every closed-set category.
var categoryWeights = map[catalog.Category]float64{
	catalog.CategoryCharacterDesign: 1.0,
	catalog.CategoryLive2DModel:     0.9,
	catalog.CategoryIllustration:    0.8,
	catalog.CategoryEmote:           0.6,
	catalog.CategoryOverlay:         0.5,
	catalog.CategoryThumbnail:       0.4,
	catalog.CategoryBanner:          0.4,
	catalog.CategoryLogo:            0.3,
}

// styleWeights is keyed by exact style label.
var styleWeights = map[string]float64{
	"anime":          0.9,
	"semi_realistic": 0.8,
	"realistic":      0.7,
	"chibi":          0.7,
	"cel_shaded":     0.6,
	"watercolor":     0.6,
	"pixel":          0.5,
	"sketch":         0.3,
}

// DefaultReferenceTags is the canonical tag list used when none is configured.
// Order matters: an item tag maps to the first entry it contains.
var DefaultReferenceTags = []string{
	"anime",
	"cute",
	"cool",
	"fantasy",
	"horror",
	"cyber",
	"kemonomimi",
	"mecha",
	"idol",
	"gothic",
	"pastel",
	"retro",
}

// CategoryScore returns the table weight for c, or NeutralScore when c is
// empty or not one of the known categories.
func CategoryScore(c catalog.Category) float64 {
	if w, ok := categoryWeights[c]; ok {
		return w
	}
	return NeutralScore
}

// StyleScore returns the table weight for an exact style label, or
// NeutralScore when the style is absent or unmatched.
func StyleScore(style string) float64 {
	if style == "" {
		return NeutralScore
	}
	if w, ok := styleWeights[style]; ok {
		return w
	}
	return NeutralScore
}

// Config configures an Extractor.
type Config struct {
	// ReferenceTags fixes the tag vector layout. Default: DefaultReferenceTags.
	ReferenceTags []string

	// NormalizePopularity scales engagement into [0,1] by the catalog maximum.
	// Default: false (raw engagement count).
	NormalizePopularity bool

	// Now supplies the extraction clock. Default: time.Now.
	Now func() time.Time
}

// Extractor computes feature vectors.
type Extractor struct {
	referenceTags       []string
	normalizePopularity bool
	now                 func() time.Time
}

// NewExtractor creates an extractor, applying defaults for zero values.
func NewExtractor(cfg Config) *Extractor {
	tags := cfg.ReferenceTags
	if len(tags) == 0 {
		tags = DefaultReferenceTags
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Extractor{
		referenceTags:       append([]string(nil), tags...),
		normalizePopularity: cfg.NormalizePopularity,
		now:                 now,
	}
}

// ReferenceTags returns a copy of the tag vector layout.
func (e *Extractor) ReferenceTags() []string {
	return append([]string(nil), e.referenceTags...)
}

// NormalizesPopularity reports whether popularity scores are scaled to [0,1].
func (e *Extractor) NormalizesPopularity() bool {
	return e.normalizePopularity
}

// Extract computes the feature vector of a single item at the current clock.
// Popularity is always the raw engagement count here; ExtractAll applies
// catalog-wide normalization when enabled.
//
//nolint:gocritic // hugeParam: Item is passed by value to keep Extract pure
func (e *Extractor) Extract(item catalog.Item) catalog.FeatureVector {
	return e.extractAt(item, e.now())
}

// ExtractAll extracts every item against a single clock reading, keeping
// input order. Nil tag slices come back empty so they encode as [].
func (e *Extractor) ExtractAll(items []catalog.Item) []catalog.ItemFeatures {
	now := e.now()

	var maxEngagement int64
	if e.normalizePopularity {
		for i := range items {
			if items[i].EngagementCount > maxEngagement {
				maxEngagement = items[i].EngagementCount
			}
		}
	}

	out := make([]catalog.ItemFeatures, len(items))
	for i := range items {
		fv := e.extractAt(items[i], now)
		if e.normalizePopularity {
			fv.PopularityScore = normalize(items[i].EngagementCount, maxEngagement)
		}
		item := items[i]
		if item.Tags == nil {
			item.Tags = []string{}
		}
		out[i] = catalog.ItemFeatures{Item: item, Features: fv}
	}
	return out
}

//nolint:gocritic // hugeParam: see Extract
func (e *Extractor) extractAt(item catalog.Item, now time.Time) catalog.FeatureVector {
	return catalog.FeatureVector{
		CategoryScore:   CategoryScore(item.Category),
		StyleScore:      StyleScore(item.Style),
		TagVector:       TagVector(item.Tags, e.referenceTags),
		PopularityScore: float64(item.EngagementCount),
		RecencyScore:    RecencyScore(item.CreatedAt, now),
	}
}

// TagVector returns a vector with one slot per reference tag. For each item
// tag, the first reference tag that the item tag contains as a substring
// (case-sensitive) is set to 1.0. Tags matching nothing contribute nothing.
func TagVector(tags, reference []string) []float64 {
	vec := make([]float64, len(reference))
	for _, tag := range tags {
		for i, ref := range reference {
			if strings.Contains(tag, ref) {
				vec[i] = 1.0
				break
			}
		}
	}
	return vec
}

// RecencyScore decays linearly from 1.0 at creation to 0.0 at one year of age.
// Items dated in the future score 1.0.
func RecencyScore(createdAt, now time.Time) float64 {
	ageDays := now.Sub(createdAt).Hours() / 24
	score := 1 - ageDays/recencyHorizonDays
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func normalize(count, maxCount int64) float64 {
	if maxCount <= 0 {
		return 0
	}
	return float64(count) / float64(maxCount)
}
