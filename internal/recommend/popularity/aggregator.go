// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

// Package popularity computes ranked global statistics over the catalog.
package popularity

import (
	"sort"

	"github.com/tomtom215/palette/internal/catalog"
)

// Default list lengths.
const (
	DefaultTopCategories = 5
	DefaultTopStyles     = 5
	DefaultTopTags       = 10
	DefaultTopCreators   = 10
)

// Limits bounds each ranked list. Zero values take the defaults.
type Limits struct {
	Categories int
	Styles     int
	Tags       int
	Creators   int
}

func (l Limits) withDefaults() Limits {
	if l.Categories <= 0 {
		l.Categories = DefaultTopCategories
	}
	if l.Styles <= 0 {
		l.Styles = DefaultTopStyles
	}
	if l.Tags <= 0 {
		l.Tags = DefaultTopTags
	}
	if l.Creators <= 0 {
		l.Creators = DefaultTopCreators
	}
	return l
}

// Aggregate tallies categories, styles, tags and creators across the whole
// catalog. Every list is sorted by count descending with ties broken by key
// ascending, so output does not depend on input order.
func Aggregate(items []catalog.Item, limits Limits) catalog.GlobalStats {
	limits = limits.withDefaults()

	categories := make(map[string]int)
	styles := make(map[string]int)
	tags := make(map[string]int)
	creators := make(map[string]*catalog.CreatorTotal)

	for i := range items {
		it := &items[i]

		if it.Category != "" {
			categories[string(it.Category)]++
		}
		if it.Style != "" {
			styles[it.Style]++
		}
		for _, tag := range it.Tags {
			tags[tag]++
		}

		ct, ok := creators[it.CreatorID]
		if !ok {
			ct = &catalog.CreatorTotal{CreatorID: it.CreatorID}
			creators[it.CreatorID] = ct
		}
		ct.ItemCount++
		ct.TotalEngagement += it.EngagementCount
	}

	return catalog.GlobalStats{
		TopCategories: rank(categories, limits.Categories),
		TopStyles:     rank(styles, limits.Styles),
		TopTags:       rank(tags, limits.Tags),
		TopCreators:   rankCreators(creators, limits.Creators),
	}
}

// rank sorts a tally and keeps the first k entries.
func rank(counts map[string]int, k int) []catalog.RankedCount {
	out := make([]catalog.RankedCount, 0, len(counts))
	for key, n := range counts {
		out = append(out, catalog.RankedCount{Key: key, Count: n})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})

	if len(out) > k {
		out = out[:k]
	}
	return out
}

// rankCreators orders creators by item count, then total engagement, then id.
func rankCreators(totals map[string]*catalog.CreatorTotal, k int) []catalog.CreatorTotal {
	out := make([]catalog.CreatorTotal, 0, len(totals))
	for _, ct := range totals {
		out = append(out, *ct)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ItemCount != out[j].ItemCount {
			return out[i].ItemCount > out[j].ItemCount
		}
		if out[i].TotalEngagement != out[j].TotalEngagement {
			return out[i].TotalEngagement > out[j].TotalEngagement
		}
		return out[i].CreatorID < out[j].CreatorID
	})

	if len(out) > k {
		out = out[:k]
	}
	return out
}
