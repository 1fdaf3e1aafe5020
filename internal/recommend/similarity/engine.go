// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

// Package similarity computes pairwise content similarity between catalog items.
//
// The similarity between two items is a weighted sum of three channels:
//
//	sim(a, b) = (w_cat * [cat_a == cat_b] +
//	             w_style * [style_a != "" && style_a == style_b] +
//	             w_tag * |tags_a ∩ tags_b| / max(|tags_a|, |tags_b|, 1)) / W
//
// where W is the sum of channel weights counted towards the denominator.
package similarity

import (
	"context"

	"github.com/tomtom215/palette/internal/catalog"
)

// Channel weights.
const (
	CategoryWeight = 0.3
	StyleWeight    = 0.3
	TagWeight      = 0.4
)

// countInapplicableChannels keeps a channel's weight in the denominator even
// when the channel does not match, so W is always 1.0 and the division is a
// no-op. Snapshot consumers expect this scale. Setting it to false
// renormalizes over matching channels only.
const countInapplicableChannels = true

// Similarity returns the content similarity of two items in [0,1].
func Similarity(a, b *catalog.Item) float64 {
	return similarity(a, tagSet(a.Tags), b, tagSet(b.Tags))
}

func similarity(a *catalog.Item, aTags map[string]struct{}, b *catalog.Item, bTags map[string]struct{}) float64 {
	var score, total float64

	if a.Category == b.Category {
		score += CategoryWeight
		total += CategoryWeight
	} else if countInapplicableChannels {
		total += CategoryWeight
	}

	if a.Style != "" && a.Style == b.Style {
		score += StyleWeight
		total += StyleWeight
	} else if countInapplicableChannels {
		total += StyleWeight
	}

	overlap := tagOverlap(aTags, bTags)
	if overlap > 0 {
		score += TagWeight * overlap
		total += TagWeight
	} else if countInapplicableChannels {
		total += TagWeight
	}

	if total == 0 {
		return 0
	}
	return score / total
}

// tagOverlap returns |A∩B| / max(|A|, |B|, 1).
func tagOverlap(a, b map[string]struct{}) float64 {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}

	shared := 0
	for tag := range small {
		if _, ok := large[tag]; ok {
			shared++
		}
	}

	denom := len(large)
	if denom < 1 {
		denom = 1
	}
	return float64(shared) / float64(denom)
}

// tagSet de-duplicates a tag list.
func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return set
}

// BuildMatrix computes similarity for every ordered pair of distinct items.
// Both directions are computed independently and self-pairs are excluded,
// so an n-item catalog yields n*(n-1) entries. Item IDs must be unique.
// The context is checked once per row.
func BuildMatrix(ctx context.Context, items []catalog.Item) (catalog.SimilarityMatrix, error) {
	matrix := make(catalog.SimilarityMatrix, len(items))

	sets := make([]map[string]struct{}, len(items))
	for i := range items {
		sets[i] = tagSet(items[i].Tags)
	}

	for i := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		a := &items[i]
		row, ok := matrix[a.ID]
		if !ok {
			row = make(map[string]float64, len(items)-1)
			matrix[a.ID] = row
		}

		for j := range items {
			b := &items[j]
			if a.ID == b.ID {
				continue
			}
			row[b.ID] = similarity(a, sets[i], b, sets[j])
		}
	}

	return matrix, nil
}
