// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

// Package preference folds approval histories into per-user preference profiles.
package preference

import (
	"context"

	"github.com/tomtom215/palette/internal/catalog"
)

// Result holds the profiles built in one aggregation pass.
type Result struct {
	// Profiles is keyed by user id. Users without a positive approval are absent.
	Profiles map[string]*catalog.UserPreferenceProfile

	// Positive is the number of positive approvals folded into profiles.
	Positive int

	// Orphaned counts positive approvals whose item is not in the catalog.
	Orphaned int

	// Duplicates counts repeated positive approvals of an already liked item.
	Duplicates int
}

// Aggregate builds a profile for every user with at least one positive
// approval. Approvals are processed in slice order, which is the order the
// interaction log returned them in; the liked list keeps that order.
// Counts are raw, never normalized.
//
//nolint:gocritic // rangeValCopy: ApprovalEvent is small enough to copy
func Aggregate(ctx context.Context, approvals []catalog.ApprovalEvent, items map[string]catalog.Item) (*Result, error) {
	res := &Result{Profiles: make(map[string]*catalog.UserPreferenceProfile)}
	liked := make(map[string]map[string]struct{})

	for i, ev := range approvals {
		if i%1024 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !ev.Approved {
			continue
		}

		item, ok := items[ev.ItemID]
		if !ok {
			res.Orphaned++
			continue
		}

		seen, ok := liked[ev.UserID]
		if !ok {
			seen = make(map[string]struct{})
			liked[ev.UserID] = seen
		}
		if _, dup := seen[ev.ItemID]; dup {
			res.Duplicates++
			continue
		}
		seen[ev.ItemID] = struct{}{}

		prof, ok := res.Profiles[ev.UserID]
		if !ok {
			prof = catalog.NewUserPreferenceProfile(ev.UserID)
			res.Profiles[ev.UserID] = prof
		}
		fold(prof, &item)
		res.Positive++
	}

	return res, nil
}

// fold adds one liked item to a profile.
func fold(prof *catalog.UserPreferenceProfile, item *catalog.Item) {
	prof.LikedItems = append(prof.LikedItems, item.ID)

	if item.Category != "" {
		prof.Categories[string(item.Category)]++
	}
	if item.Style != "" {
		prof.Styles[item.Style]++
	}
	for _, tag := range item.Tags {
		prof.Tags[tag]++
	}
	prof.Creators[item.CreatorID]++
}
