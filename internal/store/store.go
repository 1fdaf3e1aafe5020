// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package store

import (
	"context"
	"errors"
	"strings"

	"github.com/tomtom215/palette/internal/catalog"
)

// ErrMalformedRecord marks a record that could not be decoded or failed validation.
var ErrMalformedRecord = errors.New("malformed record")

// ContentStore fetches the published catalog.
type ContentStore interface {
	// ListPublishedItems returns every public item.
	ListPublishedItems(ctx context.Context) ([]catalog.Item, error)
}

// InteractionLog fetches bounded windows of user events.
type InteractionLog interface {
	// RecentApprovals returns the most recent limit approvals, oldest first.
	RecentApprovals(ctx context.Context, limit int) ([]catalog.ApprovalEvent, error)

	// RecentBehaviors returns the most recent limit behavior events, oldest first.
	RecentBehaviors(ctx context.Context, limit int) ([]catalog.BehaviorEvent, error)
}

// Reader is a store that serves both the catalog and the interaction log.
type Reader interface {
	ContentStore
	InteractionLog
}

// splitTags parses the comma-separated tag column. Empty segments are
// dropped; every other segment is kept byte for byte because tag matching
// is exact.
func splitTags(s string) []string {
	if s == "" {
		return []string{}
	}

	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// joinTags is the inverse of splitTags.
func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}
