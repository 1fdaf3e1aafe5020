// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package notify

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// DefaultTopic is the subject snapshot events are published on.
const DefaultTopic = "recommend.snapshot.published"

// SnapshotPublished announces that a new snapshot is durable on disk.
type SnapshotPublished struct {
	EventID     string    `json:"event_id"`
	RunID       string    `json:"run_id"`
	Version     int       `json:"version"`
	Path        string    `json:"path"`
	Checksum    string    `json:"checksum"`
	GeneratedAt time.Time `json:"generated_at"`
	PublishedAt time.Time `json:"published_at"`

	ItemCount int   `json:"item_count"`
	UserCount int   `json:"user_count"`
	PairCount int   `json:"pair_count"`
	SizeBytes int64 `json:"size_bytes"`
}

// Encode serializes the event for the wire.
//
//nolint:gocritic // hugeParam: value receiver keeps the event immutable
func (e SnapshotPublished) Encode() ([]byte, error) {
	data, err := json.Marshal(&e)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot event: %w", err)
	}
	return data, nil
}

// DecodeSnapshotPublished parses an event payload.
func DecodeSnapshotPublished(data []byte) (*SnapshotPublished, error) {
	var e SnapshotPublished
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot event: %w", err)
	}
	return &e, nil
}
