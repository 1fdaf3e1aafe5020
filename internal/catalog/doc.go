// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

// Package catalog defines the records and derived structures shared by every
// stage of the feature pipeline.
//
// Raw records (Item, ApprovalEvent, BehaviorEvent) come from the content
// store and the interaction log. Derived structures (FeatureVector,
// UserPreferenceProfile, SimilarityMatrix, AffinityMatrix, GlobalStats) are
// computed fresh every run and only leave the process inside a snapshot.
package catalog
