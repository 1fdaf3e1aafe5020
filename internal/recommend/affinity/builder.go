// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

// Package affinity builds the sparse user-item affinity matrix used as
// collaborative-filtering input.
package affinity

import (
	"github.com/tomtom215/palette/internal/catalog"
)

// Positive is the affinity value recorded for every positive approval.
const Positive = 1.0

// Build sets affinity[user][item] = 1.0 for every positive approval.
// Negative approvals never produce an entry; absence means no signal.
//
//nolint:gocritic // rangeValCopy: ApprovalEvent is small enough to copy
func Build(approvals []catalog.ApprovalEvent) catalog.AffinityMatrix {
	m := make(catalog.AffinityMatrix)
	for _, ev := range approvals {
		if !ev.Approved {
			continue
		}
		row, ok := m[ev.UserID]
		if !ok {
			row = make(map[string]float64)
			m[ev.UserID] = row
		}
		row[ev.ItemID] = Positive
	}
	return m
}

// Entries returns the number of (user, item) pairs in m.
func Entries(m catalog.AffinityMatrix) int {
	n := 0
	for _, row := range m {
		n += len(row)
	}
	return n
}
