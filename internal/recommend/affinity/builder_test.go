// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package affinity

import (
	"testing"

	"github.com/tomtom215/palette/internal/catalog"
)

func TestBuild(t *testing.T) {
	approvals := []catalog.ApprovalEvent{
		{UserID: "u1", ItemID: "i1", Approved: true},
		{UserID: "u1", ItemID: "i2", Approved: false},
		{UserID: "u2", ItemID: "i1", Approved: true},
		{UserID: "u1", ItemID: "i1", Approved: true},
		{UserID: "u3", ItemID: "i3", Approved: false},
	}

	m := Build(approvals)

	tests := []struct {
		user, item string
		want       float64
		present    bool
	}{
		{"u1", "i1", Positive, true},
		{"u2", "i1", Positive, true},
		{"u1", "i2", 0, false},
		{"u3", "i3", 0, false},
	}
	for _, tt := range tests {
		v, ok := m[tt.user][tt.item]
		if ok != tt.present || v != tt.want {
			t.Errorf("affinity[%s][%s] = %v, %v; want %v, %v", tt.user, tt.item, v, ok, tt.want, tt.present)
		}
	}

	if _, ok := m["u3"]; ok {
		t.Error("user with only negative approvals must have no row")
	}
	if got := Entries(m); got != 2 {
		t.Errorf("Entries() = %d, want 2", got)
	}
}

func TestBuild_Empty(t *testing.T) {
	m := Build(nil)
	if m == nil || len(m) != 0 {
		t.Errorf("Build(nil) = %v, want empty non-nil matrix", m)
	}
}
