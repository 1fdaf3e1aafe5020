// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func setupTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() {
		if err := l.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return l
}

func record(id string, started time.Time, status string) RunRecord {
	return RunRecord{
		RunID:      id,
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		Status:     status,
		Stage:      "write",
		Items:      3,
		DurationMS: 1000,
	}
}

func TestLedger_RecordAndLatest(t *testing.T) {
	l := setupTestLedger(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, err := l.Latest(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Latest() on empty ledger error = %v, want ErrNotFound", err)
	}

	// Recorded out of order; ordering follows StartedAt.
	for _, rec := range []RunRecord{
		record("b", base.Add(2*time.Hour), StatusFailed),
		record("a", base, StatusSuccess),
		record("c", base.Add(time.Hour), StatusSuccess),
	} {
		if err := l.Record(ctx, rec); err != nil {
			t.Fatalf("Record(%s) error = %v", rec.RunID, err)
		}
	}

	latest, err := l.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest.RunID != "b" {
		t.Errorf("Latest().RunID = %q, want b", latest.RunID)
	}
	if latest.Items != 3 || latest.DurationMS != 1000 {
		t.Errorf("Latest() = %+v, counts not round-tripped", latest)
	}

	success, err := l.LatestSuccess(ctx)
	if err != nil {
		t.Fatalf("LatestSuccess() error = %v", err)
	}
	if success.RunID != "c" {
		t.Errorf("LatestSuccess().RunID = %q, want c", success.RunID)
	}
}

func TestLedger_Get(t *testing.T) {
	l := setupTestLedger(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b"} {
		if err := l.Record(ctx, record(id, base.Add(time.Duration(i)*time.Minute), StatusSuccess)); err != nil {
			t.Fatal(err)
		}
	}

	got, err := l.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get(a) error = %v", err)
	}
	if !got.StartedAt.Equal(base) {
		t.Errorf("Get(a).StartedAt = %v, want %v", got.StartedAt, base)
	}
	if _, err := l.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestLedger_LatestSuccessNone(t *testing.T) {
	l := setupTestLedger(t)
	ctx := context.Background()

	if err := l.Record(ctx, record("x", time.Now(), StatusFailed)); err != nil {
		t.Fatal(err)
	}
	if _, err := l.LatestSuccess(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("LatestSuccess() error = %v, want ErrNotFound", err)
	}
}

func TestLedger_RecordValidation(t *testing.T) {
	l := setupTestLedger(t)
	ctx := context.Background()

	tests := []struct {
		name string
		rec  RunRecord
	}{
		{"missing run id", RunRecord{StartedAt: time.Now()}},
		{"missing started_at", RunRecord{RunID: "r1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := l.Record(ctx, tt.rec); err == nil {
				t.Error("Record() error = nil, want error")
			}
		})
	}
}

func TestLedger_ListAndPrune(t *testing.T) {
	l := setupTestLedger(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 6; i++ {
		rec := record(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Minute), StatusSuccess)
		if err := l.Record(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	all, err := l.List(ctx, 0)
	if err != nil {
		t.Fatalf("List(0) error = %v", err)
	}
	if len(all) != 6 {
		t.Fatalf("List(0) returned %d records, want 6", len(all))
	}
	if all[0].RunID != "run-5" || all[5].RunID != "run-0" {
		t.Errorf("List order = %s..%s, want run-5..run-0", all[0].RunID, all[5].RunID)
	}

	limited, err := l.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 || limited[1].RunID != "run-4" {
		t.Errorf("List(2) = %v, want run-5, run-4", limited)
	}

	removed, err := l.Prune(ctx, 4)
	if err != nil {
		t.Fatalf("Prune(4) error = %v", err)
	}
	if removed != 2 {
		t.Errorf("Prune(4) removed %d, want 2", removed)
	}

	rest, err := l.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 4 || rest[3].RunID != "run-2" {
		t.Errorf("after prune: %d records, oldest %q; want 4, run-2", len(rest), rest[len(rest)-1].RunID)
	}

	if removed, err := l.Prune(ctx, 0); err != nil || removed != 0 {
		t.Errorf("Prune(0) = %d, %v; want 0, nil", removed, err)
	}
}

func TestLedger_EmptyList(t *testing.T) {
	l := setupTestLedger(t)
	runs, err := l.List(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if runs == nil || len(runs) != 0 {
		t.Errorf("List() = %v, want empty non-nil slice", runs)
	}
}

func TestLedger_OnDiskLock(t *testing.T) {
	dir := t.TempDir()

	first, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer first.Close()

	if second, err := Open(dir); err == nil {
		second.Close()
		t.Fatal("second Open() on same dir succeeded, want lock error")
	}
}

func TestLedger_CanceledContext(t *testing.T) {
	l := setupTestLedger(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := l.Record(ctx, record("r", time.Now(), StatusSuccess)); !errors.Is(err, context.Canceled) {
		t.Errorf("Record() error = %v, want context.Canceled", err)
	}
}
