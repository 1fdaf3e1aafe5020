// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package recommend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/palette/internal/catalog"
	"github.com/tomtom215/palette/internal/ledger"
	"github.com/tomtom215/palette/internal/notify"
	"github.com/tomtom215/palette/internal/recommend/storage"
	"github.com/tomtom215/palette/internal/store"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// fakeStore serves canned records. When block is non-nil, ListPublishedItems
// signals entered and waits for block to close or ctx to end.
type fakeStore struct {
	items     []catalog.Item
	approvals []catalog.ApprovalEvent
	behaviors []catalog.BehaviorEvent

	itemsErr     error
	approvalsErr error
	behaviorsErr error

	entered chan struct{}
	block   chan struct{}

	approvalLimit int
	behaviorLimit int
}

func (f *fakeStore) ListPublishedItems(ctx context.Context) ([]catalog.Item, error) {
	if f.block != nil {
		if f.entered != nil {
			close(f.entered)
		}
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.itemsErr != nil {
		return nil, f.itemsErr
	}
	return append([]catalog.Item(nil), f.items...), nil
}

func (f *fakeStore) RecentApprovals(_ context.Context, limit int) ([]catalog.ApprovalEvent, error) {
	f.approvalLimit = limit
	if f.approvalsErr != nil {
		return nil, f.approvalsErr
	}
	return append([]catalog.ApprovalEvent(nil), f.approvals...), nil
}

func (f *fakeStore) RecentBehaviors(_ context.Context, limit int) ([]catalog.BehaviorEvent, error) {
	f.behaviorLimit = limit
	if f.behaviorsErr != nil {
		return nil, f.behaviorsErr
	}
	return append([]catalog.BehaviorEvent(nil), f.behaviors...), nil
}

// fakeWriter returns a canned outcome instead of touching disk.
type fakeWriter struct {
	loc    storage.Location
	err    error
	writes int
}

func (w *fakeWriter) Write(_ context.Context, snap *storage.Snapshot) (storage.Location, error) {
	w.writes++
	snap.Metadata.Checksum = "fake"
	return w.loc, w.err
}

func testItem(id string, cat catalog.Category, style string, tags ...string) catalog.Item {
	if tags == nil {
		tags = []string{}
	}
	return catalog.Item{
		ID:              id,
		Title:           "Item " + id,
		Category:        cat,
		Style:           style,
		Tags:            tags,
		CreatorID:       "creator-" + id,
		Public:          true,
		EngagementCount: 10,
		CreatedAt:       fixedNow.Add(-24 * time.Hour),
	}
}

func approval(user, item string, approved bool) catalog.ApprovalEvent {
	return catalog.ApprovalEvent{UserID: user, ItemID: item, Approved: approved, CreatedAt: fixedNow}
}

func sampleStore() *fakeStore {
	return &fakeStore{
		items: []catalog.Item{
			testItem("1", "A", "S1", "x", "y"),
			testItem("2", "A", "S1", "x", "z"),
			testItem("3", "B", "", "q"),
		},
		approvals: []catalog.ApprovalEvent{
			approval("u1", "1", true),
			approval("u1", "2", true),
			approval("u2", "3", false),
			approval("u3", "9", true), // not in catalog
		},
		behaviors: []catalog.BehaviorEvent{
			{UserID: "u1", ItemID: "3", Action: "view", CreatedAt: fixedNow},
		},
	}
}

type testEnv struct {
	engine    *Engine
	store     *fakeStore
	snapshots *storage.Store
	ledger    *ledger.Ledger
	publisher *notify.ChannelPublisher
}

func newTestEnv(t *testing.T, fs *fakeStore, mutate func(*Config)) *testEnv {
	t.Helper()

	snapshots, err := storage.NewStore(t.TempDir(), storage.DefaultName, 3)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	runs, err := ledger.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { runs.Close() })
	pub := notify.NewChannelPublisher("")
	t.Cleanup(func() { pub.Close() })

	cfg := DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}

	engine, err := NewEngine(cfg, Deps{
		Content:      fs,
		Interactions: fs,
		Snapshots:    snapshots,
		Ledger:       runs,
		Publisher:    pub,
		Clock:        fixedClock,
	}, zerolog.New(io.Discard))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	return &testEnv{engine: engine, store: fs, snapshots: snapshots, ledger: runs, publisher: pub}
}

func TestEngine_EndToEnd(t *testing.T) {
	env := newTestEnv(t, sampleStore(), nil)
	ctx := context.Background()

	subCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	events, err := env.publisher.Subscribe(subCtx)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	res, err := env.engine.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.RunID == "" {
		t.Error("Result.RunID is empty")
	}
	meta := res.Metadata
	if meta.Algorithm != Algorithm {
		t.Errorf("Algorithm = %q, want %q", meta.Algorithm, Algorithm)
	}
	if !meta.GeneratedAt.Equal(fixedNow) {
		t.Errorf("GeneratedAt = %v, want %v", meta.GeneratedAt, fixedNow)
	}
	if meta.ItemCount != 3 || meta.UserCount != 1 || meta.ApprovalCount != 4 ||
		meta.PositiveApprovalCount != 3 || meta.BehaviorCount != 1 || meta.PairCount != 6 {
		t.Errorf("metadata counts = %+v", meta)
	}
	if res.Orphaned != 1 {
		t.Errorf("Orphaned = %d, want 1", res.Orphaned)
	}
	if res.Location.Version != 1 || res.Location.Checksum == "" {
		t.Errorf("Location = %+v, want version 1 with checksum", res.Location)
	}
	if env.store.approvalLimit != 10000 || env.store.behaviorLimit != 10000 {
		t.Errorf("windows = %d/%d, want 10000/10000", env.store.approvalLimit, env.store.behaviorLimit)
	}

	snap, err := env.snapshots.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if v, ok := snap.Data.Similarity.Get("1", "2"); !ok || math.Abs(v-0.8) > 1e-9 {
		t.Errorf("similarity(1,2) = %v, %v; want 0.8", v, ok)
	}
	if _, ok := snap.Data.Similarity.Get("1", "1"); ok {
		t.Error("similarity matrix has a diagonal entry")
	}
	prof, ok := snap.Data.Profiles["u1"]
	if !ok {
		t.Fatal("profile for u1 missing")
	}
	if !reflect.DeepEqual(prof.LikedItems, []string{"1", "2"}) {
		t.Errorf("u1 liked = %v, want [1 2]", prof.LikedItems)
	}
	if prof.Categories["A"] != 2 || prof.Tags["x"] != 2 {
		t.Errorf("u1 profile counts = %+v", prof)
	}
	if _, ok := snap.Data.Profiles["u2"]; ok {
		t.Error("u2 has no likes and must have no profile")
	}
	if snap.Data.Affinity["u1"]["1"] != 1.0 {
		t.Errorf("affinity[u1][1] = %v, want 1.0", snap.Data.Affinity["u1"]["1"])
	}
	if _, ok := snap.Data.Affinity["u2"]; ok {
		t.Error("negative approval produced an affinity entry")
	}
	if len(snap.Data.Items) != 3 || len(snap.Data.Items[0].Features.TagVector) != len(meta.ReferenceTags) {
		t.Errorf("items = %d, tag vector len mismatch", len(snap.Data.Items))
	}
	if got := snap.Data.Stats.TopCategories; len(got) != 2 || got[0].Key != "A" || got[0].Count != 2 {
		t.Errorf("top categories = %+v, want A:2 first", got)
	}

	rec, err := env.ledger.LatestSuccess(ctx)
	if err != nil {
		t.Fatalf("LatestSuccess() error = %v", err)
	}
	if rec.RunID != res.RunID || rec.Checksum != res.Location.Checksum || rec.Stage != StageWrite {
		t.Errorf("ledger record = %+v", rec)
	}
	if rec.Orphaned != 1 || rec.Pairs != 6 || rec.Users != 1 {
		t.Errorf("ledger counts = %+v", rec)
	}

	select {
	case msg := <-events:
		msg.Ack()
		ev, err := notify.DecodeSnapshotPublished(msg.Payload)
		if err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if ev.RunID != res.RunID || ev.Version != 1 || ev.Checksum != res.Location.Checksum {
			t.Errorf("event = %+v", ev)
		}
	case <-subCtx.Done():
		t.Fatal("no snapshot event published")
	}
}

func TestEngine_EmptyCatalog(t *testing.T) {
	env := newTestEnv(t, &fakeStore{}, nil)

	res, err := env.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Metadata.ItemCount != 0 || res.Metadata.PairCount != 0 {
		t.Errorf("metadata = %+v, want zero counts", res.Metadata)
	}

	body, err := os.ReadFile(env.snapshots.Path())
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	for _, want := range []string{
		`"items":[]`,
		`"profiles":{}`,
		`"affinity":{}`,
		`"similarity":{}`,
		`"top_categories":[]`,
		`"top_creators":[]`,
	} {
		if !bytes.Contains(body, []byte(want)) {
			t.Errorf("snapshot missing %s", want)
		}
	}
}

func TestEngine_RerunIsByteIdentical(t *testing.T) {
	env := newTestEnv(t, sampleStore(), nil)
	ctx := context.Background()

	if _, err := env.engine.Run(ctx); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(env.snapshots.Path())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := env.engine.Run(ctx); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(env.snapshots.Path())
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first, second) {
		t.Error("re-run with identical input and clock produced different bytes")
	}
}

func TestEngine_ReadFailureLeavesSnapshot(t *testing.T) {
	fs := sampleStore()
	env := newTestEnv(t, fs, nil)
	ctx := context.Background()

	if _, err := env.engine.Run(ctx); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(env.snapshots.Path())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		setup func(*fakeStore)
	}{
		{"catalog", func(f *fakeStore) { f.itemsErr = errors.New("connection refused") }},
		{"approvals", func(f *fakeStore) { f.approvalsErr = errors.New("connection refused") }},
		{"behaviors", func(f *fakeStore) { f.behaviorsErr = errors.New("connection refused") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs.itemsErr, fs.approvalsErr, fs.behaviorsErr = nil, nil, nil
			tt.setup(fs)

			res, err := env.engine.Run(ctx)
			if err == nil {
				t.Fatalf("Run() = %+v, want error", res)
			}
			var se *StageError
			if !errors.As(err, &se) || se.Stage != StageRead {
				t.Fatalf("Run() error = %v, want StageError at read", err)
			}

			after, err := os.ReadFile(env.snapshots.Path())
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(before, after) {
				t.Error("snapshot changed after failed read")
			}

			rec, err := env.ledger.Latest(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if rec.Status != ledger.StatusFailed || rec.Stage != StageRead || rec.Error == "" {
				t.Errorf("ledger record = %+v, want failed at read", rec)
			}
		})
	}
}

func TestEngine_MalformedRecords(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeStore)
	}{
		{"duplicate item id", func(f *fakeStore) { f.items = append(f.items, testItem("1", "C", "")) }},
		{"item without id", func(f *fakeStore) { f.items[0].ID = "" }},
		{"item without created_at", func(f *fakeStore) { f.items[1].CreatedAt = time.Time{} }},
		{"negative engagement", func(f *fakeStore) { f.items[2].EngagementCount = -1 }},
		{"tag with comma", func(f *fakeStore) { f.items[0].Tags = []string{"a,b"} }},
		{"approval without user", func(f *fakeStore) { f.approvals[0].UserID = "" }},
		{"behavior without action", func(f *fakeStore) { f.behaviors[0].Action = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := sampleStore()
			tt.setup(fs)
			env := newTestEnv(t, fs, nil)

			_, err := env.engine.Run(context.Background())
			if !errors.Is(err, store.ErrMalformedRecord) {
				t.Fatalf("Run() error = %v, want ErrMalformedRecord", err)
			}
			if got := FailedStage(err); got != StageValidate {
				t.Errorf("FailedStage() = %q, want %q", got, StageValidate)
			}
			if _, err := os.Stat(env.snapshots.Path()); !os.IsNotExist(err) {
				t.Errorf("snapshot exists after malformed input (stat err = %v)", err)
			}
		})
	}
}

func TestEngine_CatalogTooLarge(t *testing.T) {
	env := newTestEnv(t, sampleStore(), func(c *Config) { c.MaxCatalogSize = 2 })

	_, err := env.engine.Run(context.Background())
	if !errors.Is(err, ErrCatalogTooLarge) {
		t.Fatalf("Run() error = %v, want ErrCatalogTooLarge", err)
	}
	var se *StageError
	if !errors.As(err, &se) || se.Items != 3 {
		t.Errorf("StageError = %+v, want Items=3", se)
	}
}

func TestEngine_ReadTimeout(t *testing.T) {
	fs := sampleStore()
	fs.block = make(chan struct{})
	defer close(fs.block)
	env := newTestEnv(t, fs, func(c *Config) { c.ReadTimeout = 50 * time.Millisecond })

	_, err := env.engine.Run(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v, want DeadlineExceeded", err)
	}
	if got := FailedStage(err); got != StageRead {
		t.Errorf("FailedStage() = %q, want read", got)
	}
}

func TestEngine_RejectsOverlappingRun(t *testing.T) {
	fs := sampleStore()
	fs.entered = make(chan struct{})
	fs.block = make(chan struct{})
	env := newTestEnv(t, fs, nil)

	done := make(chan error, 1)
	go func() {
		_, err := env.engine.Run(context.Background())
		done <- err
	}()

	<-fs.entered
	if _, err := env.engine.Run(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("overlapping Run() error = %v, want ErrRunInProgress", err)
	}

	close(fs.block)
	if err := <-done; err != nil {
		t.Errorf("first Run() error = %v", err)
	}
}

func TestEngine_ArchiveFailureIsNotFatal(t *testing.T) {
	fs := sampleStore()
	writer := &fakeWriter{
		loc: storage.Location{Path: "/tmp/features.json", Checksum: "fake", SizeBytes: 10},
		err: fmt.Errorf("%w: disk full", storage.ErrArchive),
	}
	engine, err := NewEngine(DefaultConfig(), Deps{
		Content: fs, Interactions: fs, Snapshots: writer, Clock: fixedClock,
	}, zerolog.New(io.Discard))
	if err != nil {
		t.Fatal(err)
	}

	res, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}
	if !errors.Is(res.ArchiveErr, storage.ErrArchive) {
		t.Errorf("ArchiveErr = %v, want ErrArchive", res.ArchiveErr)
	}
	if res.Location.Path != "/tmp/features.json" {
		t.Errorf("Location = %+v", res.Location)
	}
}

func TestEngine_WriteFailure(t *testing.T) {
	fs := sampleStore()
	writer := &fakeWriter{err: errors.New("permission denied")}
	engine, err := NewEngine(DefaultConfig(), Deps{
		Content: fs, Interactions: fs, Snapshots: writer, Clock: fixedClock,
	}, zerolog.New(io.Discard))
	if err != nil {
		t.Fatal(err)
	}

	_, err = engine.Run(context.Background())
	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("Run() error = %v, want StageError", err)
	}
	if se.Stage != StageWrite || se.Items != 3 || se.Approvals != 4 || se.Behaviors != 1 {
		t.Errorf("StageError = %+v", se)
	}
	if writer.writes != 1 {
		t.Errorf("writes = %d, want 1 (no retry)", writer.writes)
	}
}

func TestNewEngine_Validation(t *testing.T) {
	fs := &fakeStore{}
	writer := &fakeWriter{}
	logger := zerolog.New(io.Discard)

	tests := []struct {
		name    string
		cfg     *Config
		deps    Deps
		wantErr string
	}{
		{"nil config uses defaults", nil, Deps{Content: fs, Interactions: fs, Snapshots: writer}, ""},
		{"invalid config", &Config{}, Deps{Content: fs, Interactions: fs, Snapshots: writer}, "invalid config"},
		{"missing content", nil, Deps{Interactions: fs, Snapshots: writer}, "content store"},
		{"missing interactions", nil, Deps{Content: fs, Snapshots: writer}, "interaction log"},
		{"missing writer", nil, Deps{Content: fs, Interactions: fs}, "snapshot writer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(tt.cfg, tt.deps, logger)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("NewEngine() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("NewEngine() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestStageError(t *testing.T) {
	base := errors.New("boom")
	err := fmt.Errorf("run: %w", &StageError{Stage: StageSimilarity, Items: 5, Err: base})

	if !errors.Is(err, base) {
		t.Error("errors.Is does not reach the wrapped error")
	}
	if got := FailedStage(err); got != StageSimilarity {
		t.Errorf("FailedStage() = %q, want similarity", got)
	}
	if got := FailedStage(base); got != "" {
		t.Errorf("FailedStage(plain) = %q, want empty", got)
	}
	if msg := err.Error(); !strings.Contains(msg, "similarity stage failed") || !strings.Contains(msg, "items=5") {
		t.Errorf("Error() = %q", msg)
	}
}
