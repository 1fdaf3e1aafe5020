// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/palette/internal/catalog"
	"github.com/tomtom215/palette/internal/ledger"
	"github.com/tomtom215/palette/internal/logging"
	"github.com/tomtom215/palette/internal/metrics"
	"github.com/tomtom215/palette/internal/notify"
	"github.com/tomtom215/palette/internal/recommend/affinity"
	"github.com/tomtom215/palette/internal/recommend/features"
	"github.com/tomtom215/palette/internal/recommend/popularity"
	"github.com/tomtom215/palette/internal/recommend/preference"
	"github.com/tomtom215/palette/internal/recommend/similarity"
	"github.com/tomtom215/palette/internal/recommend/storage"
	"github.com/tomtom215/palette/internal/store"
	"github.com/tomtom215/palette/internal/validation"
)

// Algorithm identifies the feature and similarity heuristics in snapshot metadata.
const Algorithm = "content-heuristic-v1"

// SnapshotWriter persists a finished snapshot.
type SnapshotWriter interface {
	Write(ctx context.Context, snap *storage.Snapshot) (storage.Location, error)
}

// RunRecorder keeps the run history.
type RunRecorder interface {
	Record(ctx context.Context, rec ledger.RunRecord) error
}

// Deps are the collaborators of an Engine. Content, Interactions and
// Snapshots are required.
type Deps struct {
	Content      store.ContentStore
	Interactions store.InteractionLog
	Snapshots    SnapshotWriter

	// Ledger records every run outcome. Optional.
	Ledger RunRecorder

	// Publisher announces successful snapshots. Optional.
	Publisher notify.Publisher

	// Clock supplies the generation timestamp. Default: time.Now.
	Clock func() time.Time
}

// Result describes a successful run.
type Result struct {
	RunID    string
	Metadata storage.Metadata
	Location storage.Location

	// Orphaned counts positive approvals of items missing from the catalog.
	Orphaned int

	// Duplicates counts repeated likes of the same item by the same user.
	Duplicates int

	Duration time.Duration

	// ArchiveErr is set when the snapshot is durable but its history copy
	// or pruning failed.
	ArchiveErr error
}

// Engine runs the feature pipeline. It is safe for concurrent use; runs are
// serialized and an overlapping Run fails with ErrRunInProgress.
type Engine struct {
	config *Config
	logger zerolog.Logger

	content      store.ContentStore
	interactions store.InteractionLog
	snapshots    SnapshotWriter
	ledger       RunRecorder
	publisher    notify.Publisher
	clock        func() time.Time

	runMu sync.Mutex
}

// inputs holds everything the read phase fetched.
type inputs struct {
	items     []catalog.Item
	approvals []catalog.ApprovalEvent
	behaviors []catalog.BehaviorEvent
}

// NewEngine creates a pipeline engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, deps Deps, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if deps.Content == nil || deps.Interactions == nil {
		return nil, fmt.Errorf("content store and interaction log are required")
	}
	if deps.Snapshots == nil {
		return nil, fmt.Errorf("snapshot writer is required")
	}

	publisher := deps.Publisher
	if publisher == nil {
		publisher = notify.Noop{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Engine{
		config:       cfg.Clone(),
		logger:       logger.With().Str("component", "recommend").Logger(),
		content:      deps.Content,
		interactions: deps.Interactions,
		snapshots:    deps.Snapshots,
		ledger:       deps.Ledger,
		publisher:    publisher,
		clock:        clock,
	}, nil
}

// Run performs one full pass: read, validate, derive, write. Fatal failures
// are returned as *StageError and leave the previous snapshot in place. The
// ledger record and the published event are best effort.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if !e.runMu.TryLock() {
		metrics.RecordRun(metrics.StatusRejected, 0)
		return nil, ErrRunInProgress
	}
	defer e.runMu.Unlock()

	runID := logging.RunIDFromContext(ctx)
	if runID == "" {
		runID = logging.GenerateRunID()
		ctx = logging.ContextWithRunID(ctx, runID)
	}
	ctx = logging.ContextWithLogger(ctx, e.logger)
	logger := logging.Ctx(ctx)

	metrics.TrackRun(true)
	defer metrics.TrackRun(false)

	start := time.Now()
	rec := ledger.RunRecord{RunID: runID, StartedAt: start.UTC()}
	logger.Info().Msg("pipeline run started")

	res, err := e.execute(ctx, runID, &rec)

	duration := time.Since(start)
	rec.FinishedAt = time.Now().UTC()
	rec.DurationMS = duration.Milliseconds()

	if err != nil {
		rec.Status = ledger.StatusFailed
		rec.Error = err.Error()
		metrics.RecordRun(metrics.StatusFailed, duration)
		logger.Error().Err(err).
			Str("stage", rec.Stage).
			Int64("duration_ms", rec.DurationMS).
			Msg("pipeline run failed")
		e.record(ctx, &rec)
		return nil, err
	}

	res.Duration = duration
	rec.Status = ledger.StatusSuccess
	metrics.RecordRun(metrics.StatusSuccess, duration)
	e.record(ctx, &rec)
	e.announce(ctx, res)

	logger.Info().
		Int("items", res.Metadata.ItemCount).
		Int("users", res.Metadata.UserCount).
		Int("pairs", res.Metadata.PairCount).
		Int("version", res.Location.Version).
		Int64("duration_ms", rec.DurationMS).
		Msg("pipeline run complete")

	return res, nil
}

// execute runs the stages in order, keeping rec current as it goes.
func (e *Engine) execute(ctx context.Context, runID string, rec *ledger.RunRecord) (*Result, error) {
	var in inputs
	fail := func(stage string, err error) error {
		rec.Stage = stage
		return &StageError{
			Stage:     stage,
			Items:     len(in.items),
			Approvals: len(in.approvals),
			Behaviors: len(in.behaviors),
			Err:       err,
		}
	}
	enter := func(stage string) time.Time {
		rec.Stage = stage
		return time.Now()
	}

	t := enter(StageRead)
	in, err := e.read(ctx)
	metrics.RecordStage(StageRead, time.Since(t))
	if err != nil {
		return nil, fail(StageRead, err)
	}
	rec.Items = len(in.items)
	rec.Approvals = len(in.approvals)
	rec.Behaviors = len(in.behaviors)

	t = enter(StageValidate)
	err = e.validate(&in)
	metrics.RecordStage(StageValidate, time.Since(t))
	if err != nil {
		return nil, fail(StageValidate, err)
	}

	generatedAt := e.clock().UTC()

	t = enter(StageFeatures)
	extractor := features.NewExtractor(features.Config{
		ReferenceTags:       e.config.ReferenceTags,
		NormalizePopularity: e.config.NormalizePopularity,
		Now:                 func() time.Time { return generatedAt },
	})
	itemFeatures := extractor.ExtractAll(in.items)
	metrics.RecordStage(StageFeatures, time.Since(t))

	t = enter(StagePreference)
	byID := make(map[string]catalog.Item, len(in.items))
	for i := range in.items {
		byID[in.items[i].ID] = in.items[i]
	}
	prefs, err := preference.Aggregate(ctx, in.approvals, byID)
	metrics.RecordStage(StagePreference, time.Since(t))
	if err != nil {
		return nil, fail(StagePreference, err)
	}
	rec.Users = len(prefs.Profiles)
	rec.PositiveApprovals = prefs.Positive + prefs.Orphaned + prefs.Duplicates
	rec.Orphaned = prefs.Orphaned
	if prefs.Orphaned > 0 {
		logging.Ctx(ctx).Warn().
			Int("orphaned", prefs.Orphaned).
			Msg("positive approvals reference items missing from the catalog")
	}

	t = enter(StageSimilarity)
	sim, err := similarity.BuildMatrix(ctx, in.items)
	metrics.RecordStage(StageSimilarity, time.Since(t))
	if err != nil {
		return nil, fail(StageSimilarity, err)
	}
	rec.Pairs = sim.Pairs()

	t = enter(StageAffinity)
	aff := affinity.Build(in.approvals)
	metrics.RecordStage(StageAffinity, time.Since(t))

	t = enter(StagePopularity)
	stats := popularity.Aggregate(in.items, e.config.Popularity)
	metrics.RecordStage(StagePopularity, time.Since(t))

	meta := storage.Metadata{
		GeneratedAt:           generatedAt,
		Algorithm:             Algorithm,
		ItemCount:             len(in.items),
		UserCount:             len(prefs.Profiles),
		ApprovalCount:         len(in.approvals),
		PositiveApprovalCount: rec.PositiveApprovals,
		BehaviorCount:         len(in.behaviors),
		PairCount:             rec.Pairs,
		ReferenceTags:         extractor.ReferenceTags(),
		PopularityNormalized:  extractor.NormalizesPopularity(),
	}
	metrics.RecordRunSizes(metrics.RunSizes{
		Items:             meta.ItemCount,
		Approvals:         meta.ApprovalCount,
		PositiveApprovals: meta.PositiveApprovalCount,
		Behaviors:         meta.BehaviorCount,
		Profiles:          meta.UserCount,
		Pairs:             meta.PairCount,
		Orphaned:          prefs.Orphaned,
	})

	t = enter(StageWrite)
	snap := &storage.Snapshot{
		Metadata: meta,
		Data: storage.Data{
			Items:      itemFeatures,
			Profiles:   prefs.Profiles,
			Affinity:   aff,
			Similarity: sim,
			Stats:      stats,
		},
	}
	loc, err := e.snapshots.Write(ctx, snap)
	metrics.RecordStage(StageWrite, time.Since(t))

	res := &Result{
		RunID:      runID,
		Orphaned:   prefs.Orphaned,
		Duplicates: prefs.Duplicates,
	}
	switch {
	case errors.Is(err, storage.ErrArchive):
		res.ArchiveErr = err
		logging.Ctx(ctx).Warn().Err(err).
			Str("path", loc.Path).
			Msg("snapshot written but history archive failed")
	case err != nil:
		return nil, fail(StageWrite, err)
	}

	res.Metadata = snap.Metadata
	res.Location = loc
	rec.SnapshotVersion = loc.Version
	rec.SnapshotPath = loc.Path
	rec.Checksum = loc.Checksum
	metrics.RecordSnapshot(loc.SizeBytes, loc.Version)

	return res, nil
}

// read fetches the catalog and both event windows concurrently under the
// read timeout. The first failure cancels the others.
func (e *Engine) read(ctx context.Context) (inputs, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.ReadTimeout)
	defer cancel()

	var (
		items     []catalog.Item
		approvals []catalog.ApprovalEvent
		behaviors []catalog.BehaviorEvent
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = e.content.ListPublishedItems(gctx)
		if err != nil {
			return fmt.Errorf("list published items: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		approvals, err = e.interactions.RecentApprovals(gctx, e.config.ApprovalWindow)
		if err != nil {
			return fmt.Errorf("read approvals: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		behaviors, err = e.interactions.RecentBehaviors(gctx, e.config.BehaviorWindow)
		if err != nil {
			return fmt.Errorf("read behaviors: %w", err)
		}
		return nil
	})

	err := g.Wait()
	return inputs{items: items, approvals: approvals, behaviors: behaviors}, err
}

// validate rejects malformed records and oversized catalogs. Any single bad
// record fails the run.
func (e *Engine) validate(in *inputs) error {
	if limit := e.config.MaxCatalogSize; limit > 0 && len(in.items) > limit {
		return fmt.Errorf("%w: %d items, limit %d", ErrCatalogTooLarge, len(in.items), limit)
	}

	seen := make(map[string]struct{}, len(in.items))
	for i := range in.items {
		item := &in.items[i]
		if err := validation.Check(item); err != nil {
			return fmt.Errorf("%w: item %q: %w", store.ErrMalformedRecord, item.ID, err)
		}
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("%w: duplicate item id %q", store.ErrMalformedRecord, item.ID)
		}
		seen[item.ID] = struct{}{}
	}

	for i := range in.approvals {
		if err := validation.Check(&in.approvals[i]); err != nil {
			return fmt.Errorf("%w: approval %d: %w", store.ErrMalformedRecord, i, err)
		}
	}
	for i := range in.behaviors {
		if err := validation.Check(&in.behaviors[i]); err != nil {
			return fmt.Errorf("%w: behavior %d: %w", store.ErrMalformedRecord, i, err)
		}
	}
	return nil
}

// record writes rec to the ledger, logging instead of failing.
func (e *Engine) record(ctx context.Context, rec *ledger.RunRecord) {
	if e.ledger == nil {
		return
	}
	// The run context may already be canceled; the record still belongs in the ledger.
	if err := e.ledger.Record(context.WithoutCancel(ctx), *rec); err != nil {
		metrics.RecordLedgerError()
		logging.Ctx(ctx).Warn().Err(err).Msg("failed to record run in ledger")
	}
}

// announce publishes the snapshot event, logging instead of failing.
func (e *Engine) announce(ctx context.Context, res *Result) {
	event := notify.SnapshotPublished{
		RunID:       res.RunID,
		Version:     res.Location.Version,
		Path:        res.Location.Path,
		Checksum:    res.Location.Checksum,
		GeneratedAt: res.Metadata.GeneratedAt,
		ItemCount:   res.Metadata.ItemCount,
		UserCount:   res.Metadata.UserCount,
		PairCount:   res.Metadata.PairCount,
		SizeBytes:   res.Location.SizeBytes,
	}
	if err := e.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("failed to publish snapshot event")
	}
}

// GetConfig returns a copy of the engine configuration.
func (e *Engine) GetConfig() *Config {
	return e.config.Clone()
}
