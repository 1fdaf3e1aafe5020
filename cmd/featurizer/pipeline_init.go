// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/palette/internal/config"
	"github.com/tomtom215/palette/internal/ledger"
	"github.com/tomtom215/palette/internal/logging"
	"github.com/tomtom215/palette/internal/notify"
	"github.com/tomtom215/palette/internal/recommend"
	"github.com/tomtom215/palette/internal/recommend/storage"
	"github.com/tomtom215/palette/internal/store"
)

// pipelineComponents holds everything a run needs. Close releases them in
// reverse order of construction.
type pipelineComponents struct {
	db        *store.DuckDB
	snapshots *storage.Store
	ledger    *ledger.Ledger
	publisher notify.Publisher
	engine    *recommend.Engine
}

// initPipeline opens the stores and builds the engine. On error everything
// opened so far is closed.
func initPipeline(ctx context.Context, cfg *config.Config) (_ *pipelineComponents, err error) {
	app := &pipelineComponents{}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	app.db, err = store.Open(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err = app.db.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	logging.Info().Str("path", cfg.Database.Path).Msg("Database initialized successfully")

	var reader store.Reader = app.db
	if cfg.Breaker.Enabled {
		reader = store.NewBreakerReader(app.db, &cfg.Breaker)
		logging.Info().
			Uint32("min_requests", cfg.Breaker.MinRequests).
			Float64("failure_ratio", cfg.Breaker.FailureRatio).
			Msg("Store reads protected by circuit breaker")
	}

	app.snapshots, err = storage.NewStore(cfg.Snapshot.Dir, cfg.Snapshot.Name, cfg.Snapshot.KeepVersions)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	if cfg.Ledger.InMemory {
		app.ledger, err = ledger.OpenInMemory()
		logging.Warn().Msg("Run ledger is in memory; concurrent processes are not serialized")
	} else {
		app.ledger, err = ledger.Open(cfg.Ledger.Dir)
	}
	if err != nil {
		return nil, fmt.Errorf("open run ledger: %w", err)
	}

	app.publisher, err = notify.New(&cfg.Notify)
	if err != nil {
		return nil, fmt.Errorf("create publisher: %w", err)
	}
	if cfg.Notify.Enabled {
		logging.Info().
			Str("driver", cfg.Notify.Driver).
			Str("topic", cfg.Notify.Topic).
			Msg("Snapshot notifications enabled")
	}

	app.engine, err = recommend.NewEngine(recommend.ConfigFrom(cfg), recommend.Deps{
		Content:      reader,
		Interactions: reader,
		Snapshots:    app.snapshots,
		Ledger:       app.ledger,
		Publisher:    app.publisher,
	}, logging.Logger())
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	return app, nil
}

// Close releases the publisher, ledger and database.
func (a *pipelineComponents) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing publisher")
		}
	}
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing run ledger")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}
}
