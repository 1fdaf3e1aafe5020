// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/tomtom215/palette/internal/recommend"
)

// PipelineRunner is the part of recommend.Engine the scheduler drives.
type PipelineRunner interface {
	Run(ctx context.Context) (*recommend.Result, error)
}

// RunPruner trims the run ledger after each scheduled run.
type RunPruner interface {
	Prune(ctx context.Context, keep int) (int, error)
}

// PipelineServiceConfig holds the trigger settings for scheduled mode.
type PipelineServiceConfig struct {
	// Cron is a standard five-field expression. When empty Interval is used.
	Cron string

	// Interval between runs when Cron is empty.
	Interval time.Duration

	// RunOnStartup triggers one run as soon as the service starts.
	RunOnStartup bool

	// RunTimeout bounds a single run.
	RunTimeout time.Duration

	// Ledger and KeepRuns enable pruning after each run. Zero KeepRuns disables it.
	Ledger   RunPruner
	KeepRuns int
}

// intervalSchedule fires a fixed duration after the previous fire time.
type intervalSchedule time.Duration

func (s intervalSchedule) Next(t time.Time) time.Time {
	return t.Add(time.Duration(s))
}

// PipelineService runs the feature pipeline on a cron expression or fixed
// interval under suture supervision. Failed runs are logged and the
// schedule continues; only context cancellation stops Serve.
type PipelineService struct {
	runner   PipelineRunner
	config   PipelineServiceConfig
	schedule cron.Schedule
	logger   zerolog.Logger
	now      func() time.Time
	name     string
}

// NewPipelineService creates the scheduler. It fails on an unparsable cron
// expression or a non-positive interval.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewPipelineService(runner PipelineRunner, cfg PipelineServiceConfig, logger zerolog.Logger) (*PipelineService, error) {
	if runner == nil {
		return nil, errors.New("pipeline runner is required")
	}

	var schedule cron.Schedule
	if cfg.Cron != "" {
		parsed, err := cron.ParseStandard(cfg.Cron)
		if err != nil {
			return nil, fmt.Errorf("parse cron %q: %w", cfg.Cron, err)
		}
		schedule = parsed
	} else {
		if cfg.Interval <= 0 {
			return nil, errors.New("schedule interval must be positive when no cron expression is set")
		}
		schedule = intervalSchedule(cfg.Interval)
	}

	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 30 * time.Minute
	}

	return &PipelineService{
		runner:   runner,
		config:   cfg,
		schedule: schedule,
		logger:   logger.With().Str("service", "pipeline").Logger(),
		now:      time.Now,
		name:     "pipeline-service",
	}, nil
}

// Serve implements suture.Service.
func (s *PipelineService) Serve(ctx context.Context) error {
	s.logger.Info().
		Str("cron", s.config.Cron).
		Dur("interval", s.config.Interval).
		Bool("run_on_startup", s.config.RunOnStartup).
		Msg("pipeline scheduler starting")

	if s.config.RunOnStartup {
		s.runOnce(ctx)
	}

	for {
		now := s.now()
		next := s.schedule.Next(now)
		if next.IsZero() {
			// robfig returns the zero time for expressions that never fire
			s.logger.Warn().Msg("schedule has no future activations")
			<-ctx.Done()
			return ctx.Err()
		}

		s.logger.Debug().Time("next_run", next).Msg("next pipeline run scheduled")
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info().Msg("pipeline scheduler shutting down")
			return ctx.Err()
		case <-timer.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce executes one pipeline run under RunTimeout and prunes the ledger.
func (s *PipelineService) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	start := s.now()
	result, err := s.runner.Run(runCtx)
	switch {
	case errors.Is(err, recommend.ErrRunInProgress):
		s.logger.Info().Msg("previous run still in progress, skipping trigger")
		return
	case err != nil:
		s.logger.Warn().
			Err(err).
			Str("stage", recommend.FailedStage(err)).
			Dur("duration", s.now().Sub(start)).
			Msg("scheduled pipeline run failed")
	default:
		s.logger.Info().
			Str("run_id", result.RunID).
			Int("version", result.Location.Version).
			Dur("duration", result.Duration).
			Msg("scheduled pipeline run complete")
	}

	if s.config.Ledger != nil && s.config.KeepRuns > 0 && ctx.Err() == nil {
		removed, pruneErr := s.config.Ledger.Prune(ctx, s.config.KeepRuns)
		if pruneErr != nil {
			s.logger.Warn().Err(pruneErr).Msg("ledger prune failed")
		} else if removed > 0 {
			s.logger.Debug().Int("removed", removed).Msg("ledger pruned")
		}
	}
}

// String returns the service name for logging.
func (s *PipelineService) String() string {
	return s.name
}
