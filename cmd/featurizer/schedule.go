// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/palette/internal/api"
	"github.com/tomtom215/palette/internal/config"
	"github.com/tomtom215/palette/internal/logging"
	"github.com/tomtom215/palette/internal/supervisor"
	"github.com/tomtom215/palette/internal/supervisor/services"
)

// buildTree assembles the supervisor tree for scheduled mode.
func buildTree(cfg *config.Config, app *pipelineComponents) (*supervisor.SupervisorTree, error) {
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return nil, err
	}

	pipelineSvc, err := services.NewPipelineService(app.engine, services.PipelineServiceConfig{
		Cron:         cfg.Schedule.Cron,
		Interval:     cfg.Schedule.Interval,
		RunOnStartup: cfg.Schedule.RunOnStartup,
		RunTimeout:   cfg.Schedule.RunTimeout,
		Ledger:       app.ledger,
		KeepRuns:     cfg.Ledger.KeepRuns,
	}, logging.WithComponent("scheduler"))
	if err != nil {
		return nil, err
	}
	tree.AddPipelineService(pipelineSvc)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(api.NewHandler(app.ledger), nil),
		ReadHeaderTimeout: cfg.Server.Timeout,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}
	tree.AddAPIService(services.NewOpsServer(server, cfg.Server.Timeout))

	return tree, nil
}

// runSchedule serves the supervisor tree until ctx is canceled.
func runSchedule(ctx context.Context, cfg *config.Config, app *pipelineComponents) int {
	tree, err := buildTree(cfg, app)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to build supervisor tree")
		return 1
	}

	logging.Info().
		Str("cron", cfg.Schedule.Cron).
		Dur("interval", cfg.Schedule.Interval).
		Str("addr", cfg.Server.Addr()).
		Msg("Starting supervisor tree")

	exitCode := 0
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
		exitCode = 1
	}

	unstopped, _ := tree.UnstoppedServiceReport() //nolint:errcheck // report is best effort after shutdown
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	logging.Info().Msg("Featurizer stopped gracefully")
	return exitCode
}
