// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

/*
Package supervisor provides process supervision for scheduled mode using suture v4.

# Overview

The supervisor tree organizes services into two layers for failure isolation:

	RootSupervisor ("palette")
	├── PipelineSupervisor ("pipeline-layer")
	│   └── PipelineService (cron or interval trigger)
	└── APISupervisor ("api-layer")
	    └── OpsServer (/healthz, /readyz, /metrics, /api/v1/runs)

A panicking or failing scheduler is restarted with the longer
PipelineBackoff while the ops server keeps answering. One-shot mode does not use the tree.

# Usage Example

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	pipelineSvc, err := services.NewPipelineService(engine, scheduleCfg, logger)
	if err != nil {
	    return err
	}
	tree.AddPipelineService(pipelineSvc)
	tree.AddAPIService(services.NewOpsServer(server, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

# Logging

Supervisor events (service start, failure, backoff, restart) are logged
through sutureslog into the slog adapter backed by the global zerolog logger.
*/
package supervisor
