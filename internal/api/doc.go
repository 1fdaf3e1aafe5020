// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

/*
Package api serves the read-only ops endpoints of scheduled mode.

# Endpoints

	GET /healthz              liveness, always 200 while the process runs
	GET /readyz               200 once the ledger holds a successful run, else 503
	GET /metrics              Prometheus exposition (promhttp)
	GET /api/v1/runs?limit=N  run records, newest first (default 20, max 500)
	GET /api/v1/runs/latest   most recent run regardless of status
	GET /api/v1/runs/{id}     one run record

Run telemetry only. Recommendation results are never served here; consumers
read the snapshot file.

# Response Format

JSON endpoints share one envelope:

	{
	  "status": "success",
	  "data": {...},
	  "metadata": {"timestamp": "2026-03-01T12:00:00Z", "query_time_ms": 1}
	}

Errors carry "status": "error" and an "error" object with a machine-readable
code (NOT_FOUND, VALIDATION_FAILED, SERVICE_UNAVAILABLE, LEDGER_ERROR).

# Middleware

Every route passes through chi's RequestID, RealIP and Recoverer followed by
request logging and Prometheus request metrics labelled by route pattern.
*/
package api
