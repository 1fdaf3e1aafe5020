// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

/*
Package store reads catalog items and interaction events from the marketplace
storage layer.

The pipeline consumes storage only through the ContentStore and InteractionLog
interfaces. DuckDB implements both against three tables:

	items      published and draft works; tags are a comma-separated VARCHAR
	approvals  explicit like/dislike signals with an optional JSON context
	behaviors  passive view/click/bookmark events

Rows that cannot be decoded are reported as ErrMalformedRecord, which is fatal
to a pipeline run.

BreakerReader wraps any pair of readers in a gobreaker circuit so a store that
keeps failing is skipped fast on subsequent scheduled runs instead of waiting
out the read timeout each time. Breaker state is exported to Prometheus.
*/
package store
