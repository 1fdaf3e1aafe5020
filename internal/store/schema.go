// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package store

import (
	"context"
	"fmt"
)

// schemaQueries creates the collaborator tables. The seq columns give events
// a stable arrival order when timestamps collide.
var schemaQueries = []string{
	`CREATE TABLE IF NOT EXISTS items (
		id VARCHAR PRIMARY KEY,
		title VARCHAR NOT NULL DEFAULT '',
		description VARCHAR,
		category VARCHAR NOT NULL DEFAULT '',
		style VARCHAR,
		tags VARCHAR,
		creator_id VARCHAR NOT NULL,
		public BOOLEAN NOT NULL DEFAULT FALSE,
		engagement_count BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE SEQUENCE IF NOT EXISTS approvals_seq`,
	`CREATE TABLE IF NOT EXISTS approvals (
		seq BIGINT PRIMARY KEY DEFAULT nextval('approvals_seq'),
		user_id VARCHAR NOT NULL,
		item_id VARCHAR NOT NULL,
		approved BOOLEAN NOT NULL,
		context VARCHAR,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE SEQUENCE IF NOT EXISTS behaviors_seq`,
	`CREATE TABLE IF NOT EXISTS behaviors (
		seq BIGINT PRIMARY KEY DEFAULT nextval('behaviors_seq'),
		user_id VARCHAR NOT NULL,
		item_id VARCHAR NOT NULL,
		action VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_items_public ON items(public)`,
	`CREATE INDEX IF NOT EXISTS idx_approvals_created ON approvals(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_behaviors_created ON behaviors(created_at)`,
}

// InitSchema creates the tables if they do not exist.
func (db *DuckDB) InitSchema(ctx context.Context) error {
	for _, q := range schemaQueries {
		if _, err := db.conn.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}
	return nil
}
