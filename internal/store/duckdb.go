// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/goccy/go-json"

	"github.com/tomtom215/palette/internal/catalog"
	"github.com/tomtom215/palette/internal/config"
	"github.com/tomtom215/palette/internal/metrics"
)

// DuckDB reads collaborator tables from a DuckDB database.
type DuckDB struct {
	conn *sql.DB
}

// Open connects to the database at cfg.Path. ":memory:" opens a private
// in-memory database.
func Open(cfg *config.DatabaseConfig) (*DuckDB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	if cfg.Path != ":memory:" {
		if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "1GB"
	}

	// The reader needs no extensions; disabling auto-install avoids network
	// access in restricted environments.
	connStr := fmt.Sprintf("%s?threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(numThreads)
	conn.SetMaxIdleConns(2)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DuckDB{conn: conn}, nil
}

// Close closes the database.
func (db *DuckDB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database is reachable.
func (db *DuckDB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

const selectPublishedItems = `
	SELECT id, title, description, category, style, tags, creator_id, public, engagement_count, created_at
	FROM items
	WHERE public
	ORDER BY created_at, id`

// ListPublishedItems returns every public item ordered by creation time.
func (db *DuckDB) ListPublishedItems(ctx context.Context) (items []catalog.Item, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("SELECT", "items", time.Since(start), err) }()

	rows, err := db.conn.QueryContext(ctx, selectPublishedItems)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck // error on close after read is not actionable

	items = []catalog.Item{}
	for rows.Next() {
		var (
			it                catalog.Item
			category          string
			desc, style, tags sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.Title, &desc, &category, &style, &tags,
			&it.CreatorID, &it.Public, &it.EngagementCount, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan item: %w", ErrMalformedRecord, err)
		}
		it.Category = catalog.Category(category)
		it.Description = desc.String
		it.Style = style.String
		it.Tags = splitTags(tags.String)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

const selectRecentApprovals = `
	SELECT user_id, item_id, approved, context, created_at FROM (
		SELECT seq, user_id, item_id, approved, context, created_at
		FROM approvals
		ORDER BY created_at DESC, seq DESC
		LIMIT ?
	)
	ORDER BY created_at, seq`

// RecentApprovals returns the most recent limit approvals in arrival order.
func (db *DuckDB) RecentApprovals(ctx context.Context, limit int) (events []catalog.ApprovalEvent, err error) {
	if limit <= 0 {
		return nil, fmt.Errorf("approval limit must be positive, got %d", limit)
	}

	start := time.Now()
	defer func() { metrics.RecordDBQuery("SELECT", "approvals", time.Since(start), err) }()

	rows, err := db.conn.QueryContext(ctx, selectRecentApprovals, limit)
	if err != nil {
		return nil, fmt.Errorf("query approvals: %w", err)
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck // error on close after read is not actionable

	events = []catalog.ApprovalEvent{}
	for rows.Next() {
		var (
			ev     catalog.ApprovalEvent
			rawCtx sql.NullString
		)
		if err := rows.Scan(&ev.UserID, &ev.ItemID, &ev.Approved, &rawCtx, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan approval: %w", ErrMalformedRecord, err)
		}
		if rawCtx.Valid && rawCtx.String != "" {
			if err := json.Unmarshal([]byte(rawCtx.String), &ev.Context); err != nil {
				return nil, fmt.Errorf("%w: approval %s/%s context: %w", ErrMalformedRecord, ev.UserID, ev.ItemID, err)
			}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approvals: %w", err)
	}
	return events, nil
}

const selectRecentBehaviors = `
	SELECT user_id, item_id, action, created_at FROM (
		SELECT seq, user_id, item_id, action, created_at
		FROM behaviors
		ORDER BY created_at DESC, seq DESC
		LIMIT ?
	)
	ORDER BY created_at, seq`

// RecentBehaviors returns the most recent limit behavior events in arrival order.
func (db *DuckDB) RecentBehaviors(ctx context.Context, limit int) (events []catalog.BehaviorEvent, err error) {
	if limit <= 0 {
		return nil, fmt.Errorf("behavior limit must be positive, got %d", limit)
	}

	start := time.Now()
	defer func() { metrics.RecordDBQuery("SELECT", "behaviors", time.Since(start), err) }()

	rows, err := db.conn.QueryContext(ctx, selectRecentBehaviors, limit)
	if err != nil {
		return nil, fmt.Errorf("query behaviors: %w", err)
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck // error on close after read is not actionable

	events = []catalog.BehaviorEvent{}
	for rows.Next() {
		var ev catalog.BehaviorEvent
		if err := rows.Scan(&ev.UserID, &ev.ItemID, &ev.Action, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan behavior: %w", ErrMalformedRecord, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate behaviors: %w", err)
	}
	return events, nil
}

// InsertItems upserts catalog items. Used for seeding and tests.
func (db *DuckDB) InsertItems(ctx context.Context, items []catalog.Item) error {
	return db.inTx(ctx, `INSERT OR REPLACE INTO items
		(id, title, description, category, style, tags, creator_id, public, engagement_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		len(items), func(stmt *sql.Stmt, i int) error {
			it := &items[i]
			_, err := stmt.ExecContext(ctx, it.ID, it.Title, it.Description, string(it.Category),
				it.Style, joinTags(it.Tags), it.CreatorID, it.Public, it.EngagementCount, it.CreatedAt)
			return err
		})
}

// InsertApprovals appends approval events in slice order.
func (db *DuckDB) InsertApprovals(ctx context.Context, events []catalog.ApprovalEvent) error {
	return db.inTx(ctx, `INSERT INTO approvals (user_id, item_id, approved, context, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		len(events), func(stmt *sql.Stmt, i int) error {
			ev := &events[i]
			var rawCtx sql.NullString
			if len(ev.Context) > 0 {
				b, err := json.Marshal(ev.Context)
				if err != nil {
					return fmt.Errorf("encode approval context: %w", err)
				}
				rawCtx = sql.NullString{String: string(b), Valid: true}
			}
			_, err := stmt.ExecContext(ctx, ev.UserID, ev.ItemID, ev.Approved, rawCtx, ev.CreatedAt)
			return err
		})
}

// InsertBehaviors appends behavior events in slice order.
func (db *DuckDB) InsertBehaviors(ctx context.Context, events []catalog.BehaviorEvent) error {
	return db.inTx(ctx, `INSERT INTO behaviors (user_id, item_id, action, created_at) VALUES (?, ?, ?, ?)`,
		len(events), func(stmt *sql.Stmt, i int) error {
			ev := &events[i]
			_, err := stmt.ExecContext(ctx, ev.UserID, ev.ItemID, ev.Action, ev.CreatedAt)
			return err
		})
}

// inTx prepares query once and runs exec for each of n rows in a transaction.
func (db *DuckDB) inTx(ctx context.Context, query string, n int, exec func(*sql.Stmt, int) error) error {
	if n == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }() //nolint:errcheck // closed with the transaction

	for i := 0; i < n; i++ {
		if err := exec(stmt, i); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
