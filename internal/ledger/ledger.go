// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/palette/internal/logging"
)

// Run statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Key prefix for run records. Keys are run:<zero-padded unix nanos>:<run id>
// so lexical order is start order.
const runKeyPrefix = "run:"

// ErrNotFound is returned when the ledger holds no matching record.
var ErrNotFound = errors.New("run record not found")

// RunRecord is the outcome of one pipeline run.
type RunRecord struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     string    `json:"status"`

	// Stage is the last stage reached. For failed runs it is the stage that failed.
	Stage string `json:"stage"`
	Error string `json:"error,omitempty"`

	SnapshotVersion int    `json:"snapshot_version,omitempty"`
	SnapshotPath    string `json:"snapshot_path,omitempty"`
	Checksum        string `json:"checksum,omitempty"`

	Items             int `json:"items"`
	Users             int `json:"users"`
	Approvals         int `json:"approvals"`
	PositiveApprovals int `json:"positive_approvals"`
	Behaviors         int `json:"behaviors"`
	Pairs             int `json:"pairs"`
	Orphaned          int `json:"orphaned"`

	DurationMS int64 `json:"duration_ms"`
}

// Ledger persists run records in BadgerDB.
// It is safe for concurrent use.
type Ledger struct {
	db *badger.DB
}

// Open opens (or creates) an on-disk ledger. Badger holds an exclusive
// directory lock, so a second process opening the same dir fails.
func Open(dir string) (*Ledger, error) {
	if dir == "" {
		return nil, fmt.Errorf("ledger directory is required")
	}
	opts := badger.DefaultOptions(dir).WithLogger(newBadgerLogger())
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", dir, err)
	}
	return &Ledger{db: db}, nil
}

// OpenInMemory opens a ledger that lives only as long as the process.
func OpenInMemory() (*Ledger, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory ledger: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close releases the database and its directory lock.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record stores rec. StartedAt and RunID are required.
//
//nolint:gocritic // hugeParam: RunRecord passed by value so callers keep their copy
func (l *Ledger) Record(ctx context.Context, rec RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.RunID == "" {
		return fmt.Errorf("run record: run id is required")
	}
	if rec.StartedAt.IsZero() {
		return fmt.Errorf("run record %s: started_at is required", rec.RunID)
	}

	data, err := json.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}

	return l.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(runKey(rec.StartedAt, rec.RunID), data); err != nil {
			return fmt.Errorf("set run record: %w", err)
		}
		return nil
	})
}

// Latest returns the most recently started run.
func (l *Ledger) Latest(ctx context.Context) (*RunRecord, error) {
	return l.find(ctx, func(*RunRecord) bool { return true })
}

// LatestSuccess returns the most recently started successful run.
func (l *Ledger) LatestSuccess(ctx context.Context) (*RunRecord, error) {
	return l.find(ctx, func(r *RunRecord) bool { return r.Status == StatusSuccess })
}

// Get returns the run with the given ID.
func (l *Ledger) Get(ctx context.Context, runID string) (*RunRecord, error) {
	return l.find(ctx, func(r *RunRecord) bool { return r.RunID == runID })
}

// List returns up to limit records, newest first. limit <= 0 returns all.
func (l *Ledger) List(ctx context.Context, limit int) ([]RunRecord, error) {
	out := make([]RunRecord, 0)
	err := l.scanNewest(ctx, func(r *RunRecord) bool {
		out = append(out, *r)
		return limit <= 0 || len(out) < limit
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Prune deletes all but the newest keep records and returns how many were
// removed. keep <= 0 is a no-op.
func (l *Ledger) Prune(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}

	var stale [][]byte
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(runKeyPrefix)
		seen := 0
		for it.Seek(seekLast(prefix)); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			seen++
			if seen > keep {
				stale = append(stale, it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan run records: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	wb := l.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return 0, fmt.Errorf("delete run record: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush run record deletes: %w", err)
	}
	return len(stale), nil
}

func (l *Ledger) find(ctx context.Context, match func(*RunRecord) bool) (*RunRecord, error) {
	var found *RunRecord
	err := l.scanNewest(ctx, func(r *RunRecord) bool {
		if match(r) {
			found = r
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// scanNewest calls fn for each record, newest first, until fn returns false.
func (l *Ledger) scanNewest(ctx context.Context, fn func(*RunRecord) bool) error {
	return l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(runKeyPrefix)
		for it.Seek(seekLast(prefix)); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec RunRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode run record %s: %w", it.Item().Key(), err)
			}
			if !fn(&rec) {
				return nil
			}
		}
		return nil
	})
}

func runKey(startedAt time.Time, runID string) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", runKeyPrefix, startedAt.UnixNano(), runID))
}

// seekLast returns a key that sorts after every key with prefix, for
// reverse iteration.
func seekLast(prefix []byte) []byte {
	return append(append([]byte(nil), prefix...), 0xFF)
}

// badgerLogger routes Badger's warnings and errors into zerolog.
type badgerLogger struct {
	log zerolog.Logger
}

func newBadgerLogger() *badgerLogger {
	return &badgerLogger{log: logging.WithComponent("ledger")}
}

func (b *badgerLogger) Errorf(format string, args ...interface{}) {
	b.log.Error().Msgf(format, args...)
}

func (b *badgerLogger) Warningf(format string, args ...interface{}) {
	b.log.Warn().Msgf(format, args...)
}

func (b *badgerLogger) Infof(format string, args ...interface{}) {
	b.log.Debug().Msgf(format, args...)
}

func (b *badgerLogger) Debugf(format string, args ...interface{}) {
	b.log.Trace().Msgf(format, args...)
}
