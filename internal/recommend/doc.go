// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

// Package recommend orchestrates the offline feature pipeline for the
// illustrator marketplace.
//
// # Architecture
//
// One Run is a single batch pass over the catalog and the interaction log:
//
//   - read: catalog, approval window and behavior window, fetched concurrently
//     under a read timeout
//   - validate: every record checked; one bad record fails the run
//   - features: per-item feature vectors (subpackage features)
//   - preference: per-user like profiles (subpackage preference)
//   - similarity: full O(n^2) item similarity (subpackage similarity)
//   - affinity: sparse user-item matrix (subpackage affinity)
//   - popularity: ranked global statistics (subpackage popularity)
//   - write: atomic snapshot replace plus gzip history (subpackage storage)
//
// Compute stages run on the calling goroutine. Every stage is timed into
// palette_pipeline_stage_duration_seconds.
//
// # Failure Semantics
//
// Any failure before the snapshot rename is returned as *StageError and the
// previous snapshot stays in place. A failed history archive after the
// rename is reported in Result.ArchiveErr and does not fail the run. Ledger
// and notification failures are logged only.
//
// # Determinism
//
// With a fixed Clock and identical input, two runs produce byte-identical
// snapshots. Map keys are encoded sorted and the run id is kept out of the
// artifact.
//
// # Usage
//
//	engine, err := recommend.NewEngine(recommend.ConfigFrom(cfg), recommend.Deps{
//	    Content:      reader,
//	    Interactions: reader,
//	    Snapshots:    snapshots,
//	    Ledger:       runs,
//	    Publisher:    publisher,
//	}, logging.Logger())
//	if err != nil {
//	    return err
//	}
//	res, err := engine.Run(ctx)
//
// # Thread Safety
//
// The engine is safe for concurrent use. Runs are serialized; a Run that
// overlaps another returns ErrRunInProgress immediately.
package recommend
