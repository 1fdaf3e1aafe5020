// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

// Package storage persists feature snapshots for the online scoring service.
//
// # Storage Format
//
// A snapshot is a single JSON document:
//
//	{"metadata": {...}, "data": {...}}
//
// The data block is encoded once with goccy/go-json. Map keys are sorted, so
// identical inputs produce identical bytes. metadata.checksum is the SHA-256
// of those exact bytes and is verified on every load.
//
// # Directory Structure
//
//	/var/lib/palette/snapshots/
//	  features.json                  <- current, atomically replaced
//	  history/
//	    features_v1.json.gz
//	    features_v2.json.gz          <- latest archive
//
// # Atomicity
//
// Write encodes into a temporary file in the target directory, syncs it and
// renames it over the fixed path. A failure at any step removes the temporary
// file and leaves the previous snapshot untouched. Archive and prune errors
// happen after the rename and do not fail the write.
//
// # Thread Safety
//
// All Store methods are safe for concurrent use. The store does not protect
// against a second process writing the same directory; callers serialize runs.
package storage
