// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

/*
Package ledger keeps a durable history of pipeline runs in BadgerDB.

Each run is stored under run:<started unix nanos>:<run id> as a JSON
RunRecord, so a reverse prefix scan yields runs newest first. The ops API
reads the ledger for /readyz and /api/v1/runs.

An on-disk ledger also serializes featurizer processes: Badger takes an
exclusive lock on its directory, so a second process pointed at the same
ledger fails at startup instead of racing the first one's snapshot write.

Usage:

	l, err := ledger.Open("/data/ledger")
	if err != nil {
	    return err
	}
	defer l.Close()

	runs, err := l.List(ctx, 20)
*/
package ledger
