// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

/*
Package notify announces finished snapshots to downstream scorers.

After a snapshot is durable the pipeline publishes a SnapshotPublished
event. Publishing is best effort: the snapshot file is the source of truth
and consumers that miss an event pick up the next one or poll the file.

Drivers:

  - nats: Watermill NATS publisher (core NATS, or JetStream with
    auto-provisioning and Nats-Msg-Id deduplication)
  - channel: Watermill GoChannel for in-process consumers and tests
  - disabled: Noop

Publish results are counted in palette_notify_* metrics.
*/
package notify
