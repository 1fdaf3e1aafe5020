// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

// Package logging provides centralized zerolog-based structured logging for Palette.
//
// JSON output is the default; console output is available for development.
// Every pipeline run carries a run ID in its context, and Ctx(ctx) attaches
// it to log lines so that one run can be followed end to end.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	ctx = logging.ContextWithRunID(ctx, logging.GenerateRunID())
//	logging.Ctx(ctx).Info().Int("items", 42).Msg("Catalog loaded")
//
// # Configuration
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller info (default: false)
//
// # slog Interop
//
// SlogHandler routes slog records (from sutureslog and watermill) into the
// global zerolog logger.
//
// Always terminate log chains with .Msg() or .Send():
//
//	logging.Info().Str("key", "value").Msg("message")  // Correct
//	logging.Info().Str("key", "value")                 // WRONG - log not emitted
package logging
