// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package recommend

import (
	"errors"
	"fmt"
)

// Pipeline stages, in execution order.
const (
	StageRead       = "read"
	StageValidate   = "validate"
	StageFeatures   = "features"
	StagePreference = "preference"
	StageSimilarity = "similarity"
	StageAffinity   = "affinity"
	StagePopularity = "popularity"
	StageWrite      = "write"
)

var (
	// ErrRunInProgress is returned when Run is called while another run holds the engine.
	ErrRunInProgress = errors.New("pipeline run already in progress")

	// ErrCatalogTooLarge is returned when the catalog exceeds max_catalog_size.
	ErrCatalogTooLarge = errors.New("catalog exceeds max_catalog_size")
)

// StageError reports a fatal run failure with the stage reached and the
// record counts the run was working with.
type StageError struct {
	Stage     string
	Items     int
	Approvals int
	Behaviors int
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline %s stage failed (items=%d approvals=%d behaviors=%d): %v",
		e.Stage, e.Items, e.Approvals, e.Behaviors, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage recorded in err, or "" if err carries none.
func FailedStage(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
