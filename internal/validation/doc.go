// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

// Package validation provides struct validation using go-playground/validator v10.
//
// Records read from the content store and interaction log are validated
// before they enter the pipeline; a record that fails is malformed and
// aborts the run.
//
//	type Item struct {
//	    ID   string   `validate:"required"`
//	    Tags []string `validate:"dive,required,nocomma"`
//	}
//
//	if err := validation.Check(&item); err != nil {
//	    return fmt.Errorf("item %q: %w", item.ID, err)
//	}
package validation
