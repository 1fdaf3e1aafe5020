// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package validation

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() should not return nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

type testRecord struct {
	ID        string    `validate:"required"`
	Count     int64     `validate:"gte=0"`
	Tags      []string  `validate:"dive,required,nocomma"`
	CreatedAt time.Time `validate:"required"`
}

func TestValidateStruct(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		input     testRecord
		wantError bool
		wantTag   string
	}{
		{
			name:  "valid record",
			input: testRecord{ID: "a", Count: 3, Tags: []string{"anime"}, CreatedAt: now},
		},
		{
			name:  "valid record without tags",
			input: testRecord{ID: "a", CreatedAt: now},
		},
		{
			name:      "missing id",
			input:     testRecord{CreatedAt: now},
			wantError: true,
			wantTag:   "required",
		},
		{
			name:      "negative count",
			input:     testRecord{ID: "a", Count: -1, CreatedAt: now},
			wantError: true,
			wantTag:   "gte",
		},
		{
			name:      "tag with comma",
			input:     testRecord{ID: "a", Tags: []string{"cute,chibi"}, CreatedAt: now},
			wantError: true,
			wantTag:   "nocomma",
		},
		{
			name:      "empty tag",
			input:     testRecord{ID: "a", Tags: []string{""}, CreatedAt: now},
			wantError: true,
			wantTag:   "required",
		},
		{
			name:      "zero timestamp",
			input:     testRecord{ID: "a"},
			wantError: true,
			wantTag:   "required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if !tt.wantError {
				if err != nil {
					t.Errorf("unexpected validation error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if got := err.Errors()[0].Tag(); got != tt.wantTag {
				t.Errorf("tag = %q, want %q", got, tt.wantTag)
			}
		})
	}
}

func TestCheck_NilOnSuccess(t *testing.T) {
	rec := testRecord{ID: "a", CreatedAt: time.Now()}
	if err := Check(&rec); err != nil {
		t.Errorf("Check() = %v, want nil", err)
	}
}

func TestCheck_ErrorMessage(t *testing.T) {
	err := Check(&testRecord{Count: -5})
	if err == nil {
		t.Fatal("expected error")
	}

	var recErr *RecordError
	if !errors.As(err, &recErr) {
		t.Fatalf("expected *RecordError, got %T", err)
	}
	if len(recErr.Errors()) != 3 {
		t.Errorf("expected 3 field errors, got %d: %v", len(recErr.Errors()), err)
	}
	if !strings.Contains(err.Error(), "must be greater than or equal to 0") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
