// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package store

import (
	"context"
	"errors"
	"fmt"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/palette/internal/catalog"
	"github.com/tomtom215/palette/internal/config"
	"github.com/tomtom215/palette/internal/logging"
	"github.com/tomtom215/palette/internal/metrics"
)

// BreakerReader guards a Reader with a circuit breaker. All three reads share
// one circuit: they hit the same storage layer and fail together.
type BreakerReader struct {
	next Reader
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

// NewBreakerReader wraps next. The circuit opens once at least
// cfg.MinRequests reads were seen in the window and the failure ratio
// reaches cfg.FailureRatio.
func NewBreakerReader(next Reader, cfg *config.BreakerConfig) *BreakerReader {
	name := cfg.Name
	if name == "" {
		name = "content-store"
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0) // 0 = closed
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= cfg.FailureRatio
			if shouldTrip {
				logging.Warn().
					Str("breaker", name).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		// Bad rows and cancelled runs say nothing about store health.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrMalformedRecord) ||
				errors.Is(err, context.Canceled)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &BreakerReader{next: next, cb: cb, name: name}
}

// State returns the current circuit state.
func (b *BreakerReader) State() gobreaker.State {
	return b.cb.State()
}

// execute runs fn through the circuit and records the outcome.
func (b *BreakerReader) execute(source string, fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	if err == nil {
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(0)
		return result, nil
	}

	metrics.RecordStoreReadError(source)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		logging.Warn().Err(err).Str("breaker", b.name).Str("source", source).Msg("[CIRCUIT BREAKER] Request rejected")
		return nil, fmt.Errorf("read %s: %w", source, err)
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(float64(b.cb.Counts().ConsecutiveFailures))
	return nil, err
}

// castResult type-asserts a circuit breaker result.
func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// ListPublishedItems reads the catalog through the circuit.
func (b *BreakerReader) ListPublishedItems(ctx context.Context) ([]catalog.Item, error) {
	return castResult[[]catalog.Item](b.execute("items", func() (any, error) {
		return b.next.ListPublishedItems(ctx)
	}))
}

// RecentApprovals reads approvals through the circuit.
func (b *BreakerReader) RecentApprovals(ctx context.Context, limit int) ([]catalog.ApprovalEvent, error) {
	return castResult[[]catalog.ApprovalEvent](b.execute("approvals", func() (any, error) {
		return b.next.RecentApprovals(ctx, limit)
	}))
}

// RecentBehaviors reads behavior events through the circuit.
func (b *BreakerReader) RecentBehaviors(ctx context.Context, limit int) ([]catalog.BehaviorEvent, error) {
	return castResult[[]catalog.BehaviorEvent](b.execute("behaviors", func() (any, error) {
		return b.next.RecentBehaviors(ctx, limit)
	}))
}

// stateToFloat converts circuit breaker state to numeric value for metrics.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging.
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
