// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/palette/internal/recommend"
)

type fakeRunner struct {
	calls     atomic.Int32
	err       error
	deadlines chan time.Duration
}

func newFakeRunner(err error) *fakeRunner {
	return &fakeRunner{err: err, deadlines: make(chan time.Duration, 64)}
}

func (f *fakeRunner) Run(ctx context.Context) (*recommend.Result, error) {
	f.calls.Add(1)
	if deadline, ok := ctx.Deadline(); ok {
		select {
		case f.deadlines <- time.Until(deadline):
		default:
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &recommend.Result{RunID: "run-test"}, nil
}

type fakePruner struct {
	mu    sync.Mutex
	keeps []int
	err   error
}

func (f *fakePruner) Prune(_ context.Context, keep int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keeps = append(f.keeps, keep)
	return 1, f.err
}

func (f *fakePruner) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.keeps)
}

func serveFor(t *testing.T, svc *PipelineService, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	err := svc.Serve(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestPipelineService_Interface(t *testing.T) {
	var _ suture.Service = (*PipelineService)(nil)
	var _ PipelineRunner = (*recommend.Engine)(nil)
}

func TestNewPipelineService(t *testing.T) {
	tests := []struct {
		name    string
		runner  PipelineRunner
		cfg     PipelineServiceConfig
		wantErr bool
	}{
		{"interval", newFakeRunner(nil), PipelineServiceConfig{Interval: time.Hour}, false},
		{"cron", newFakeRunner(nil), PipelineServiceConfig{Cron: "0 */6 * * *"}, false},
		{"cron descriptor", newFakeRunner(nil), PipelineServiceConfig{Cron: "@daily"}, false},
		{"nil runner", nil, PipelineServiceConfig{Interval: time.Hour}, true},
		{"bad cron", newFakeRunner(nil), PipelineServiceConfig{Cron: "every tuesday"}, true},
		{"zero interval without cron", newFakeRunner(nil), PipelineServiceConfig{}, true},
		{"negative interval", newFakeRunner(nil), PipelineServiceConfig{Interval: -time.Minute}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewPipelineService(tt.runner, tt.cfg, zerolog.Nop())
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewPipelineService() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && svc.String() != "pipeline-service" {
				t.Errorf("String() = %q", svc.String())
			}
		})
	}
}

func TestPipelineService_DefaultRunTimeout(t *testing.T) {
	svc, err := NewPipelineService(newFakeRunner(nil), PipelineServiceConfig{Interval: time.Hour}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if svc.config.RunTimeout != 30*time.Minute {
		t.Errorf("RunTimeout = %v, want 30m", svc.config.RunTimeout)
	}
}

func TestPipelineService_CronNext(t *testing.T) {
	svc, err := NewPipelineService(newFakeRunner(nil), PipelineServiceConfig{Cron: "30 */6 * * *"}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	from := time.Date(2026, 3, 1, 7, 10, 0, 0, time.UTC)
	want := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	if got := svc.schedule.Next(from); !got.Equal(want) {
		t.Errorf("Next(%v) = %v, want %v", from, got, want)
	}
}

func TestPipelineService_IntervalNext(t *testing.T) {
	svc, err := NewPipelineService(newFakeRunner(nil), PipelineServiceConfig{Interval: 6 * time.Hour}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	from := time.Date(2026, 3, 1, 7, 10, 0, 0, time.UTC)
	if got := svc.schedule.Next(from); !got.Equal(from.Add(6 * time.Hour)) {
		t.Errorf("Next() = %v", got)
	}
}

func TestPipelineService_Serve(t *testing.T) {
	t.Run("runs on startup", func(t *testing.T) {
		runner := newFakeRunner(nil)
		svc, _ := NewPipelineService(runner, PipelineServiceConfig{
			Interval:     time.Hour,
			RunOnStartup: true,
		}, zerolog.Nop())

		serveFor(t, svc, 100*time.Millisecond)

		if got := runner.calls.Load(); got != 1 {
			t.Errorf("runs = %d, want 1", got)
		}
	})

	t.Run("waits for the first trigger without startup run", func(t *testing.T) {
		runner := newFakeRunner(nil)
		svc, _ := NewPipelineService(runner, PipelineServiceConfig{Interval: time.Hour}, zerolog.Nop())

		serveFor(t, svc, 50*time.Millisecond)

		if got := runner.calls.Load(); got != 0 {
			t.Errorf("runs = %d, want 0", got)
		}
	})

	t.Run("fires repeatedly on interval", func(t *testing.T) {
		runner := newFakeRunner(nil)
		svc, _ := NewPipelineService(runner, PipelineServiceConfig{Interval: 20 * time.Millisecond}, zerolog.Nop())

		serveFor(t, svc, 200*time.Millisecond)

		if got := runner.calls.Load(); got < 3 {
			t.Errorf("runs = %d, want at least 3", got)
		}
	})

	t.Run("failed runs do not stop the schedule", func(t *testing.T) {
		runner := newFakeRunner(&recommend.StageError{Stage: recommend.StageRead, Err: errors.New("db down")})
		svc, _ := NewPipelineService(runner, PipelineServiceConfig{
			Interval:     20 * time.Millisecond,
			RunOnStartup: true,
		}, zerolog.Nop())

		serveFor(t, svc, 150*time.Millisecond)

		if got := runner.calls.Load(); got < 3 {
			t.Errorf("runs = %d, want at least 3", got)
		}
	})

	t.Run("applies run timeout", func(t *testing.T) {
		runner := newFakeRunner(nil)
		svc, _ := NewPipelineService(runner, PipelineServiceConfig{
			Interval:     time.Hour,
			RunOnStartup: true,
			RunTimeout:   5 * time.Second,
		}, zerolog.Nop())

		serveFor(t, svc, 50*time.Millisecond)

		select {
		case remaining := <-runner.deadlines:
			if remaining <= 0 || remaining > 5*time.Second {
				t.Errorf("run deadline %v away, want within 5s", remaining)
			}
		default:
			t.Fatal("run context had no deadline")
		}
	})
}

func TestPipelineService_Prune(t *testing.T) {
	tests := []struct {
		name      string
		runErr    error
		keep      int
		wantPrune bool
	}{
		{"after success", nil, 50, true},
		{"after failure", errors.New("boom"), 50, true},
		{"skipped overlapping run", recommend.ErrRunInProgress, 50, false},
		{"disabled", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pruner := &fakePruner{}
			svc, _ := NewPipelineService(newFakeRunner(tt.runErr), PipelineServiceConfig{
				Interval:     time.Hour,
				RunOnStartup: true,
				Ledger:       pruner,
				KeepRuns:     tt.keep,
			}, zerolog.Nop())

			serveFor(t, svc, 50*time.Millisecond)

			if got := pruner.Calls() > 0; got != tt.wantPrune {
				t.Errorf("pruned = %v, want %v", got, tt.wantPrune)
			}
			if tt.wantPrune && pruner.keeps[0] != tt.keep {
				t.Errorf("Prune keep = %d, want %d", pruner.keeps[0], tt.keep)
			}
		})
	}
}

func TestPipelineService_PruneErrorIsNotFatal(t *testing.T) {
	runner := newFakeRunner(nil)
	pruner := &fakePruner{err: errors.New("ledger closed")}
	svc, _ := NewPipelineService(runner, PipelineServiceConfig{
		Interval:     20 * time.Millisecond,
		RunOnStartup: true,
		Ledger:       pruner,
		KeepRuns:     10,
	}, zerolog.Nop())

	serveFor(t, svc, 100*time.Millisecond)

	if runner.calls.Load() < 2 {
		t.Errorf("runs = %d, want schedule to continue after prune error", runner.calls.Load())
	}
}
