// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package supervisor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var errScripted = errors.New("scripted failure")

// mockService is a suture.Service that blocks on ctx unless scripted to
// fail. Failures from SetFailCount come before the SetError result.
type mockService struct {
	name   string
	starts atomic.Int32
	stops  atomic.Int32

	mu        sync.Mutex
	remaining int
	err       error
}

func newMockService(name string) *mockService {
	return &mockService{name: name}
}

func (m *mockService) Serve(ctx context.Context) error {
	m.starts.Add(1)
	defer m.stops.Add(1)

	m.mu.Lock()
	if m.remaining > 0 {
		m.remaining--
		m.mu.Unlock()
		return errScripted
	}
	err := m.err
	m.mu.Unlock()

	if err != nil {
		return err
	}
	<-ctx.Done()
	return ctx.Err()
}

// SetError makes every Serve call return err at once.
func (m *mockService) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// SetFailCount makes the next n Serve calls fail.
func (m *mockService) SetFailCount(n int) {
	m.mu.Lock()
	m.remaining = n
	m.mu.Unlock()
}

func (m *mockService) StartCount() int32 { return m.starts.Load() }

func (m *mockService) StopCount() int32 { return m.stops.Load() }

func (m *mockService) String() string { return m.name }
