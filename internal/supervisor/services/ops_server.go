// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/palette/internal/logging"
)

const defaultDrainTimeout = 10 * time.Second

// errServerExited is returned when ListenAndServe comes back without being
// asked to stop, so the supervisor restarts the listener.
var errServerExited = errors.New("ops server exited unexpectedly")

// HTTPServer is the lifecycle subset of *http.Server the service drives.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// OpsServer keeps the health, metrics and run-history endpoints up while
// the pipeline layer runs.
type OpsServer struct {
	server HTTPServer
	drain  time.Duration
	logger zerolog.Logger
}

// NewOpsServer wraps server. drain bounds graceful shutdown; non-positive
// values become 10s.
func NewOpsServer(server HTTPServer, drain time.Duration) *OpsServer {
	if drain <= 0 {
		drain = defaultDrainTimeout
	}
	logger := logging.WithComponent("ops-server")
	if srv, ok := server.(*http.Server); ok {
		logger = logger.With().Str("addr", srv.Addr).Logger()
	}
	return &OpsServer{server: server, drain: drain, logger: logger}
}

// Serve implements suture.Service.
func (s *OpsServer) Serve(ctx context.Context) error {
	exited := make(chan error, 1)
	go func() {
		exited <- s.server.ListenAndServe()
	}()
	s.logger.Info().Msg("ops server listening")

	select {
	case err := <-exited:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return errServerExited
		}
		return fmt.Errorf("ops server: %w", err)
	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.drain)
	defer cancel()
	if err := s.server.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("ops server shutdown: %w", err)
	}
	if err := <-exited; err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Warn().Err(err).Msg("ops server listener error during shutdown")
	}
	s.logger.Info().Msg("ops server stopped")
	return ctx.Err()
}

// String identifies the service in supervisor logs.
func (s *OpsServer) String() string {
	return "ops-server"
}
