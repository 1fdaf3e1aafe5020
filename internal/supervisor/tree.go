// Palette - Illustrator Recommendation Feature Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/palette

package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// Layer names a child supervisor of the tree.
type Layer string

const (
	// LayerPipeline holds the scheduled pipeline runner.
	LayerPipeline Layer = "pipeline-layer"
	// LayerAPI holds the ops HTTP server.
	LayerAPI Layer = "api-layer"
)

// TreeConfig holds supervisor tree configuration. Zero fields take the
// DefaultTreeConfig values.
type TreeConfig struct {
	// FailureThreshold is the decayed failure count that triggers backoff.
	FailureThreshold float64

	// FailureDecay is the failure half-life in seconds.
	FailureDecay float64

	// FailureBackoff is the api layer's pause once the threshold is hit.
	FailureBackoff time.Duration

	// PipelineBackoff is the pipeline layer's pause. A scheduler that keeps
	// crashing should not hammer the content store.
	PipelineBackoff time.Duration

	// ShutdownTimeout bounds how long each service gets to stop.
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns the production defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		PipelineBackoff:  time.Minute,
		ShutdownTimeout:  10 * time.Second,
	}
}

func (c TreeConfig) withDefaults() TreeConfig {
	d := DefaultTreeConfig()
	if c.FailureThreshold == 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.FailureDecay == 0 {
		c.FailureDecay = d.FailureDecay
	}
	if c.FailureBackoff == 0 {
		c.FailureBackoff = d.FailureBackoff
	}
	if c.PipelineBackoff == 0 {
		c.PipelineBackoff = d.PipelineBackoff
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	return c
}

func (c TreeConfig) sutureSpec(backoff time.Duration) suture.Spec {
	return suture.Spec{
		FailureThreshold: c.FailureThreshold,
		FailureDecay:     c.FailureDecay,
		FailureBackoff:   backoff,
		Timeout:          c.ShutdownTimeout,
	}
}

// SupervisorTree supervises scheduled mode.
//
//	palette
//	├── pipeline-layer  (PipelineService)
//	└── api-layer       (OpsServer)
//
// A crashing scheduler restarts inside its own layer, so /healthz and
// /metrics keep answering while it backs off.
type SupervisorTree struct {
	root   *suture.Supervisor
	layers map[Layer]*suture.Supervisor
	config TreeConfig
}

// NewSupervisorTree creates the tree. Supervisor events are logged through
// logger via sutureslog.
func NewSupervisorTree(logger *slog.Logger, config TreeConfig) (*SupervisorTree, error) {
	if logger == nil {
		return nil, fmt.Errorf("supervisor logger is required")
	}
	config = config.withDefaults()

	// MustHook has a pointer receiver.
	handler := &sutureslog.Handler{Logger: logger}

	rootSpec := config.sutureSpec(config.FailureBackoff)
	rootSpec.EventHook = handler.MustHook()
	root := suture.New("palette", rootSpec)

	// Children inherit the root's EventHook when added.
	layers := map[Layer]*suture.Supervisor{
		LayerPipeline: suture.New(string(LayerPipeline), config.sutureSpec(config.PipelineBackoff)),
		LayerAPI:      suture.New(string(LayerAPI), config.sutureSpec(config.FailureBackoff)),
	}
	root.Add(layers[LayerPipeline])
	root.Add(layers[LayerAPI])

	return &SupervisorTree{root: root, layers: layers, config: config}, nil
}

// Root returns the root supervisor.
func (t *SupervisorTree) Root() *suture.Supervisor {
	return t.root
}

// Add registers svc under layer.
func (t *SupervisorTree) Add(layer Layer, svc suture.Service) (suture.ServiceToken, error) {
	sup, ok := t.layers[layer]
	if !ok {
		return suture.ServiceToken{}, fmt.Errorf("unknown supervisor layer %q", layer)
	}
	return sup.Add(svc), nil
}

// Remove stops and unregisters the service behind token.
func (t *SupervisorTree) Remove(layer Layer, token suture.ServiceToken) error {
	sup, ok := t.layers[layer]
	if !ok {
		return fmt.Errorf("unknown supervisor layer %q", layer)
	}
	return sup.Remove(token)
}

// AddPipelineService registers svc in the pipeline layer.
func (t *SupervisorTree) AddPipelineService(svc suture.Service) suture.ServiceToken {
	return t.layers[LayerPipeline].Add(svc)
}

// AddAPIService registers svc in the api layer.
func (t *SupervisorTree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.layers[LayerAPI].Add(svc)
}

// Serve runs the tree until ctx is canceled.
func (t *SupervisorTree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in a goroutine. The channel yields the
// result once the tree stops.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that outlived ShutdownTimeout.
func (t *SupervisorTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
