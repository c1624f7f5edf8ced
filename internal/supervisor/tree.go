// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

// Package supervisor runs the long-lived parts of movie-rec under a suture
// supervisor tree.
//
//	movie-rec
//	├── data-layer       WAL compactor
//	├── messaging-layer  embedded NATS server, daily exchange scheduler
//	└── api-layer        HTTP server
//
// A service that returns an error is restarted with backoff; a crash in one
// layer leaves the others running. Layers without services are not created.
// Service adapters live in the services subpackage.
package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// ErrNoServices is returned by NewTree when every service is nil.
var ErrNoServices = errors.New("supervisor tree has no services")

// Layer names as they appear in suture events.
const (
	LayerData      = "data-layer"
	LayerMessaging = "messaging-layer"
	LayerAPI       = "api-layer"
)

// TreeConfig holds restart policy settings. Zero values take the defaults.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	FailureThreshold float64

	// FailureDecay is the failure decay rate in seconds.
	FailureDecay float64

	// FailureBackoff is the wait once the threshold is exceeded.
	FailureBackoff time.Duration

	// ShutdownTimeout bounds how long a service may take to stop. serve sets
	// it above the broker disconnect timeout so a session can clear its
	// retained message on shutdown.
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns suture's own defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

func (c TreeConfig) withDefaults() TreeConfig {
	d := DefaultTreeConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.FailureDecay <= 0 {
		c.FailureDecay = d.FailureDecay
	}
	if c.FailureBackoff <= 0 {
		c.FailureBackoff = d.FailureBackoff
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	return c
}

// Services are the long-lived components of a serve process. Nil entries
// are skipped.
type Services struct {
	// Compactor runs in the data layer.
	Compactor suture.Service

	// NATS and Scheduler run in the messaging layer, NATS first.
	NATS      suture.Service
	Scheduler suture.Service

	// HTTP runs in the api layer.
	HTTP suture.Service
}

// Tree is the root supervisor with one child per populated layer.
type Tree struct {
	root   *suture.Supervisor
	layers []string
	config TreeConfig
}

// NewTree builds the tree for svcs.
func NewTree(logger *slog.Logger, config TreeConfig, svcs Services) (*Tree, error) {
	config = config.withDefaults()

	spec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	// Children inherit the event hook from the root.
	rootSpec := spec
	rootSpec.EventHook = (&sutureslog.Handler{Logger: logger}).MustHook()

	t := &Tree{
		root:   suture.New("movie-rec", rootSpec),
		config: config,
	}
	t.addLayer(LayerData, spec, svcs.Compactor)
	t.addLayer(LayerMessaging, spec, svcs.NATS, svcs.Scheduler)
	t.addLayer(LayerAPI, spec, svcs.HTTP)

	if len(t.layers) == 0 {
		return nil, ErrNoServices
	}
	return t, nil
}

func (t *Tree) addLayer(name string, spec suture.Spec, members ...suture.Service) {
	var layer *suture.Supervisor
	for _, svc := range members {
		if svc == nil {
			continue
		}
		if layer == nil {
			layer = suture.New(name, spec)
		}
		layer.Add(svc)
	}
	if layer != nil {
		t.root.Add(layer)
		t.layers = append(t.layers, name)
	}
}

// Layers lists the layers that were created, in start order.
func (t *Tree) Layers() []string {
	return append([]string(nil), t.layers...)
}

// Serve runs the tree until ctx is canceled.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in a goroutine; the channel yields its result.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that missed the shutdown timeout.
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
