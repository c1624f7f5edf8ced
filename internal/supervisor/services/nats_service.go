// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package services

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrServerStopped is returned by Serve when the embedded server dies.
var ErrServerStopped = errors.New("embedded NATS server stopped")

// EmbeddedNATS is the lifecycle subset of *broker.EmbeddedServer.
type EmbeddedNATS interface {
	Shutdown(ctx context.Context) error
	IsRunning() bool
}

// NATSServerService keeps the embedded NATS server alive. The server handed
// to the constructor is adopted as is; after it dies, start builds a
// replacement on the next Serve.
type NATSServerService struct {
	start           func() (EmbeddedNATS, error)
	current         EmbeddedNATS
	checkInterval   time.Duration
	shutdownTimeout time.Duration
	name            string
}

// NewNATSServerService supervises running (may be nil) and restarts it with
// start.
func NewNATSServerService(running EmbeddedNATS, start func() (EmbeddedNATS, error)) *NATSServerService {
	return &NATSServerService{
		start:           start,
		current:         running,
		checkInterval:   5 * time.Second,
		shutdownTimeout: 10 * time.Second,
		name:            "nats-server",
	}
}

// Serve implements suture.Service.
func (s *NATSServerService) Serve(ctx context.Context) error {
	if s.current == nil || !s.current.IsRunning() {
		srv, err := s.start()
		if err != nil {
			return fmt.Errorf("embedded NATS start failed: %w", err)
		}
		s.current = srv
	}

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			defer cancel()
			if err := s.current.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("embedded NATS shutdown failed: %w", err)
			}
			return ctx.Err()
		case <-ticker.C:
			if !s.current.IsRunning() {
				return ErrServerStopped
			}
		}
	}
}

// String implements fmt.Stringer for suture logs.
func (s *NATSServerService) String() string {
	return s.name
}
