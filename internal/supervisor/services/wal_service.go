// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package services

import (
	"context"
	"fmt"
)

// StartStopper is a component with a Start/Stop background loop.
//
// Satisfied by *wal.Compactor.
type StartStopper interface {
	Start(ctx context.Context) error
	Stop()
	IsRunning() bool
}

// WALCompactorService runs the outbox compactor under supervision.
//
//	compactor := wal.NewCompactor(w)
//	tree.AddDataService(services.NewWALCompactorService(compactor))
type WALCompactorService struct {
	compactor StartStopper
	name      string
}

// NewWALCompactorService creates a new WAL compactor service wrapper.
func NewWALCompactorService(compactor StartStopper) *WALCompactorService {
	return &WALCompactorService{
		compactor: compactor,
		name:      "wal-compactor",
	}
}

// Serve implements suture.Service. A Start error is returned so suture
// restarts the service with backoff.
func (s *WALCompactorService) Serve(ctx context.Context) error {
	if err := s.compactor.Start(ctx); err != nil {
		return fmt.Errorf("WAL compactor start failed: %w", err)
	}

	<-ctx.Done()

	// Stop blocks until the compaction goroutine has exited.
	s.compactor.Stop()

	return ctx.Err()
}

// String implements fmt.Stringer for suture logs.
func (s *WALCompactorService) String() string {
	return s.name
}
