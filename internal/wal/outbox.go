// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package wal

import (
	"context"
	"fmt"
	"sync"

	"github.com/Renjie1997/movie-rec/internal/exchange"
	"github.com/Renjie1997/movie-rec/internal/logging"
)

// Outbox wraps a destructive update source with the WAL.
type Outbox struct {
	wal    *BadgerWAL
	source exchange.UpdateSource

	mu       sync.Mutex
	inFlight []string
}

var (
	_ exchange.UpdateSource = (*Outbox)(nil)
	_ exchange.Committer    = (*Outbox)(nil)
)

// NewOutbox returns an outbox draining source into w.
func NewOutbox(w *BadgerWAL, source exchange.UpdateSource) *Outbox {
	return &Outbox{wal: w, source: source}
}

// Drain returns every unconfirmed line: those left over from earlier sessions
// first, then the lines newly drained from the source. New lines are durable
// before Drain returns. A failing source or WAL write is logged and the
// lines that could be gathered are still returned, so the session ships them.
func (o *Outbox) Drain(ctx context.Context) ([]string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	pending, err := o.wal.Pending(ctx)
	if err != nil {
		return nil, fmt.Errorf("read pending updates: %w", err)
	}

	fresh, err := o.source.Drain(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Error when draining staged updates")
	}

	written, werr := o.wal.Write(ctx, fresh)
	if werr != nil {
		logging.Error().Err(werr).Int("lines", len(fresh)).Msg("Error when persisting drained updates to the WAL")
	}

	if len(pending) > 0 {
		if err := o.wal.MarkAttempt(ctx, pending); err != nil {
			logging.Warn().Err(err).Msg("Error when recording outbox attempt")
		}
		logging.Info().Int("pending", len(pending)).Msg("Resending updates from an earlier session")
	}

	lines := make([]string, 0, len(pending)+len(fresh))
	o.inFlight = o.inFlight[:0]
	for _, e := range pending {
		lines = append(lines, e.Line)
		o.inFlight = append(o.inFlight, e.ID)
	}
	if werr != nil {
		lines = append(lines, fresh...)
	} else {
		for _, e := range written {
			lines = append(lines, e.Line)
			o.inFlight = append(o.inFlight, e.ID)
		}
	}
	return lines, nil
}

// Commit confirms the lines returned by the last Drain.
func (o *Outbox) Commit(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.inFlight) == 0 {
		return nil
	}
	if _, err := o.wal.Confirm(ctx, o.inFlight...); err != nil {
		return fmt.Errorf("confirm published updates: %w", err)
	}
	o.inFlight = o.inFlight[:0]
	return nil
}
