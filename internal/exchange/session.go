// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package exchange

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Renjie1997/movie-rec/internal/logging"
)

// session is one run of the protocol. It is created by Coordinator.Run and
// referenced only by that call, its runner goroutine, its broker callback
// and its timer.
type session struct {
	id      string
	date    string
	userIDs []string
	started time.Time

	// ctx is canceled when the session finishes, aborting in-flight
	// publishes and the subscription.
	ctx    context.Context
	cancel context.CancelFunc

	// pacer spaces consecutive publishes by the configured gap.
	pacer *pacer

	logger zerolog.Logger

	mu          sync.Mutex
	state       State
	results     ResultMap
	timer       *time.Timer
	outcome     Outcome
	accepted    int
	stale       int
	malformed   int
	updateLines int
	finished    time.Time

	// final is the ResultMap snapshot taken at completion. It is written
	// before done is closed and read only after.
	final ResultMap

	once sync.Once
	done chan struct{}
}

func newSession(parent context.Context, date string, userIDs []string, gap time.Duration, logger zerolog.Logger) *session {
	id := uuid.New().String()
	ctx, cancel := context.WithCancel(logging.ContextWithSessionID(context.WithoutCancel(parent), id))

	return &session{
		id:      id,
		date:    date,
		userIDs: userIDs,
		started: time.Now(),
		ctx:     ctx,
		cancel:  cancel,
		pacer:   newPacer(gap),
		logger:  logger.With().Str("session_id", id).Logger(),
		state:   StateIdle,
		results: make(ResultMap),
		done:    make(chan struct{}),
	}
}

// advance moves the session to the given state unless it has already
// finished. It reports whether the transition happened.
func (s *session) advance(to State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished.IsZero() {
		return false
	}
	s.logger.Debug().Str("from", s.state.String()).Str("to", to.String()).Msg("Session state changed")
	s.state = to
	return true
}

// State returns the current state.
func (s *session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *session) isFinished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.finished.IsZero()
}

func (s *session) report() Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Report{
		SessionID:   s.id,
		Date:        s.date,
		Outcome:     s.outcome,
		Requested:   len(s.userIDs),
		Accepted:    s.accepted,
		Stale:       s.stale,
		Malformed:   s.malformed,
		UpdateLines: s.updateLines,
		StartedAt:   s.started,
		Duration:    s.finished.Sub(s.started),
	}
}

// pacer serializes the publishes of a session and keeps at least gap
// between the end of one successful publish and the start of the next.
type pacer struct {
	mu    sync.Mutex
	gap   time.Duration
	limit *rate.Limiter
}

func newPacer(gap time.Duration) *pacer {
	return &pacer{gap: gap, limit: rate.NewLimiter(rate.Inf, 1)}
}

// do waits out the gap, runs publish and restarts the gap once it succeeds.
// A failed publish leaves the previous gap in place.
func (p *pacer) do(ctx context.Context, publish func() error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.limit.Wait(ctx); err != nil {
		return err
	}
	if err := publish(); err != nil {
		return err
	}
	if p.gap > 0 {
		p.limit = rate.NewLimiter(rate.Every(p.gap), 1)
		p.limit.AllowN(time.Now(), 1)
	}
	return nil
}
