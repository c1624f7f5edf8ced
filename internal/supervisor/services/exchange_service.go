// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

// Package services adapts movie-rec components to suture.Service.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Renjie1997/movie-rec/internal/recommend"
)

// ErrInvalidSchedule is returned for a run time that is not HH:MM.
var ErrInvalidSchedule = errors.New("invalid schedule time")

// RecommendRunner runs one recommendation cycle. Satisfied by
// *recommend.Recommender.
type RecommendRunner interface {
	Recommend(ctx context.Context, users []recommend.User) (recommend.Summary, error)
}

// CandidateFunc returns the users to request recommendations for.
type CandidateFunc func(ctx context.Context) ([]recommend.User, error)

// ExchangeServiceConfig holds the daily schedule.
type ExchangeServiceConfig struct {
	// At is the local wall-clock run time, "15:04" layout.
	// Default: 06:00
	At string

	// RunOnStartup runs one cycle as soon as the service starts.
	RunOnStartup bool

	// Location is the time zone of At. Default: time.Local
	Location *time.Location
}

// ExchangeService runs one recommendation cycle per day.
type ExchangeService struct {
	runner     RecommendRunner
	candidates CandidateFunc
	config     ExchangeServiceConfig
	logger     zerolog.Logger
	name       string

	hour   int
	minute int

	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	mu      sync.RWMutex
	lastRun time.Time
	last    *recommend.Summary
}

// NewExchangeService creates the daily exchange scheduler.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewExchangeService(runner RecommendRunner, candidates CandidateFunc, cfg ExchangeServiceConfig, logger zerolog.Logger) (*ExchangeService, error) {
	if runner == nil || candidates == nil {
		return nil, errors.New("exchange service needs a runner and a candidate source")
	}
	if cfg.At == "" {
		cfg.At = "06:00"
	}
	at, err := time.Parse("15:04", cfg.At)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSchedule, cfg.At)
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	return &ExchangeService{
		runner:     runner,
		candidates: candidates,
		config:     cfg,
		hour:       at.Hour(),
		minute:     at.Minute(),
		logger:     logger.With().Str("service", "exchange").Logger(),
		name:       "exchange-scheduler",
		now:        time.Now,
		after:      time.After,
	}, nil
}

// SetClock replaces the clock and timer used for scheduling.
func (s *ExchangeService) SetClock(now func() time.Time, after func(time.Duration) <-chan time.Time) {
	s.now = now
	s.after = after
}

// NextRun returns the first scheduled run strictly after t.
func (s *ExchangeService) NextRun(t time.Time) time.Time {
	local := t.In(s.config.Location)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.hour, s.minute, 0, 0, s.config.Location)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Serve implements suture.Service. A failed cycle is logged and the next
// one is scheduled as usual.
func (s *ExchangeService) Serve(ctx context.Context) error {
	s.logger.Info().
		Str("at", s.config.At).
		Bool("run_on_startup", s.config.RunOnStartup).
		Msg("exchange scheduler starting")

	if s.config.RunOnStartup {
		s.RunOnce(ctx)
	}

	for {
		next := s.NextRun(s.now())
		s.logger.Debug().Time("next_run", next).Msg("next exchange scheduled")

		select {
		case <-ctx.Done():
			s.logger.Info().Msg("exchange scheduler shutting down")
			return ctx.Err()
		case <-s.after(next.Sub(s.now())):
			s.RunOnce(ctx)
		}
	}
}

// RunOnce runs a cycle now and returns its summary. ok is false when no
// session ran.
func (s *ExchangeService) RunOnce(ctx context.Context) (summary recommend.Summary, ok bool) {
	start := s.now()

	users, err := s.candidates(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load recommendation candidates")
		return recommend.Summary{}, false
	}

	summary, err = s.runner.Recommend(ctx, users)
	if err != nil {
		s.logger.Warn().Err(err).Msg("recommendation cycle did not run")
		return recommend.Summary{}, false
	}

	s.mu.Lock()
	s.lastRun = start
	s.last = &summary
	s.mu.Unlock()

	s.logger.Info().
		Int("users", len(users)).
		Str("outcome", string(summary.Report.Outcome)).
		Int("committed", summary.Committed).
		Int("skipped", summary.Skipped()).
		Msg("recommendation cycle complete")
	return summary, true
}

// Last returns the summary and start time of the last cycle that ran.
func (s *ExchangeService) Last() (recommend.Summary, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return recommend.Summary{}, time.Time{}, false
	}
	return *s.last, s.lastRun, true
}

// String implements fmt.Stringer for suture logs.
func (s *ExchangeService) String() string {
	return s.name
}
