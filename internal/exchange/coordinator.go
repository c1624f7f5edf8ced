// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Renjie1997/movie-rec/internal/logging"
	"github.com/Renjie1997/movie-rec/internal/metrics"
	"github.com/Renjie1997/movie-rec/internal/protocol"
)

// Coordinator runs exchange sessions against a broker, one at a time.
type Coordinator struct {
	broker  Broker
	updates UpdateSource
	config  Config
	now     func() time.Time
	logger  zerolog.Logger

	// active holds a token from the start of a session until its
	// background disconnect has finished.
	active chan struct{}

	lastMu sync.RWMutex
	last   *Report
}

// NewCoordinator creates a coordinator. updates may be nil, in which case no
// UPDATE message is ever published.
func NewCoordinator(broker Broker, updates UpdateSource, cfg Config) (*Coordinator, error) {
	if broker == nil {
		return nil, ErrNilBroker
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("%w: topic is required", ErrInvalidConfig)
	}
	if cfg.Timeout < 0 || cfg.PublishGap < 0 || cfg.DisconnectTimeout < 0 {
		return nil, fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}

	defaults := DefaultConfig()
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.PublishGap == 0 {
		cfg.PublishGap = defaults.PublishGap
	}
	if cfg.DisconnectTimeout == 0 {
		cfg.DisconnectTimeout = defaults.DisconnectTimeout
	}

	return &Coordinator{
		broker:  broker,
		updates: updates,
		config:  cfg,
		now:     time.Now,
		logger:  logging.Component("exchange"),
		active:  make(chan struct{}, 1),
	}, nil
}

// SetNowFunc replaces the clock used for protocol dates.
func (c *Coordinator) SetNowFunc(now func() time.Time) {
	c.now = now
}

// SetLogger replaces the coordinator logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func (c *Coordinator) SetLogger(l zerolog.Logger) {
	c.logger = l
}

// Config returns the effective configuration.
func (c *Coordinator) Config() Config {
	return c.config
}

// LastReport returns the report of the most recent finished session.
func (c *Coordinator) LastReport() (Report, bool) {
	c.lastMu.RLock()
	defer c.lastMu.RUnlock()
	if c.last == nil {
		return Report{}, false
	}
	return *c.last, true
}

// Run executes one session for the given user ids and blocks until it
// reaches a terminal state. The returned map holds every accepted record,
// also when the session timed out. The error is non-nil only when ctx ended
// before a session could start.
func (c *Coordinator) Run(ctx context.Context, userIDs []string) (ResultMap, Report, error) {
	select {
	case c.active <- struct{}{}:
	case <-ctx.Done():
		return nil, Report{}, fmt.Errorf("wait for previous session: %w", ctx.Err())
	}
	metrics.TrackActiveSession(true)

	s := newSession(ctx, protocol.Today(c.now()), userIDs, c.config.PublishGap, c.logger)
	s.logger.Info().
		Str("date", s.date).
		Int("users", len(userIDs)).
		Str("topic", c.config.Topic).
		Msg("Exchange session starting")

	go c.drive(s)

	select {
	case <-s.done:
	case <-ctx.Done():
		s.logger.Warn().Err(ctx.Err()).Msg("Exchange session canceled by caller")
		c.finish(s, OutcomeCanceled)
		<-s.done
	}

	report := s.report()
	c.lastMu.Lock()
	c.last = &report
	c.lastMu.Unlock()

	metrics.RecordSession(string(report.Outcome), report.Duration)
	s.logger.Info().
		Str("outcome", string(report.Outcome)).
		Int("accepted", report.Accepted).
		Int("stale", report.Stale).
		Int("malformed", report.Malformed).
		Int("update_lines", report.UpdateLines).
		Dur("duration", report.Duration).
		Msg("Exchange session finished")

	return s.final, report, nil
}

// drive is the session runner: connect, subscribe, arm the timer and
// publish the REQUEST. Everything after that happens in the broker callback.
func (c *Coordinator) drive(s *session) {
	// The timer is armed before connecting so that a stalled connect cannot
	// keep the session alive past its timeout.
	c.armTimer(s)

	if !s.advance(StateConnecting) {
		return
	}
	if err := c.broker.Connect(s.ctx); err != nil {
		s.logger.Error().Err(err).Msg("Error when connecting to broker")
	} else {
		s.logger.Info().Msg("Connection established")
	}
	metrics.SetBrokerConnected(c.broker.IsConnected())

	if err := c.broker.Subscribe(s.ctx, c.config.Topic, func(topic string, payload []byte) {
		c.onMessage(s, topic, payload)
	}); err != nil {
		s.logger.Error().Err(err).Str("topic", c.config.Topic).Msg("Error when subscribing to topic")
	} else {
		s.logger.Info().Str("topic", c.config.Topic).Msg("Subscribed to topic")
	}
	if !s.advance(StateSubscribed) {
		return
	}

	if len(s.userIDs) == 0 {
		s.logger.Warn().Msg("No users will be recommended")
		_ = c.publish(s, protocol.NewRequest(s.date, nil))
		c.finish(s, OutcomeNoOp)
		return
	}

	// The state moves first so that a fast scheduler reply is never seen
	// in the Subscribed state.
	if !s.advance(StateRequestSent) {
		return
	}
	_ = c.publish(s, protocol.NewRequest(s.date, s.userIDs))
}

func (c *Coordinator) armTimer(s *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timer = time.AfterFunc(c.config.Timeout, func() {
		s.logger.Warn().Dur("timeout", c.config.Timeout).Msg("Exchange session timed out")
		c.finish(s, OutcomeTimedOut)
	})
}

// onMessage is the broker callback for the session.
func (c *Coordinator) onMessage(s *session, topic string, payload []byte) {
	if topic != c.config.Topic {
		s.logger.Warn().Str("topic", topic).Msg("Message on unknown topic ignored")
		return
	}

	msg, ok := protocol.DecodePayload(payload)
	metrics.RecordReceive(msg.Kind.String())
	if !ok {
		s.logger.Debug().Int("bytes", len(payload)).Msg("Message without known tag ignored")
		return
	}
	if msg.Kind != protocol.KindResult {
		s.logger.Debug().Str("kind", msg.Kind.String()).Msg("Message ignored")
		return
	}

	c.onResult(s, msg)
}

// onResult applies a RESULT batch and completes the handshake. Only the
// first RESULT after the REQUEST is processed.
func (c *Coordinator) onResult(s *session, msg protocol.Message) {
	now := c.now()

	s.mu.Lock()
	if s.state != StateRequestSent || !s.finished.IsZero() {
		state := s.state
		s.mu.Unlock()
		s.logger.Warn().Str("state", state.String()).Msg("Result ignored outside of request_sent")
		return
	}
	s.state = StateResultReceived

	if msg.IsNull() {
		s.logger.Warn().Msg("No results received")
	} else {
		records, malformed := protocol.ParseResult(msg.Body)
		for _, raw := range malformed {
			s.logger.Warn().Str("record", raw).Msg("Malformed result record skipped")
		}
		s.malformed += len(malformed)

		yesterday := protocol.Yesterday(now)
		for _, r := range records {
			if protocol.IsStale(r.Date, now) {
				s.logger.Warn().
					Str("user_id", r.UserID).
					Str("date", r.Date).
					Str("yesterday", yesterday).
					Msg("Stale result record rejected")
				s.stale++
				continue
			}
			s.results[r.UserID] = r.MovieIDs
			s.accepted++
		}
	}
	accepted, stale, malformedCount := s.accepted, s.stale, s.malformed
	s.mu.Unlock()

	metrics.RecordResultRecords("accepted", accepted)
	metrics.RecordResultRecords("stale", stale)
	metrics.RecordResultRecords("malformed", malformedCount)
	s.logger.Info().Int("accepted", accepted).Msg("Result received")

	c.completeHandshake(s, accepted)
}

// completeHandshake publishes the staged updates and the confirmation, then
// finishes the session.
func (c *Coordinator) completeHandshake(s *session, accepted int) {
	if lines := c.drainUpdates(s); len(lines) > 0 {
		if err := c.publish(s, protocol.NewUpdate(lines)); err != nil {
			c.unsentUpdates(s, len(lines))
		} else {
			s.mu.Lock()
			s.updateLines = len(lines)
			s.mu.Unlock()
			metrics.UpdateLinesPublished.Add(float64(len(lines)))
			c.commitUpdates(s)
		}
	}

	if s.isFinished() {
		return
	}
	if err := c.publish(s, protocol.NewConfirm(fmt.Sprintf("%d results received", accepted))); err == nil {
		s.advance(StateConfirmed)
	}
	c.finish(s, OutcomeConfirmed)
}

func (c *Coordinator) drainUpdates(s *session) []string {
	if c.updates == nil {
		return nil
	}
	lines, err := c.updates.Drain(s.ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error when reading staged updates")
		return nil
	}
	return lines
}

// unsentUpdates reports drained lines whose UPDATE was not published. A
// Committer re-offers them next session; any other source has already
// deleted them.
func (c *Coordinator) unsentUpdates(s *session, n int) {
	if _, ok := c.updates.(Committer); ok {
		s.logger.Warn().Int("lines", n).Msg("Staged updates kept for the next session")
		return
	}
	metrics.UpdateLinesDropped.Add(float64(n))
	s.logger.Error().Int("lines", n).Msg("Staged updates lost: drained but never published")
}

func (c *Coordinator) commitUpdates(s *session) {
	committer, ok := c.updates.(Committer)
	if !ok {
		return
	}
	if err := committer.Commit(s.ctx); err != nil {
		s.logger.Error().Err(err).Msg("Error when committing published updates")
	}
}

// publish sends one message, respecting the session's publish gap.
func (c *Coordinator) publish(s *session, msg protocol.Message) error {
	kind := msg.Kind.String()
	payload, err := protocol.EncodePayload(msg)
	if err != nil {
		s.logger.Error().Err(err).Str("kind", kind).Msg("Error when encoding message")
		return err
	}

	var sendErr error
	err = s.pacer.do(s.ctx, func() error {
		sendErr = c.broker.Publish(s.ctx, c.config.Topic, payload)
		metrics.RecordPublish(kind, sendErr)
		return sendErr
	})
	switch {
	case sendErr != nil:
		s.logger.Error().Err(sendErr).Str("kind", kind).Str("topic", c.config.Topic).Msg("Error when publishing")
		return sendErr
	case err != nil:
		s.logger.Warn().Err(err).Str("kind", kind).Msg("Publish abandoned")
		return err
	}
	s.logger.Info().Str("kind", kind).Int("bytes", len(payload)).Msg("Published")
	return nil
}

// finish moves the session to its terminal state exactly once: the timer is
// released, the retained topic content is cleared, the caller is unblocked
// and the broker is disconnected in the background.
func (c *Coordinator) finish(s *session, outcome Outcome) {
	s.once.Do(func() {
		s.mu.Lock()
		if outcome == OutcomeTimedOut {
			s.state = StateTimedOut
		}
		s.outcome = outcome
		s.state = StateDisconnecting
		s.finished = time.Now()
		if s.timer != nil {
			s.timer.Stop()
		}
		s.final = s.results.Clone()
		s.mu.Unlock()

		s.cancel()

		ctx, cancel := context.WithTimeout(context.Background(), c.config.DisconnectTimeout)
		if c.broker.IsConnected() {
			if err := c.broker.ClearRetained(ctx, c.config.Topic); err != nil {
				s.logger.Error().Err(err).Msg("Error when cleaning broker")
			} else {
				s.logger.Info().Msg("Broker cleaned")
			}
		}

		close(s.done)
		go c.disconnect(ctx, cancel, s)
	})
}

// disconnect closes the broker connection and releases the session slot.
func (c *Coordinator) disconnect(ctx context.Context, cancel context.CancelFunc, s *session) {
	defer func() {
		cancel()
		s.mu.Lock()
		s.state = StateIdle
		s.mu.Unlock()
		metrics.TrackActiveSession(false)
		<-c.active
	}()

	if !c.broker.IsConnected() {
		return
	}
	s.logger.Info().Msg("Disconnecting from broker")
	if err := c.broker.Disconnect(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Error when disconnecting from broker")
		return
	}
	metrics.SetBrokerConnected(false)
	s.logger.Info().Msg("Disconnected")
}
