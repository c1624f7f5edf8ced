// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package exchange

import (
	"context"
	"errors"
	"time"
)

// DefaultTopic is the topic shared with the scheduler.
const DefaultTopic = "MRSYSCOMMUNICATION"

var (
	// ErrNilBroker is returned when a coordinator is created without a broker.
	ErrNilBroker = errors.New("broker cannot be nil")

	// ErrInvalidConfig is returned for unusable coordinator settings.
	ErrInvalidConfig = errors.New("invalid exchange configuration")
)

// Handler receives raw inbound messages from the broker.
type Handler func(topic string, payload []byte)

// Broker is the publish/subscribe connection used by a session.
// Implementations publish with the highest delivery guarantee they offer and
// retain the last message of the topic for late subscribers.
type Broker interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, topic string, h Handler) error
	Publish(ctx context.Context, topic string, payload []byte) error
	// ClearRetained erases the retained message of the topic.
	ClearRetained(ctx context.Context, topic string) error
	Disconnect(ctx context.Context) error
	IsConnected() bool
}

// UpdateSource yields pending rating-update lines, consuming them.
type UpdateSource interface {
	Drain(ctx context.Context) ([]string, error)
}

// Committer is implemented by update sources that keep drained lines until
// they are known to have been published.
type Committer interface {
	Commit(ctx context.Context) error
}

// ResultMap maps user ids to their recommended movie ids in received order.
type ResultMap map[string][]string

// Clone returns a copy that shares no slices with m.
func (m ResultMap) Clone() ResultMap {
	out := make(ResultMap, len(m))
	for k, v := range m {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// State is a position in the session state machine.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateSubscribed
	StateRequestSent
	StateResultReceived
	StateTimedOut
	StateConfirmed
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateRequestSent:
		return "request_sent"
	case StateResultReceived:
		return "result_received"
	case StateTimedOut:
		return "timed_out"
	case StateConfirmed:
		return "confirmed"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// Outcome is how a session reached its terminal state.
type Outcome string

const (
	// OutcomeConfirmed means RESULT was received and CONFIRM published.
	OutcomeConfirmed Outcome = "confirmed"
	// OutcomeTimedOut means the session timer fired first.
	OutcomeTimedOut Outcome = "timed_out"
	// OutcomeNoOp means there were no users and a null REQUEST was sent.
	OutcomeNoOp Outcome = "noop"
	// OutcomeCanceled means the caller's context ended the session.
	OutcomeCanceled Outcome = "canceled"
)

// Report summarizes a finished session.
type Report struct {
	SessionID   string        `json:"session_id"`
	Date        string        `json:"date"`
	Outcome     Outcome       `json:"outcome"`
	Requested   int           `json:"requested"`
	Accepted    int           `json:"accepted"`
	Stale       int           `json:"stale"`
	Malformed   int           `json:"malformed"`
	UpdateLines int           `json:"update_lines"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration_ns"`
}

// Config holds coordinator settings.
type Config struct {
	// Topic is the single topic shared with the scheduler.
	Topic string

	// Timeout bounds a session from subscription to completion.
	// Default: 100s
	Timeout time.Duration

	// PublishGap is the minimum spacing between consecutive publishes in a
	// session, so that UPDATE and CONFIRM are not coalesced on the retained topic.
	// Default: 100ms
	PublishGap time.Duration

	// DisconnectTimeout bounds the background cleanup and disconnect.
	// Default: 10s
	DisconnectTimeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Topic:             DefaultTopic,
		Timeout:           100 * time.Second,
		PublishGap:        100 * time.Millisecond,
		DisconnectTimeout: 10 * time.Second,
	}
}
