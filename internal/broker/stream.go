// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Renjie1997/movie-rec/internal/logging"
)

// StreamConfig describes the stream backing the exchange topic.
type StreamConfig struct {
	Name            string
	Topic           string
	MaxAge          time.Duration
	DuplicateWindow time.Duration
	MemoryStorage   bool
}

// StreamManager handles the JetStream stream lifecycle.
type StreamManager struct {
	js     jetstream.JetStream
	config StreamConfig
}

// NewStreamManager creates a stream manager on an established connection.
func NewStreamManager(nc *nats.Conn, cfg StreamConfig) (*StreamManager, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	return &StreamManager{js: js, config: cfg}, nil
}

// EnsureStream creates the stream or updates an existing one.
func (m *StreamManager) EnsureStream(ctx context.Context) (jetstream.Stream, error) {
	storage := jetstream.FileStorage
	if m.config.MemoryStorage {
		storage = jetstream.MemoryStorage
	}

	// One message per subject is the retained last value.
	streamCfg := jetstream.StreamConfig{
		Name:              m.config.Name,
		Subjects:          []string{m.config.Topic},
		Retention:         jetstream.LimitsPolicy,
		MaxMsgsPerSubject: 1,
		MaxAge:            m.config.MaxAge,
		Duplicates:        m.config.DuplicateWindow,
		Storage:           storage,
		Discard:           jetstream.DiscardOld,
	}

	if _, err := m.js.Stream(ctx, m.config.Name); err == nil {
		stream, err := m.js.UpdateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("update stream: %w", err)
		}
		return stream, nil
	}

	stream, err := m.js.CreateStream(ctx, streamCfg)
	if err != nil {
		return nil, fmt.Errorf("create stream: %w", err)
	}
	return stream, nil
}

// PurgeSubject removes the retained message of subject.
func (m *StreamManager) PurgeSubject(ctx context.Context, subject string) error {
	stream, err := m.js.Stream(ctx, m.config.Name)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}
	if err := stream.Purge(ctx, jetstream.WithPurgeSubject(subject)); err != nil {
		return fmt.Errorf("purge %s: %w", subject, err)
	}
	return nil
}

// RetainedCount returns the number of messages held by the stream.
func (m *StreamManager) RetainedCount(ctx context.Context) (uint64, error) {
	stream, err := m.js.Stream(ctx, m.config.Name)
	if err != nil {
		return 0, fmt.Errorf("get stream: %w", err)
	}
	info, err := stream.Info(ctx)
	if err != nil {
		return 0, fmt.Errorf("stream info: %w", err)
	}
	return info.State.Msgs, nil
}

// DeleteStream removes the stream and its retained message. It reports
// false when the stream did not exist.
func (m *StreamManager) DeleteStream(ctx context.Context) (bool, error) {
	err := m.js.DeleteStream(ctx, m.config.Name)
	if errors.Is(err, jetstream.ErrStreamNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete stream %s: %w", m.config.Name, err)
	}
	return true, nil
}

// ResetStream deletes the exchange stream on the server at cfg.URL. The next
// Connect recreates it from cfg, which is the way to apply settings that
// JetStream refuses to update in place, such as the storage type.
func ResetStream(ctx context.Context, cfg Config) (bool, error) {
	if err := cfg.Validate(); err != nil {
		return false, err
	}
	nc, err := nats.Connect(cfg.URL, nats.Name(cfg.ClientName))
	if err != nil {
		return false, fmt.Errorf("connect to %s: %w", cfg.URL, err)
	}
	defer nc.Close()

	streams, err := NewStreamManager(nc, StreamConfig{Name: cfg.StreamName, Topic: cfg.Topic})
	if err != nil {
		return false, err
	}
	deleted, err := streams.DeleteStream(ctx)
	if err != nil {
		return false, err
	}
	logging.Info().
		Str("stream", cfg.StreamName).
		Bool("existed", deleted).
		Msg("Exchange stream reset")
	return deleted, nil
}
