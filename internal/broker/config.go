// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package broker

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned for unusable transport settings.
var ErrInvalidConfig = errors.New("invalid broker configuration")

// Config holds the broker client configuration.
type Config struct {
	// URL is the NATS server connection URL.
	URL string

	// ClientName identifies this process on the broker.
	ClientName string

	// Topic is the exchange topic; it doubles as the stream subject.
	Topic string

	// StreamName is the JetStream stream holding the topic.
	StreamName string

	// MemoryStorage keeps the stream in memory instead of on disk.
	MemoryStorage bool

	// MaxAge bounds how long a retained message survives when nobody clears it.
	MaxAge time.Duration

	// DuplicateWindow is the Nats-Msg-Id de-duplication window.
	DuplicateWindow time.Duration

	// MaxReconnects is the reconnect limit; -1 reconnects forever.
	MaxReconnects int

	// ReconnectWait is the delay between reconnect attempts.
	ReconnectWait time.Duration

	// AckWaitTimeout is how long the broker waits for a consumer ack.
	AckWaitTimeout time.Duration

	// CloseTimeout bounds closing the subscriber.
	CloseTimeout time.Duration

	// Breaker configures the publish circuit breaker.
	Breaker CircuitBreakerConfig
}

// CircuitBreakerConfig configures the publish circuit breaker.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		URL:             "nats://127.0.0.1:4222",
		ClientName:      "Recommender",
		Topic:           "MRSYSCOMMUNICATION",
		StreamName:      "MRSYS",
		MaxAge:          48 * time.Hour,
		DuplicateWindow: 2 * time.Minute,
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		AckWaitTimeout:  30 * time.Second,
		CloseTimeout:    10 * time.Second,
		Breaker: CircuitBreakerConfig{
			Name:             "broker-publish",
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
		},
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidConfig)
	}
	if c.Topic == "" {
		return fmt.Errorf("%w: topic is required", ErrInvalidConfig)
	}
	if c.StreamName == "" {
		return fmt.Errorf("%w: stream name is required", ErrInvalidConfig)
	}
	if c.DuplicateWindow < 0 || c.MaxAge < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	return nil
}
