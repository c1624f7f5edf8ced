// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package config

import (
	"errors"
	"fmt"

	"github.com/Renjie1997/movie-rec/internal/validation"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, verr.Error())
	}

	checks := []func() error{
		c.validateExchange,
		c.validateWAL,
		c.validateEmbedded,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

func (c *Config) validateExchange() error {
	if c.Exchange.PublishGap >= c.Exchange.Timeout {
		return fmt.Errorf("exchange.publish_gap (%s) must be shorter than exchange.timeout (%s)",
			c.Exchange.PublishGap, c.Exchange.Timeout)
	}
	return nil
}

func (c *Config) validateWAL() error {
	if !c.WAL.Enabled {
		return nil
	}
	if c.WAL.Path == "" {
		return errors.New("wal.path is required when the WAL is enabled")
	}
	outbox := c.OutboxConfig()
	return outbox.Validate()
}

func (c *Config) validateEmbedded() error {
	if !c.Broker.Embedded {
		return nil
	}
	if c.Broker.StoreDir == "" && !c.Broker.MemoryStorage {
		return errors.New("broker.store_dir is required for the embedded server")
	}
	return nil
}
