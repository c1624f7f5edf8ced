// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package wal

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid WAL configuration")

// Config holds the outbox storage configuration.
type Config struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in memory. Only useful for tests.
	InMemory bool

	// SyncWrites forces fsync after every write.
	// Default: true
	SyncWrites bool

	// EntryTTL is how long an unconfirmed entry is kept.
	// Default: 168h
	EntryTTL time.Duration

	// CompactInterval is the time between value log GC runs.
	// Default: 1h
	CompactInterval time.Duration

	// GCRatio is the value log GC discard ratio.
	// Default: 0.5
	GCRatio float64

	// MemTableSize is the BadgerDB memtable size in bytes.
	// Default: 16MB
	MemTableSize int64

	// ValueLogFileSize is the BadgerDB value log file size in bytes.
	// Default: 64MB
	ValueLogFileSize int64
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Path:             "/data/wal",
		SyncWrites:       true,
		EntryTTL:         7 * 24 * time.Hour,
		CompactInterval:  time.Hour,
		GCRatio:          0.5,
		MemTableSize:     16 << 20,
		ValueLogFileSize: 64 << 20,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !c.InMemory && c.Path == "" {
		return fmt.Errorf("%w: path is required", ErrInvalidConfig)
	}
	if c.EntryTTL < 0 {
		return fmt.Errorf("%w: entry TTL must not be negative", ErrInvalidConfig)
	}
	if c.CompactInterval < time.Minute && c.CompactInterval != 0 {
		return fmt.Errorf("%w: compact interval must be at least 1m", ErrInvalidConfig)
	}
	if c.GCRatio < 0 || c.GCRatio >= 1 {
		return fmt.Errorf("%w: GC ratio must be in [0, 1)", ErrInvalidConfig)
	}
	return nil
}
