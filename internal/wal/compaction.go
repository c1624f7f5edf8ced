// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package wal

import (
	"context"
	"sync"
	"time"

	"github.com/Renjie1997/movie-rec/internal/logging"
)

// Compactor periodically runs value log garbage collection. Expired entries
// are dropped by BadgerDB itself through their TTL.
type Compactor struct {
	wal      *BadgerWAL
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
	lastRun time.Time
}

// NewCompactor creates a compactor for w.
func NewCompactor(w *BadgerWAL) *Compactor {
	interval := w.config.CompactInterval
	if interval == 0 {
		interval = time.Hour
	}
	return &Compactor{wal: w, interval: interval}
}

// Start begins the background loop. Calling it while running is a no-op.
func (c *Compactor) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.running = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run()

	logging.Info().Dur("interval", c.interval).Msg("WAL compactor started")
	return nil
}

// Stop ends the loop and waits for it to exit.
func (c *Compactor) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.running = false
	c.mu.Unlock()

	c.wg.Wait()
	logging.Info().Msg("WAL compactor stopped")
}

// IsRunning reports whether the loop is active.
func (c *Compactor) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// LastRun returns when the last compaction finished.
func (c *Compactor) LastRun() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRun
}

func (c *Compactor) run() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if err := c.RunNow(); err != nil {
				logging.Error().Err(err).Msg("WAL compaction GC error")
			}
		}
	}
}

// RunNow compacts immediately.
func (c *Compactor) RunNow() error {
	start := time.Now()
	err := c.wal.RunGC()

	c.mu.Lock()
	c.lastRun = time.Now()
	c.mu.Unlock()

	stats := c.wal.Stats()
	logging.Debug().
		Int64("pending", stats.PendingCount).
		Dur("duration", time.Since(start)).
		Msg("WAL compaction finished")
	return err
}
