// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package wal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/Renjie1997/movie-rec/internal/logging"
	"github.com/Renjie1997/movie-rec/internal/metrics"
)

var (
	// ErrWALClosed is returned by every operation after Close.
	ErrWALClosed = errors.New("WAL is closed")

	// ErrEmptyEntryID is returned by Confirm for an empty id.
	ErrEmptyEntryID = errors.New("entry ID cannot be empty")
)

const prefixPending = "pending:"

// Entry is one staged rating-update line awaiting delivery.
type Entry struct {
	ID        string    `json:"id"`
	Line      string    `json:"line"`
	CreatedAt time.Time `json:"created_at"`

	// Attempts counts the sessions that offered this entry.
	Attempts int `json:"attempts"`
}

// Stats contains WAL counters.
type Stats struct {
	PendingCount  int64
	TotalWrites   int64
	TotalConfirms int64
}

// BadgerWAL stores entries in BadgerDB.
type BadgerWAL struct {
	db     *badger.DB
	config Config

	totalWrites   atomic.Int64
	totalConfirms atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the WAL.
func Open(cfg Config) (*BadgerWAL, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites
	if cfg.MemTableSize > 0 {
		opts.MemTableSize = cfg.MemTableSize
	}
	if cfg.ValueLogFileSize > 0 && !cfg.InMemory {
		opts.ValueLogFileSize = cfg.ValueLogFileSize
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	w := &BadgerWAL{db: db, config: cfg}

	pending, err := w.countPending()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	metrics.OutboxPending.Set(float64(pending))

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Int64("pending", pending).
		Msg("WAL opened")
	return w, nil
}

func (w *BadgerWAL) checkOpen() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWALClosed
	}
	return nil
}

// Write persists lines in one transaction and returns their entries in
// order.
func (w *BadgerWAL) Write(ctx context.Context, lines []string) ([]*Entry, error) {
	if err := w.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, nil
	}

	entries := make([]*Entry, 0, len(lines))
	err := w.db.Update(func(txn *badger.Txn) error {
		for _, line := range lines {
			id, err := uuid.NewV7()
			if err != nil {
				return fmt.Errorf("generate entry id: %w", err)
			}
			entry := &Entry{
				ID:        id.String(),
				Line:      line,
				CreatedAt: time.Now().UTC(),
			}
			data, err := json.Marshal(entry)
			if err != nil {
				return fmt.Errorf("marshal entry: %w", err)
			}
			e := badger.NewEntry([]byte(prefixPending+entry.ID), data)
			if w.config.EntryTTL > 0 {
				e = e.WithTTL(w.config.EntryTTL)
			}
			if err := txn.SetEntry(e); err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("write to BadgerDB: %w", err)
	}

	w.totalWrites.Add(int64(len(entries)))
	metrics.OutboxWrites.Add(float64(len(entries)))
	metrics.OutboxPending.Add(float64(len(entries)))
	return entries, nil
}

// Pending returns every unconfirmed entry in write order.
func (w *BadgerWAL) Pending(ctx context.Context) ([]*Entry, error) {
	if err := w.checkOpen(); err != nil {
		return nil, err
	}

	var entries []*Entry
	err := w.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixPending)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()

			var entry Entry
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				logging.Warn().Err(err).Str("key", string(item.Key())).Msg("WAL failed to unmarshal entry")
				continue
			}
			entries = append(entries, &entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate pending entries: %w", err)
	}
	return entries, nil
}

// MarkAttempt increments the attempt counter of the given entries.
func (w *BadgerWAL) MarkAttempt(ctx context.Context, entries []*Entry) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return w.db.Update(func(txn *badger.Txn) error {
		for _, entry := range entries {
			entry.Attempts++
			data, err := json.Marshal(entry)
			if err != nil {
				return fmt.Errorf("marshal entry: %w", err)
			}
			e := badger.NewEntry([]byte(prefixPending+entry.ID), data)
			if w.config.EntryTTL > 0 {
				e = e.WithTTL(w.config.EntryTTL)
			}
			if err := txn.SetEntry(e); err != nil {
				return err
			}
		}
		return nil
	})
}

// Confirm removes delivered entries and returns how many were removed.
// Unknown ids (already confirmed or expired) are skipped.
func (w *BadgerWAL) Confirm(ctx context.Context, ids ...string) (int, error) {
	if err := w.checkOpen(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	removed := 0
	err := w.db.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			if id == "" {
				return ErrEmptyEntryID
			}
			key := []byte(prefixPending + id)
			if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
				continue
			} else if err != nil {
				return fmt.Errorf("get pending entry: %w", err)
			}
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("delete pending entry: %w", err)
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	w.totalConfirms.Add(int64(removed))
	metrics.OutboxConfirms.Add(float64(removed))
	metrics.OutboxPending.Sub(float64(removed))
	return removed, nil
}

// Stats returns WAL counters.
func (w *BadgerWAL) Stats() Stats {
	pending, err := w.countPending()
	if err != nil {
		pending = -1
	}
	return Stats{
		PendingCount:  pending,
		TotalWrites:   w.totalWrites.Load(),
		TotalConfirms: w.totalConfirms.Load(),
	}
}

func (w *BadgerWAL) countPending() (int64, error) {
	if err := w.checkOpen(); err != nil {
		return 0, err
	}

	var count int64
	err := w.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixPending)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count pending entries: %w", err)
	}
	return count, nil
}

// RunGC runs BadgerDB value log garbage collection until nothing is left to
// rewrite.
func (w *BadgerWAL) RunGC() error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	if w.config.InMemory {
		return nil
	}

	ratio := w.config.GCRatio
	if ratio == 0 {
		ratio = 0.5
	}
	for {
		err := w.db.RunValueLogGC(ratio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Close closes the database. Further calls return nil.
func (w *BadgerWAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	logging.Info().Msg("WAL closed")
	return nil
}
