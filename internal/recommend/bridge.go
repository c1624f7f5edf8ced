// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package recommend

import (
	"context"
	"errors"
	"sort"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/Renjie1997/movie-rec/internal/exchange"
	"github.com/Renjie1997/movie-rec/internal/logging"
	"github.com/Renjie1997/movie-rec/internal/metrics"
)

// Bridge commits exchange results to a UserStore.
type Bridge struct {
	store  UserStore
	logger zerolog.Logger
}

// NewBridge returns a bridge writing to store.
func NewBridge(store UserStore) *Bridge {
	return &Bridge{store: store, logger: logging.Component("recommend")}
}

// SetLogger replaces the bridge logger.
func (b *Bridge) SetLogger(l zerolog.Logger) {
	b.logger = l
}

// UpdateDatabase resolves every user in results and stores their list. Rows
// fail independently; an empty map makes no store calls. Users are processed
// in ascending id order so logs are reproducible.
func (b *Bridge) UpdateDatabase(ctx context.Context, results exchange.ResultMap) Summary {
	var summary Summary
	if len(results) == 0 {
		return summary
	}

	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		status := b.commitRow(ctx, id, results[id])
		summary.Total++
		summary.count(status)
		metrics.RecordCommit(status)
	}

	b.logger.Info().
		Int("total", summary.Total).
		Int("committed", summary.Committed).
		Int("skipped", summary.Skipped()).
		Msg("Database updated with recommendations")
	return summary
}

func (b *Bridge) commitRow(ctx context.Context, id string, movies []string) string {
	userID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		b.logger.Warn().Str("user_id", id).Msg("Skipping recommendation for non-numeric user id")
		return StatusInvalidUserID
	}

	user, err := b.store.GetUserByID(ctx, userID)
	switch {
	case errors.Is(err, ErrUserNotFound) || (err == nil && user == nil):
		b.logger.Warn().Int64("user_id", userID).Msg("Skipping recommendation for unknown user")
		return StatusUserNotFound
	case err != nil:
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Error when looking up user")
		return StatusLookupError
	}

	payload, err := Serialize(movies)
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Error when serializing recommendations")
		return StatusSerializeError
	}

	if err := b.store.UpdateRecommendation(ctx, user, payload); err != nil {
		b.logger.Error().Err(err).Int64("user_id", userID).Msg("Error when committing recommendations")
		return StatusCommitError
	}
	return StatusOK
}
