// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Renjie1997/movie-rec/internal/metrics"
	"github.com/Renjie1997/movie-rec/internal/recommend"
)

// ErrNoRecommendation is returned by GetRecommendation when the user has no
// stored list.
var ErrNoRecommendation = errors.New("no recommendation stored")

// Recommendation is a stored recommendation row.
type Recommendation struct {
	UserID    int64     `json:"user_id"`
	Payload   []byte    `json:"payload"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpdateRecommendation replaces the stored list of user.
func (db *DB) UpdateRecommendation(ctx context.Context, user *recommend.User, payload []byte) error {
	if user == nil {
		return fmt.Errorf("update recommendation: %w", recommend.ErrUserNotFound)
	}

	start := time.Now()
	err := db.retryOnConflict(ctx, func() error {
		_, err := db.conn.ExecContext(ctx, `
			INSERT INTO recommendations (user_id, payload, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT (user_id) DO UPDATE SET
				payload = excluded.payload,
				updated_at = excluded.updated_at`,
			user.ID, payload, time.Now().UTC(),
		)
		return err
	})
	metrics.RecordDBQuery("update_recommendation", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to update recommendation for user %d: %w", user.ID, err)
	}
	return nil
}

// GetRecommendation returns the stored row of a user.
func (db *DB) GetRecommendation(ctx context.Context, userID int64) (*Recommendation, error) {
	start := time.Now()
	r := Recommendation{UserID: userID}
	err := db.conn.QueryRowContext(ctx,
		`SELECT payload, updated_at FROM recommendations WHERE user_id = ?`, userID,
	).Scan(&r.Payload, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("get_recommendation", time.Since(start), nil)
		return nil, ErrNoRecommendation
	}
	metrics.RecordDBQuery("get_recommendation", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendation for user %d: %w", userID, err)
	}
	return &r, nil
}
