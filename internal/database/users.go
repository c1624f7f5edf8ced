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

var _ recommend.UserStore = (*DB)(nil)

// CreateUser inserts a user and returns it with its assigned id.
func (db *DB) CreateUser(ctx context.Context, username, email string) (*recommend.User, error) {
	start := time.Now()
	u := &recommend.User{Username: username, Email: email}

	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO users (username, email) VALUES (?, ?) RETURNING id, created_at`,
		username, nullString(email),
	).Scan(&u.ID, &u.CreatedAt)
	metrics.RecordDBQuery("create_user", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to create user %q: %w", username, err)
	}
	return u, nil
}

// GetUserByID returns recommend.ErrUserNotFound for unknown ids.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*recommend.User, error) {
	start := time.Now()
	var (
		u     recommend.User
		email sql.NullString
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, username, email, created_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Username, &email, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("get_user", time.Since(start), nil)
		return nil, recommend.ErrUserNotFound
	}
	metrics.RecordDBQuery("get_user", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	u.Email = email.String
	return &u, nil
}

// ListUsers returns every user ordered by id.
func (db *DB) ListUsers(ctx context.Context) ([]recommend.User, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, username, email, created_at FROM users ORDER BY id`)
	if err != nil {
		metrics.RecordDBQuery("list_users", time.Since(start), err)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []recommend.User
	for rows.Next() {
		var (
			u     recommend.User
			email sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.Username, &email, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.Email = email.String
		users = append(users, u)
	}
	err = rows.Err()
	metrics.RecordDBQuery("list_users", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
