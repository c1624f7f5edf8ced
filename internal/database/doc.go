// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

// Package database stores users and their latest recommendation lists in
// DuckDB.
//
// # Schema
//
//	users            (id BIGINT PK, username, email, created_at)
//	recommendations  (user_id BIGINT PK, payload BLOB, updated_at)
//
// A user has at most one recommendation row; UpdateRecommendation replaces
// it. The payload is opaque here (see recommend.Serialize).
//
// DB implements recommend.UserStore. Use ":memory:" as the path in tests.
package database
