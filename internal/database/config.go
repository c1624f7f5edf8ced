// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package database

// Config holds DuckDB connection settings.
type Config struct {
	// Path is the database file, or ":memory:".
	Path string

	// Threads is the DuckDB worker thread count. 0 means NumCPU.
	Threads int

	// MaxMemory is a DuckDB memory limit such as "1GB".
	MaxMemory string
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Path:      "/data/movierec.duckdb",
		MaxMemory: "1GB",
	}
}
