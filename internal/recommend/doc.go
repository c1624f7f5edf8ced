// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

// Package recommend is the caller-facing entry point of a recommendation
// cycle and the bridge from the exchange result map to the user store.
//
// # Flow
//
//	users ──► Recommender.Recommend ──► exchange session (blocks until terminal)
//	                                      │
//	                                      ▼ ResultMap (possibly partial)
//	                               Bridge.UpdateDatabase ──► UserStore
//
// # Partial Failure
//
// Every row is handled independently. A non-numeric user id, an unknown user,
// a serialization failure or a failed commit is logged, counted in the
// returned Summary and in the movierec_db_commits_total metric, and skipped.
// Recommend only returns an error when the session could not start at all.
//
// # Payload Format
//
// A recommendation list is stored as a JSON array of movie id strings, in
// the order the scheduler sent them:
//
//	["101","102","205"]
package recommend
