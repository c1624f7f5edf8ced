// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

// Package wal keeps staged rating updates durable until the scheduler has
// received them.
//
// The staging file is consumed destructively: once drained it is gone. If the
// UPDATE publish then fails, or the process dies before publishing, those
// lines would be lost. The Outbox closes that gap:
//
//	Drain:  pending lines from earlier sessions  +  lines drained from the file
//	        (new lines are written to BadgerDB before Drain returns)
//	Commit: called after a successful UPDATE publish, removes what Drain returned
//
// Anything not committed is offered again by the next Drain. The scheduler
// may therefore see a line twice after a crash between publish and commit;
// duplicate rating updates are idempotent on its side.
//
// Entries are JSON documents keyed by time-ordered UUIDs, so iteration order
// is write order. Unconfirmed entries expire after EntryTTL.
package wal
