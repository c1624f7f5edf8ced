// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

// Package exchange drives the daily recommendation handshake with the remote
// scheduler over a single broker topic.
//
// # Session Lifecycle
//
// One call to Coordinator.Run is one session:
//
//	Idle -> Connecting -> Subscribed -> RequestSent -> ResultReceived -> Confirmed -> Disconnecting -> Idle
//	                                               \-> TimedOut ---------------------/
//
//  1. Connect to the broker (auto-reconnect, clean session) and subscribe to the topic.
//  2. Arm the session timer (default 100s).
//  3. Publish a REQUEST with today's date and the user ids, or the null
//     REQUEST when there is nobody to process. The null case disconnects at once.
//  4. The first RESULT received populates the ResultMap with every record
//     dated yesterday. Stale and malformed records are logged and skipped.
//  5. Pending rating updates are drained and published as one UPDATE.
//  6. CONFIRM is published with the number of accepted records.
//  7. The retained topic content is cleared and the broker connection is
//     closed in the background.
//
// When the timer fires first, step 7 runs immediately and whatever was
// accumulated so far is returned. A timeout is a forced completion, not a
// rollback.
//
// # Concurrency
//
// The session value is owned by the Run call. Its broker callback and timer
// are closures over it; completion is signaled by closing a channel exactly
// once, so the caller never polls. Only one session may be active at a time:
// the next Run blocks until the previous session's disconnect has finished.
package exchange
