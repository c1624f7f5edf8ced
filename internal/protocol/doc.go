// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

// Package protocol implements the wire format shared with the remote
// recommendation scheduler.
//
// Every message travels on a single broker topic as a tagged string:
//
//	<TAG><body>
//
// with one of four literal tags. The body grammar depends on the kind:
//
//	REQUEST  date@id1#id2#...#            or "null" when there is nothing to process
//	RESULT   date@user@m1#m2#...%date@user@m1#...   or "null"
//	UPDATE   line1%line2%...%
//	CONFIRM  free text, e.g. "2 results received"
//
// Payloads are Latin-1 encoded so that every delimiter is a single byte.
// Decoding is tolerant: unknown tags are reported through the ok flag and
// malformed RESULT records are returned separately so the caller can log and
// skip them while applying the rest of the batch.
//
// The package also owns the date rule for RESULT records: a record is only
// accepted when it reports work done "yesterday" relative to the server clock.
package protocol
