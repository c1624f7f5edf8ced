// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package protocol

import (
	"strings"
	"time"
)

// DateLayout is the date format embedded in REQUEST and RESULT bodies.
const DateLayout = "2006-01-02"

// Today formats now as a protocol date.
func Today(now time.Time) string {
	return now.Format(DateLayout)
}

// Yesterday formats now minus 24 hours as a protocol date.
func Yesterday(now time.Time) string {
	return now.Add(-24 * time.Hour).Format(DateLayout)
}

// IsStale reports whether a RESULT record date is anything other than
// yesterday. The scheduler reports the previous day's work, so a record for
// any other date is a late, early or replayed delivery.
func IsStale(recordDate string, now time.Time) bool {
	return !strings.EqualFold(recordDate, Yesterday(now))
}
