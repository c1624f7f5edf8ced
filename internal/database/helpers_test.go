// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package database

import "strconv"

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
