// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package logging

import (
	"github.com/ThreeDotsLabs/watermill"
)

// NewWatermillLogger returns a Watermill logger adapter that writes through
// the slog bridge as the broker component.
func NewWatermillLogger() watermill.LoggerAdapter {
	return watermill.NewSlogLogger(NewSlogLogger("broker"))
}
