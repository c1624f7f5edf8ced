// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package recommend

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Serialize encodes a movie list for storage. A nil list is stored as [].
func Serialize(movies []string) ([]byte, error) {
	if movies == nil {
		movies = []string{}
	}
	data, err := json.Marshal(movies)
	if err != nil {
		return nil, fmt.Errorf("serialize recommendations: %w", err)
	}
	return data, nil
}

// Deserialize decodes a stored movie list.
func Deserialize(data []byte) ([]string, error) {
	var movies []string
	if err := json.Unmarshal(data, &movies); err != nil {
		return nil, fmt.Errorf("deserialize recommendations: %w", err)
	}
	return movies, nil
}
