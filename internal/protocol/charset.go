// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package protocol

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

// EncodePayload renders the message as Latin-1 bytes for the broker.
// Characters outside Latin-1 cannot be represented and yield an error.
func EncodePayload(m Message) ([]byte, error) {
	b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(Encode(m)))
	if err != nil {
		return nil, fmt.Errorf("encode %s payload as latin-1: %w", m.Kind, err)
	}
	return b, nil
}

// DecodePayload interprets raw broker bytes as Latin-1 and decodes the
// message. Every byte maps to exactly one character, so decoding itself
// cannot fail; ok follows Decode.
func DecodePayload(payload []byte) (Message, bool) {
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(payload)
	if err != nil {
		return Message{Kind: KindUnknown}, false
	}
	return Decode(string(s))
}
