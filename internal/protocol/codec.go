// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package protocol

import (
	"strings"
)

// Kind identifies one of the four message types exchanged on the topic.
type Kind int

const (
	// KindUnknown is returned for payloads without a recognized tag.
	KindUnknown Kind = iota
	KindRequest
	KindResult
	KindUpdate
	KindConfirm
)

// Literal tags. They are part of the wire contract with the scheduler and
// must not change.
const (
	TagRequest = "REQUEST"
	TagResult  = "RESULT"
	TagUpdate  = "UPDATE"
	TagConfirm = "CONFIRM"
)

// Delimiters and the empty-body sentinel.
const (
	FieldSep  = "@"
	IDSep     = "#"
	RecordSep = "%"
	Null      = "null"
)

// tagOrder lists tags in match order. No tag is a prefix of another, so the
// order only matters for readability.
var tagOrder = []struct {
	kind Kind
	tag  string
}{
	{KindRequest, TagRequest},
	{KindResult, TagResult},
	{KindUpdate, TagUpdate},
	{KindConfirm, TagConfirm},
}

// String returns the wire tag of the kind.
func (k Kind) String() string {
	switch k {
	case KindRequest:
		return TagRequest
	case KindResult:
		return TagResult
	case KindUpdate:
		return TagUpdate
	case KindConfirm:
		return TagConfirm
	default:
		return "UNKNOWN"
	}
}

// Message is a decoded wire message: a kind and its raw body.
type Message struct {
	Kind Kind
	Body string
}

// IsNull reports whether the body is the "nothing to process" sentinel.
func (m Message) IsNull() bool {
	return m.Body == Null
}

// Encode renders the message as <tag><body>.
func Encode(m Message) string {
	return m.Kind.String() + m.Body
}

// Decode splits a raw payload into kind and body. ok is false when the
// payload does not start with a known tag; such payloads must be ignored.
func Decode(raw string) (m Message, ok bool) {
	for _, t := range tagOrder {
		if strings.HasPrefix(raw, t.tag) {
			return Message{Kind: t.kind, Body: raw[len(t.tag):]}, true
		}
	}
	return Message{Kind: KindUnknown, Body: raw}, false
}

// NewRequest builds a REQUEST for the given date and user ids. An empty id
// list yields the null sentinel.
func NewRequest(date string, userIDs []string) Message {
	if len(userIDs) == 0 {
		return Message{Kind: KindRequest, Body: Null}
	}

	var b strings.Builder
	b.WriteString(date)
	b.WriteString(FieldSep)
	for _, id := range userIDs {
		b.WriteString(id)
		b.WriteString(IDSep)
	}
	return Message{Kind: KindRequest, Body: b.String()}
}

// ParseRequest extracts the date and user ids from a REQUEST body. null is
// true for the sentinel body.
func ParseRequest(body string) (date string, userIDs []string, null bool) {
	if body == Null {
		return "", nil, true
	}
	date, rest, _ := strings.Cut(body, FieldSep)
	return date, splitNonEmpty(rest, IDSep), false
}

// ResultRecord is one user's recommendation list as reported by the scheduler.
type ResultRecord struct {
	Date     string
	UserID   string
	MovieIDs []string
}

// String renders the record in wire form.
func (r ResultRecord) String() string {
	return r.Date + FieldSep + r.UserID + FieldSep + strings.Join(r.MovieIDs, IDSep)
}

// NewResult builds a RESULT body from records. No records yields null.
func NewResult(records []ResultRecord) Message {
	if len(records) == 0 {
		return Message{Kind: KindResult, Body: Null}
	}
	parts := make([]string, len(records))
	for i, r := range records {
		parts[i] = r.String()
	}
	return Message{Kind: KindResult, Body: strings.Join(parts, RecordSep)}
}

// ParseResult splits a RESULT body into well-formed records and the raw text
// of malformed ones. A record is malformed when it has fewer than three
// @-separated fields. Malformed records never abort the batch.
func ParseResult(body string) (records []ResultRecord, malformed []string) {
	if body == Null {
		return nil, nil
	}
	for _, raw := range strings.Split(body, RecordSep) {
		if raw == "" {
			continue
		}
		fields := strings.Split(raw, FieldSep)
		if len(fields) < 3 {
			malformed = append(malformed, raw)
			continue
		}
		records = append(records, ResultRecord{
			Date:     fields[0],
			UserID:   fields[1],
			MovieIDs: splitNonEmpty(fields[2], IDSep),
		})
	}
	return records, malformed
}

// NewUpdate builds an UPDATE from pending rating-update lines, each
// terminated by the record separator.
func NewUpdate(lines []string) Message {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString(RecordSep)
	}
	return Message{Kind: KindUpdate, Body: b.String()}
}

// ParseUpdate returns the lines of an UPDATE body.
func ParseUpdate(body string) []string {
	return splitNonEmpty(body, RecordSep)
}

// NewConfirm builds a CONFIRM carrying a human-readable note.
func NewConfirm(note string) Message {
	return Message{Kind: KindConfirm, Body: note}
}

// splitNonEmpty splits s by sep, dropping empty segments. Returns nil for
// an input without content.
func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
