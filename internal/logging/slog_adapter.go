// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package logging

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

const sessionIDField = "session_id"

// fieldAliases folds the keys third-party libraries use onto movie-rec's
// field names.
var fieldAliases = map[string]string{
	"session":   sessionIDField,
	"sessionID": sessionIDField,
	"sessionId": sessionIDField,
	"err":       "error",
}

// SlogHandler implements slog.Handler on top of zerolog so that suture and
// Watermill events land in the same stream as the rest of movie-rec.
// Attributes from WithAttrs are rendered into the zerolog context once.
type SlogHandler struct {
	logger zerolog.Logger
	prefix string
}

// NewSlogHandler returns a handler writing to logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSlogHandler(logger zerolog.Logger) *SlogHandler {
	return &SlogHandler{logger: logger}
}

// NewSlogLogger returns an slog.Logger for a library running as component.
func NewSlogLogger(component string) *slog.Logger {
	return slog.New(NewSlogHandler(Component(component)))
}

func (h *SlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return zerologLevel(level) >= h.logger.GetLevel()
}

// Handle writes the record. A session id in ctx is added as session_id.
//
//nolint:gocritic // slog.Record is passed by value per slog.Handler interface
func (h *SlogHandler) Handle(ctx context.Context, record slog.Record) error {
	fields := make(map[string]any, record.NumAttrs()+1)
	if ctx != nil {
		if id := SessionIDFromContext(ctx); id != "" {
			fields[sessionIDField] = id
		}
	}
	record.Attrs(func(a slog.Attr) bool {
		flatten(h.prefix, a, fields)
		return true
	})

	h.logger.WithLevel(zerologLevel(record.Level)).Fields(fields).Msg(record.Message)
	return nil
}

func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	fields := make(map[string]any, len(attrs))
	for _, a := range attrs {
		flatten(h.prefix, a, fields)
	}
	return &SlogHandler{
		logger: h.logger.With().Fields(fields).Logger(),
		prefix: h.prefix,
	}
}

func (h *SlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &SlogHandler{logger: h.logger, prefix: h.prefix + name + "."}
}

// flatten writes a into dst, expanding groups into dotted keys.
func flatten(prefix string, a slog.Attr, dst map[string]any) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			flatten(inner, ga, dst)
		}
		return
	}

	key := a.Key
	if alias, ok := fieldAliases[key]; ok {
		key = alias
	}
	if key != sessionIDField {
		key = prefix + key
	}
	dst[key] = a.Value.Any()
}

func zerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level < slog.LevelDebug:
		return zerolog.TraceLevel
	case level < slog.LevelInfo:
		return zerolog.DebugLevel
	case level < slog.LevelWarn:
		return zerolog.InfoLevel
	case level < slog.LevelError:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
