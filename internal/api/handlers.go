// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/Renjie1997/movie-rec/internal/exchange"
	"github.com/Renjie1997/movie-rec/internal/metrics"
	"github.com/Renjie1997/movie-rec/internal/recommend"
	"github.com/Renjie1997/movie-rec/internal/staging"
	"github.com/Renjie1997/movie-rec/internal/validation"
)

const maxRatingBody = 4 << 10

// BrokerStatus is satisfied by *broker.Client.
type BrokerStatus interface {
	IsConnected() bool
	BreakerState() string
}

// Pinger is satisfied by *database.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReportSource is satisfied by *exchange.Coordinator.
type ReportSource interface {
	LastReport() (exchange.Report, bool)
}

// SummarySource is satisfied by *services.ExchangeService.
type SummarySource interface {
	Last() (recommend.Summary, time.Time, bool)
}

// Stager is satisfied by *staging.File.
type Stager interface {
	Append(ctx context.Context, u staging.Update) error
}

// Dependencies are the collaborators of the handlers. Summaries and Stager
// may be nil.
type Dependencies struct {
	Broker    BrokerStatus
	DB        Pinger
	Reports   ReportSource
	Summaries SummarySource
	Stager    Stager
}

// Handler implements the API endpoints.
type Handler struct {
	deps      Dependencies
	startTime time.Time
}

// NewHandler creates the API handlers.
func NewHandler(deps Dependencies) *Handler {
	return &Handler{deps: deps, startTime: time.Now()}
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status            string  `json:"status"`
	DatabaseConnected bool    `json:"database_connected"`
	BrokerConnected   bool    `json:"broker_connected"`
	BreakerState      string  `json:"breaker_state"`
	Uptime            float64 `json:"uptime_seconds"`
}

// Health reports database reachability and the publish circuit breaker.
// The broker is connected only while a session runs, so an idle broker
// connection does not degrade health; an open breaker does.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status: "healthy",
		Uptime: time.Since(h.startTime).Seconds(),
	}

	if h.deps.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		status.DatabaseConnected = h.deps.DB.Ping(ctx) == nil
		cancel()
	}
	if h.deps.Broker != nil {
		status.BrokerConnected = h.deps.Broker.IsConnected()
		status.BreakerState = h.deps.Broker.BreakerState()
	}

	code := http.StatusOK
	if !status.DatabaseConnected || status.BreakerState == "open" {
		status.Status = "degraded"
		code = http.StatusServiceUnavailable
	}

	NewResponseWriter(w, r).write(code, code == http.StatusOK, status)
}

// ExchangeStatus is the body of GET /api/v1/exchange/last.
type ExchangeStatus struct {
	Report  exchange.Report    `json:"report"`
	Summary *recommend.Summary `json:"summary,omitempty"`
	RanAt   *time.Time         `json:"ran_at,omitempty"`
}

// LastExchange returns the report of the most recent session.
func (h *Handler) LastExchange(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.deps.Reports == nil {
		rw.NotFound("No exchange session has run yet")
		return
	}
	report, ok := h.deps.Reports.LastReport()
	if !ok {
		rw.NotFound("No exchange session has run yet")
		return
	}

	out := ExchangeStatus{Report: report}
	if h.deps.Summaries != nil {
		// The scheduler summary belongs to the same session only when the
		// session ids match; an ad-hoc run leaves it behind.
		if summary, ranAt, ok := h.deps.Summaries.Last(); ok && summary.Report.SessionID == report.SessionID {
			out.Summary = &summary
			out.RanAt = &ranAt
		}
	}
	rw.Success(out)
}

// RatingRequest is the body of POST /api/v1/ratings.
type RatingRequest struct {
	Op      string  `json:"op" validate:"required,oneof=new update"`
	UserID  int64   `json:"user_id" validate:"gt=0"`
	MovieID int64   `json:"movie_id" validate:"gt=0"`
	Rating  float64 `json:"rating" validate:"gte=0,lte=5"`
}

// StagedRating is the body of a successful POST /api/v1/ratings.
type StagedRating struct {
	Line string `json:"line"`
}

// StageRating appends a rating update to the staging file. It is shipped to
// the scheduler in the next session's UPDATE message.
func (h *Handler) StageRating(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.deps.Stager == nil {
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Rating staging is not configured", nil)
		return
	}

	var req RatingRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRatingBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		rw.BadRequest("Invalid JSON body")
		return
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.Error(http.StatusBadRequest, ErrCodeValidationFailed, apiErr.Message, apiErr.Details)
		return
	}

	update := staging.Update{
		Op:      staging.Operation(req.Op),
		UserID:  req.UserID,
		MovieID: req.MovieID,
		Rating:  req.Rating,
	}
	if err := h.deps.Stager.Append(r.Context(), update); err != nil {
		if errors.Is(err, staging.ErrInvalidUpdate) {
			rw.BadRequest(err.Error())
			return
		}
		rw.InternalError("Failed to stage rating", err)
		return
	}

	metrics.RecordRatingStaged(req.Op)
	rw.Accepted(StagedRating{Line: update.String()})
}
