// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

// Package metrics exposes Prometheus instrumentation for the recommendation
// exchange: session outcomes, record dispositions, broker traffic, the
// update outbox and database commits.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Exchange session metrics
	ExchangeSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_sessions_total",
			Help: "Total number of exchange sessions by outcome",
		},
		[]string{"outcome"}, // confirmed, timed_out, noop, canceled
	)

	ExchangeSessionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "exchange_session_duration_seconds",
			Help:    "Duration of exchange sessions from connect to terminal state",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 100, 120},
		},
	)

	ExchangeActiveSession = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "exchange_active_session",
			Help: "1 while an exchange session is running",
		},
	)

	ExchangeLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "exchange_last_success_timestamp",
			Help: "Unix timestamp of the last confirmed exchange session",
		},
	)

	// Result record metrics
	ResultRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_result_records_total",
			Help: "RESULT records received by disposition",
		},
		[]string{"disposition"}, // accepted, stale, malformed
	)

	UpdateLinesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "exchange_update_lines_published_total",
			Help: "Rating update lines shipped to the scheduler",
		},
	)

	UpdateLinesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "exchange_update_lines_dropped_total",
			Help: "Drained rating update lines that were never published and cannot be re-offered",
		},
	)

	// Broker metrics
	BrokerPublishes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_publishes_total",
			Help: "Messages published to the broker by kind",
		},
		[]string{"kind"},
	)

	BrokerPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_publish_errors_total",
			Help: "Failed broker publishes by kind",
		},
		[]string{"kind"},
	)

	BrokerMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_messages_received_total",
			Help: "Inbound broker messages by kind",
		},
		[]string{"kind"}, // REQUEST, RESULT, UPDATE, CONFIRM, UNKNOWN
	)

	BrokerConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broker_connected",
			Help: "1 while the broker connection is up",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Database sync metrics
	DBCommits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_commits_total",
			Help: "Recommendation rows written to the database by status",
		},
		[]string{"status"}, // ok, user_not_found, invalid_user_id, serialize_error, commit_error
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation"},
	)

	// Outbox metrics
	OutboxPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbox_pending_entries",
			Help: "Rating update lines drained but not yet confirmed as published",
		},
	)

	OutboxWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_writes_total",
			Help: "Rating update lines written to the outbox",
		},
	)

	OutboxConfirms = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_confirms_total",
			Help: "Rating update lines confirmed and removed from the outbox",
		},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests being served",
		},
	)

	RatingsStaged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratings_staged_total",
			Help: "Rating updates appended to the staging file by operation",
		},
		[]string{"op"},
	)
)

// RecordSession records a finished exchange session.
func RecordSession(outcome string, duration time.Duration) {
	ExchangeSessions.WithLabelValues(outcome).Inc()
	ExchangeSessionDuration.Observe(duration.Seconds())
	if outcome == "confirmed" {
		ExchangeLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordResultRecords adds n records with the given disposition.
func RecordResultRecords(disposition string, n int) {
	if n > 0 {
		ResultRecords.WithLabelValues(disposition).Add(float64(n))
	}
}

// RecordPublish records a broker publish attempt of the given kind.
func RecordPublish(kind string, err error) {
	if err != nil {
		BrokerPublishErrors.WithLabelValues(kind).Inc()
		return
	}
	BrokerPublishes.WithLabelValues(kind).Inc()
}

// RecordReceive records an inbound message of the given kind.
func RecordReceive(kind string) {
	BrokerMessagesReceived.WithLabelValues(kind).Inc()
}

// SetBrokerConnected updates the broker connection gauge.
func SetBrokerConnected(connected bool) {
	if connected {
		BrokerConnected.Set(1)
	} else {
		BrokerConnected.Set(0)
	}
}

// TrackActiveSession flips the active session gauge.
func TrackActiveSession(active bool) {
	if active {
		ExchangeActiveSession.Set(1)
	} else {
		ExchangeActiveSession.Set(0)
	}
}

// RecordCommit records one database sync row outcome.
func RecordCommit(status string) {
	DBCommits.WithLabelValues(status).Inc()
}

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordCircuitBreakerState records a breaker state transition target.
func RecordCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordAPIRequest records one served API request. route is the router
// pattern, not the raw path.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRatingStaged counts a staged rating update.
func RecordRatingStaged(op string) {
	RatingsStaged.WithLabelValues(op).Inc()
}
