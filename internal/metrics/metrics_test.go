// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordSession(t *testing.T) {
	before := testutil.ToFloat64(ExchangeSessions.WithLabelValues("confirmed"))
	RecordSession("confirmed", 2*time.Second)
	if got := testutil.ToFloat64(ExchangeSessions.WithLabelValues("confirmed")); got != before+1 {
		t.Errorf("confirmed sessions = %v, want %v", got, before+1)
	}
	if testutil.ToFloat64(ExchangeLastSuccess) == 0 {
		t.Error("expected last success timestamp to be set")
	}

	RecordSession("timed_out", 100*time.Second)

	m := &dto.Metric{}
	if err := ExchangeSessionDuration.Write(m); err != nil {
		t.Fatalf("write histogram: %v", err)
	}
	if m.GetHistogram().GetSampleCount() < 2 {
		t.Errorf("expected at least 2 duration samples, got %d", m.GetHistogram().GetSampleCount())
	}
}

func TestRecordResultRecordsSkipsZero(t *testing.T) {
	before := testutil.ToFloat64(ResultRecords.WithLabelValues("stale"))
	RecordResultRecords("stale", 0)
	RecordResultRecords("stale", 3)
	if got := testutil.ToFloat64(ResultRecords.WithLabelValues("stale")); got != before+3 {
		t.Errorf("stale records = %v, want %v", got, before+3)
	}
}

func TestRecordPublish(t *testing.T) {
	okBefore := testutil.ToFloat64(BrokerPublishes.WithLabelValues("CONFIRM"))
	errBefore := testutil.ToFloat64(BrokerPublishErrors.WithLabelValues("CONFIRM"))

	RecordPublish("CONFIRM", nil)
	RecordPublish("CONFIRM", errors.New("broker down"))

	if got := testutil.ToFloat64(BrokerPublishes.WithLabelValues("CONFIRM")); got != okBefore+1 {
		t.Errorf("publishes = %v, want %v", got, okBefore+1)
	}
	if got := testutil.ToFloat64(BrokerPublishErrors.WithLabelValues("CONFIRM")); got != errBefore+1 {
		t.Errorf("publish errors = %v, want %v", got, errBefore+1)
	}
}

func TestGauges(t *testing.T) {
	SetBrokerConnected(true)
	if testutil.ToFloat64(BrokerConnected) != 1 {
		t.Error("expected broker_connected=1")
	}
	SetBrokerConnected(false)
	if testutil.ToFloat64(BrokerConnected) != 0 {
		t.Error("expected broker_connected=0")
	}

	TrackActiveSession(true)
	if testutil.ToFloat64(ExchangeActiveSession) != 1 {
		t.Error("expected active session gauge=1")
	}
	TrackActiveSession(false)

	RecordCircuitBreakerState("broker-publish", 2)
	if testutil.ToFloat64(CircuitBreakerState.WithLabelValues("broker-publish")) != 2 {
		t.Error("expected open breaker state")
	}
}

func TestRecordCommitAndQuery(t *testing.T) {
	before := testutil.ToFloat64(DBCommits.WithLabelValues("user_not_found"))
	RecordCommit("user_not_found")
	if got := testutil.ToFloat64(DBCommits.WithLabelValues("user_not_found")); got != before+1 {
		t.Errorf("commits = %v, want %v", got, before+1)
	}

	errBefore := testutil.ToFloat64(DBQueryErrors.WithLabelValues("upsert_recommendation"))
	RecordDBQuery("upsert_recommendation", time.Millisecond, errors.New("constraint"))
	if got := testutil.ToFloat64(DBQueryErrors.WithLabelValues("upsert_recommendation")); got != errBefore+1 {
		t.Errorf("query errors = %v, want %v", got, errBefore+1)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/health", "200"))
	RecordAPIRequest("GET", "/health", "200", 3*time.Millisecond)
	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/health", "200")); got != before+1 {
		t.Errorf("api requests = %v, want %v", got, before+1)
	}

	gauge := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != gauge+1 {
		t.Errorf("active requests = %v, want %v", got, gauge+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != gauge {
		t.Errorf("active requests = %v, want %v", got, gauge)
	}
}
