// movie-rec - Movie Recommendation Exchange Coordinator
// Copyright 2026 Renjie1997
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Renjie1997/movie-rec

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/Renjie1997/movie-rec/internal/exchange"
	"github.com/Renjie1997/movie-rec/internal/recommend"
	"github.com/Renjie1997/movie-rec/internal/staging"
)

var _ Stager = (*staging.File)(nil)

type fakeBroker struct {
	connected bool
	state     string
}

func (b fakeBroker) IsConnected() bool    { return b.connected }
func (b fakeBroker) BreakerState() string { return b.state }

type fakeDB struct{ err error }

func (d fakeDB) Ping(context.Context) error { return d.err }

type fakeReports struct {
	report *exchange.Report
}

func (f fakeReports) LastReport() (exchange.Report, bool) {
	if f.report == nil {
		return exchange.Report{}, false
	}
	return *f.report, true
}

type fakeSummaries struct {
	summary recommend.Summary
	at      time.Time
}

func (f fakeSummaries) Last() (recommend.Summary, time.Time, bool) {
	return f.summary, f.at, true
}

type failingStager struct{ err error }

func (s failingStager) Append(context.Context, staging.Update) error { return s.err }

// decodeResponse decodes the envelope and its data into data.
func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) APIResponse {
	t.Helper()
	var raw struct {
		APIResponse
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	if data != nil && len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return raw.APIResponse
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		deps       Dependencies
		wantCode   int
		wantStatus string
	}{
		{
			name:       "healthy while idle",
			deps:       Dependencies{Broker: fakeBroker{state: "closed"}, DB: fakeDB{}},
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
		},
		{
			name:       "database down",
			deps:       Dependencies{Broker: fakeBroker{state: "closed"}, DB: fakeDB{err: errors.New("closed")}},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "degraded",
		},
		{
			name:       "breaker open",
			deps:       Dependencies{Broker: fakeBroker{state: "open"}, DB: fakeDB{}},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "degraded",
		},
		{
			name:       "no database configured",
			deps:       Dependencies{Broker: fakeBroker{state: "closed"}},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(NewHandler(tt.deps), RouterConfig{})
			rec := serve(router, http.MethodGet, "/health", "")

			if rec.Code != tt.wantCode {
				t.Errorf("status code = %d, want %d", rec.Code, tt.wantCode)
			}
			var status HealthStatus
			resp := decodeResponse(t, rec, &status)
			if status.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", status.Status, tt.wantStatus)
			}
			if resp.Success != (tt.wantCode == http.StatusOK) {
				t.Errorf("success = %v", resp.Success)
			}
			if resp.Meta == nil || resp.Meta.RequestID == "" {
				t.Error("expected request id in meta")
			}
		})
	}
}

func TestLastExchange(t *testing.T) {
	report := &exchange.Report{SessionID: "s-1", Outcome: exchange.OutcomeConfirmed, Accepted: 2}

	t.Run("no session yet", func(t *testing.T) {
		router := NewRouter(NewHandler(Dependencies{Reports: fakeReports{}}), RouterConfig{})
		rec := serve(router, http.MethodGet, "/api/v1/exchange/last", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status code = %d, want 404", rec.Code)
		}
		resp := decodeResponse(t, rec, nil)
		if resp.Error == nil || resp.Error.Code != ErrCodeNotFound {
			t.Errorf("error = %+v", resp.Error)
		}
	})

	t.Run("report with matching summary", func(t *testing.T) {
		at := time.Date(2024, 1, 2, 6, 0, 0, 0, time.UTC)
		router := NewRouter(NewHandler(Dependencies{
			Reports: fakeReports{report: report},
			Summaries: fakeSummaries{
				summary: recommend.Summary{Total: 2, Committed: 2, Report: *report},
				at:      at,
			},
		}), RouterConfig{})

		rec := serve(router, http.MethodGet, "/api/v1/exchange/last", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status code = %d, body %s", rec.Code, rec.Body.String())
		}
		var status ExchangeStatus
		decodeResponse(t, rec, &status)
		if status.Report.Outcome != exchange.OutcomeConfirmed || status.Report.Accepted != 2 {
			t.Errorf("report = %+v", status.Report)
		}
		if status.Summary == nil || status.Summary.Committed != 2 {
			t.Errorf("summary = %+v", status.Summary)
		}
		if status.RanAt == nil || !status.RanAt.Equal(at) {
			t.Errorf("ran_at = %v", status.RanAt)
		}
	})

	t.Run("summary from another session is omitted", func(t *testing.T) {
		router := NewRouter(NewHandler(Dependencies{
			Reports: fakeReports{report: report},
			Summaries: fakeSummaries{
				summary: recommend.Summary{Report: exchange.Report{SessionID: "s-0"}},
			},
		}), RouterConfig{})

		rec := serve(router, http.MethodGet, "/api/v1/exchange/last", "")
		var status ExchangeStatus
		decodeResponse(t, rec, &status)
		if status.Summary != nil {
			t.Errorf("summary = %+v, want none", status.Summary)
		}
	})
}

func TestStageRating(t *testing.T) {
	path := filepath.Join(t.TempDir(), "updates.buf")
	file := staging.NewFile(path)
	router := NewRouter(NewHandler(Dependencies{Stager: file}), RouterConfig{})

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantLine string
	}{
		{"new rating", `{"op":"new","user_id":7,"movie_id":101,"rating":4.5}`, http.StatusAccepted, "new#7#101#4.5"},
		{"updated rating", `{"op":"update","user_id":7,"movie_id":101,"rating":3}`, http.StatusAccepted, "update#7#101#3"},
		{"unknown op", `{"op":"delete","user_id":7,"movie_id":101,"rating":3}`, http.StatusBadRequest, ""},
		{"missing user", `{"op":"new","movie_id":101,"rating":3}`, http.StatusBadRequest, ""},
		{"rating out of range", `{"op":"new","user_id":7,"movie_id":101,"rating":11}`, http.StatusBadRequest, ""},
		{"unknown field", `{"op":"new","user_id":7,"movie_id":101,"rating":3,"extra":1}`, http.StatusBadRequest, ""},
		{"not json", `new#7#101#4.5`, http.StatusBadRequest, ""},
	}

	var want []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, http.MethodPost, "/api/v1/ratings", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status code = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantLine == "" {
				return
			}
			var staged StagedRating
			decodeResponse(t, rec, &staged)
			if staged.Line != tt.wantLine {
				t.Errorf("line = %q, want %q", staged.Line, tt.wantLine)
			}
			want = append(want, tt.wantLine)
		})
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read staging file: %v", err)
	}
	if got := strings.Fields(string(data)); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("staging file = %q, want %q", got, want)
	}
}

func TestStageRatingValidationDetails(t *testing.T) {
	router := NewRouter(NewHandler(Dependencies{Stager: failingStager{}}), RouterConfig{})
	rec := serve(router, http.MethodPost, "/api/v1/ratings", `{"op":"new","user_id":0,"movie_id":101,"rating":3}`)

	resp := decodeResponse(t, rec, nil)
	if resp.Error == nil || resp.Error.Code != ErrCodeValidationFailed {
		t.Fatalf("error = %+v", resp.Error)
	}
	details, ok := resp.Error.Details.(map[string]interface{})
	if !ok || details["field"] != "user_id" {
		t.Errorf("details = %#v, want field user_id", resp.Error.Details)
	}
}

func TestStageRatingErrors(t *testing.T) {
	body := `{"op":"new","user_id":7,"movie_id":101,"rating":4}`

	t.Run("not configured", func(t *testing.T) {
		router := NewRouter(NewHandler(Dependencies{}), RouterConfig{})
		if rec := serve(router, http.MethodPost, "/api/v1/ratings", body); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status code = %d, want 503", rec.Code)
		}
	})

	t.Run("write failure", func(t *testing.T) {
		router := NewRouter(NewHandler(Dependencies{Stager: failingStager{err: errors.New("disk full")}}), RouterConfig{})
		rec := serve(router, http.MethodPost, "/api/v1/ratings", body)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status code = %d, want 500", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "disk full") {
			t.Error("internal error leaked to client")
		}
	})
}

func TestRateLimit(t *testing.T) {
	router := NewRouter(NewHandler(Dependencies{Reports: fakeReports{}}), RouterConfig{
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, serve(router, http.MethodGet, "/api/v1/exchange/last", "").Code)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want the third request limited", codes)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := NewRouter(NewHandler(Dependencies{DB: fakeDB{}}), RouterConfig{})
	serve(router, http.MethodGet, "/health", "")

	rec := serve(router, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "api_requests_total") {
		t.Error("expected api_requests_total in metrics output")
	}
}
