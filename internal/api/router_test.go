// Docmirror - Document Change Stream Mirroring for DuckDB
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/docmirror

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tomtom215/docmirror/internal/changefeed"
	"github.com/tomtom215/docmirror/internal/pipeline"
)

type fakeStatus struct {
	report *pipeline.Report
}

func (f fakeStatus) LastReport() (pipeline.Report, bool) {
	if f.report == nil {
		return pipeline.Report{}, false
	}
	return *f.report, true
}

type fakeBreaker string

func (b fakeBreaker) BreakerState() string { return string(b) }

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func get(t *testing.T, h http.Handler, path string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) Response {
	t.Helper()
	var resp Response
	resp.Data = data
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestHealthz(t *testing.T) {
	rec := get(t, NewRouter(Options{}), "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var live Liveness
	resp := decode(t, rec, &live)
	if resp.Status != "success" || live.Status != "ok" {
		t.Errorf("response = %+v, data = %+v", resp, live)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
}

func TestReadyz(t *testing.T) {
	ok := &pipeline.Report{RunID: "run-ok"}
	failed := &pipeline.Report{RunID: "run-bad", Error: "watermark unavailable"}

	tests := []struct {
		name       string
		opts       Options
		wantCode   int
		wantReason string
	}{
		{"ready", Options{Status: fakeStatus{ok}, Breaker: fakeBreaker("closed"), Warehouse: fakePinger{}}, http.StatusOK, ""},
		{"no pass yet", Options{Status: fakeStatus{}}, http.StatusServiceUnavailable, "no pass has run yet"},
		{"last pass failed", Options{Status: fakeStatus{failed}}, http.StatusServiceUnavailable, "last pass failed: watermark unavailable"},
		{"breaker open", Options{Status: fakeStatus{ok}, Breaker: fakeBreaker("open")}, http.StatusServiceUnavailable, "pass breaker is open"},
		{"warehouse down", Options{Status: fakeStatus{ok}, Warehouse: fakePinger{errors.New("closed")}}, http.StatusServiceUnavailable, "warehouse unreachable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, NewRouter(tt.opts), "/readyz")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var ready Readiness
			decode(t, rec, &ready)
			if tt.wantReason == "" {
				if !ready.Ready || len(ready.Reasons) != 0 {
					t.Errorf("readiness = %+v", ready)
				}
				return
			}
			if ready.Ready || len(ready.Reasons) != 1 || ready.Reasons[0] != tt.wantReason {
				t.Errorf("readiness = %+v, want reason %q", ready, tt.wantReason)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	t.Run("no pass", func(t *testing.T) {
		rec := get(t, NewRouter(Options{Status: fakeStatus{}}), "/status")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d", rec.Code)
		}
		resp := decode(t, rec, nil)
		if resp.Error == nil || resp.Error.Code != "NO_PASS" {
			t.Errorf("response = %+v", resp)
		}
	})

	t.Run("last report", func(t *testing.T) {
		report := &pipeline.Report{
			RunID:       "run-7",
			Table:       "orders",
			Position:    changefeed.Position{Time: 2, Sequence: 3},
			HasPosition: true,
			Events:      3,
		}
		rec := get(t, NewRouter(Options{Status: fakeStatus{report}}), "/status")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var got pipeline.Report
		decode(t, rec, &got)
		if got.RunID != "run-7" || got.Position != report.Position || got.Events != 3 {
			t.Errorf("report = %+v", got)
		}
	})
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "docmirror_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	rec := get(t, NewRouter(Options{Gatherer: reg}), "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "docmirror_test_total 1") {
		t.Errorf("metrics body = %s", body)
	}
}

func TestCORS(t *testing.T) {
	router := NewRouter(Options{CORSOrigins: []string{"https://dash.example.com"}})
	rec := get(t, router, "/healthz", "Origin", "https://dash.example.com")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://dash.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	rec = get(t, NewRouter(Options{}), "/healthz", "Origin", "https://dash.example.com")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("CORS header set without configured origins: %q", got)
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	rec := get(t, NewRouter(Options{}), "/healthz", "X-Request-ID", "req-123")
	if got := rec.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("X-Request-ID = %q, want req-123", got)
	}
}

func TestSanitizeLogValue(t *testing.T) {
	if got := sanitizeLogValue("a\nb"); got != "a\\x0ab" {
		t.Errorf("sanitizeLogValue = %q", got)
	}
}
