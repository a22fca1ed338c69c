package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/synctest"
	"time"

	"github.com/myrjola/liftplan/internal/contexthelpers"
	"github.com/myrjola/liftplan/internal/metrics"
	"github.com/myrjola/liftplan/internal/testhelpers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type timeoutResponseWriter struct {
	httptest.ResponseRecorder
}

func newTimeoutResponseWriter() *timeoutResponseWriter {
	return &timeoutResponseWriter{
		ResponseRecorder: *httptest.NewRecorder(),
	}
}

// SetWriteDeadline is needed to not get "feature not implemented" error.
func (w *timeoutResponseWriter) SetWriteDeadline(_ time.Time) error {
	return nil
}

func newTestApplication(t *testing.T) (*application, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	app := &application{ //nolint:exhaustruct // this is a test
		logger:   testhelpers.NewLogger(testhelpers.NewWriter(t)),
		metrics:  metrics.NewManager(registry),
		registry: registry,
		sessions: newSessionRegistry(),
	}
	return app, registry
}

func sleepHandler(d time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(d)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"completed"}`))
	})
}

func Test_application_timeout(t *testing.T) {
	tests := []struct {
		name     string
		sleep    time.Duration
		timesOut bool
	}{
		{
			name:     "completes within timeout",
			sleep:    500 * time.Millisecond,
			timesOut: false,
		},
		{
			name:     "times out",
			sleep:    3 * time.Second,
			timesOut: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				app, _ := newTestApplication(t)
				handler := app.timeout(sleepHandler(tt.sleep))

				req := httptest.NewRequest(http.MethodGet, "/api/healthy", nil)
				w := newTimeoutResponseWriter()

				handler.ServeHTTP(w, req)

				time.Sleep(tt.sleep)

				if tt.timesOut {
					if w.Code != http.StatusServiceUnavailable {
						t.Errorf("Expected status 503 on timeout, got %d", w.Code)
					}
					if !strings.Contains(w.Body.String(), "timed out") {
						t.Errorf("Expected timeout message in response body, got: %s", w.Body.String())
					}
				} else if w.Code != http.StatusOK {
					t.Errorf("Expected status 200, got %d", w.Code)
				}
			})
		})
	}
}

func Test_application_recoverPanic(t *testing.T) {
	app, registry := newTestApplication(t)
	handler := app.logAndTraceRequest(app.recoverPanic(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", w.Code)
	}
	var body errorResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Decode error body: %v", err)
	}
	if body.TraceID == "" {
		t.Errorf("Expected trace id in error body, got %+v", body)
	}

	expected := `
# HELP liftplan_http_panics_total The total number of recovered handler panics
# TYPE liftplan_http_panics_total counter
liftplan_http_panics_total 1
`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "liftplan_http_panics_total"); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
	count, err := testutil.GatherAndCount(registry, "liftplan_http_requests_total")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Expected one request series, got %d", count)
	}
}

func Test_application_mustAuthenticate(t *testing.T) {
	app, _ := newTestApplication(t)
	handler := app.mustAuthenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"user_id": contexthelpers.AuthenticatedUserID(r.Context())})
	}))

	t.Run("anonymous", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/exercises", nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("Expected status 401, got %d", w.Code)
		}
	})

	t.Run("authenticated", func(t *testing.T) {
		req := contexthelpers.AuthenticateContext(httptest.NewRequest(http.MethodGet, "/api/exercises", nil), "user-1")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "user-1") {
			t.Errorf("Expected user id in body, got %s", w.Body.String())
		}
	})
}
