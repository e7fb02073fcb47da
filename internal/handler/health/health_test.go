package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ddll/leadercheck/internal/handler/health"
)

type mockChecker struct{ err error }

func (m mockChecker) Check(_ context.Context) error { return m.err }

func TestHandler(t *testing.T) {
	tests := []struct {
		name        string
		checks      map[string]health.Checker
		wantStatus  int
		wantOverall string
		wantChecks  map[string]string
	}{
		{
			name: "all healthy",
			checks: map[string]health.Checker{
				"store": mockChecker{},
				"redis": mockChecker{},
			},
			wantStatus:  http.StatusOK,
			wantOverall: "ok",
			wantChecks:  map[string]string{"store": "ok", "redis": "ok"},
		},
		{
			name: "store down",
			checks: map[string]health.Checker{
				"store": mockChecker{err: errors.New("locked")},
				"redis": mockChecker{},
			},
			wantStatus:  http.StatusServiceUnavailable,
			wantOverall: "error",
			wantChecks:  map[string]string{"store": "error", "redis": "ok"},
		},
		{
			name: "archive down",
			checks: map[string]health.Checker{
				"store":   mockChecker{},
				"archive": health.CheckFunc(func(context.Context) error { return errors.New("no bucket") }),
			},
			wantStatus:  http.StatusServiceUnavailable,
			wantOverall: "error",
			wantChecks:  map[string]string{"store": "ok", "archive": "error"},
		},
		{
			name:        "no checks",
			checks:      map[string]health.Checker{},
			wantStatus:  http.StatusOK,
			wantOverall: "ok",
			wantChecks:  map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := health.NewHandler(slog.Default(), tt.checks)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body health.Response
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if body.Status != tt.wantOverall {
				t.Errorf("overall status = %q, want %q", body.Status, tt.wantOverall)
			}
			if len(body.Checks) != len(tt.wantChecks) {
				t.Errorf("checks = %v, want %v", body.Checks, tt.wantChecks)
			}
			for name, want := range tt.wantChecks {
				if got := body.Checks[name].Status; got != want {
					t.Errorf("%s status = %q, want %q", name, got, want)
				}
			}
		})
	}
}
