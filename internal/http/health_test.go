package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	cases := []struct {
		name   string
		checks map[string]HealthCheck
		status int
		body   healthResponse
	}{
		{
			name:   "no checks",
			status: http.StatusOK,
			body:   healthResponse{Status: "healthy", Checks: map[string]string{}},
		},
		{
			name: "all reachable",
			checks: map[string]HealthCheck{
				"sqlite": func(context.Context) error { return nil },
				"redis":  func(context.Context) error { return nil },
			},
			status: http.StatusOK,
			body:   healthResponse{Status: "healthy", Checks: map[string]string{"sqlite": "ok", "redis": "ok"}},
		},
		{
			name: "redis down",
			checks: map[string]HealthCheck{
				"sqlite": func(context.Context) error { return nil },
				"redis":  func(context.Context) error { return errors.New("connection refused") },
			},
			status: http.StatusServiceUnavailable,
			body:   healthResponse{Status: "unhealthy", Checks: map[string]string{"sqlite": "ok", "redis": "unavailable"}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router, err := NewRouter(RouterConfig{Gate: new(mockGate), HealthChecks: tc.checks})
			require.NoError(t, err)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			require.Equal(t, tc.status, rec.Code)
			got := decodeBody[healthResponse](t, rec)
			assert.Equal(t, tc.body.Status, got.Status)
			assert.Equal(t, tc.body.Checks, got.Checks)
			assert.NotContains(t, rec.Body.String(), "connection refused")
		})
	}
}
