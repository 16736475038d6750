package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		checks     map[string]HealthChecker
		wantStatus int
		wantBody   map[string]interface{}
	}{
		{
			name:       "all healthy",
			checks:     map[string]HealthChecker{"records": ok, "cache": ok},
			wantStatus: http.StatusOK,
			wantBody: map[string]interface{}{
				"status":     "healthy",
				"components": map[string]interface{}{"records": "connected", "cache": "connected"},
			},
		},
		{
			name:       "records down",
			checks:     map[string]HealthChecker{"records": down, "cache": ok},
			wantStatus: http.StatusServiceUnavailable,
			wantBody: map[string]interface{}{
				"status":     "unhealthy",
				"components": map[string]interface{}{"records": "unreachable", "cache": "connected"},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := New(":0", "release", tc.checks)
			w := httptest.NewRecorder()
			s.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, tc.wantStatus, w.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.wantBody, body)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := New(":0", "release", nil)
	w := httptest.NewRecorder()
	s.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
