package handlers

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

func TestHealthHandler(t *testing.T) {
	ok := func(ctx context.Context) error { return nil }
	down := func(ctx context.Context) error { return errors.New("dial tcp: refused") }

	cases := []struct {
		name   string
		checks map[string]HealthCheck
		status int
		want   map[string]string
	}{
		{"all ok", map[string]HealthCheck{"database": ok, "redis": ok}, http.StatusOK, map[string]string{"database": "ok", "redis": "ok"}},
		{"redis down", map[string]HealthCheck{"database": ok, "redis": down}, http.StatusServiceUnavailable, map[string]string{"database": "ok", "redis": "down: dial tcp: refused"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(tc.checks).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tc.status, rec.Code)
			var resp healthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.want, resp.Checks)
		})
	}
}
