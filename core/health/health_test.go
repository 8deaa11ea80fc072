package health

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

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHealthzAlwaysOK(t *testing.T) {
	h := Router(Check{Name: "db", Probe: func(context.Context) error { return errors.New("down") }})
	rec, body := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestReadyz(t *testing.T) {
	ok := func(context.Context) error { return nil }

	rec, body := get(t, Router(Check{Name: "db", Probe: ok}, Check{Name: "redis", Probe: ok}), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["status"])

	failing := Router(
		Check{Name: "db", Probe: ok},
		Check{Name: "redis", Probe: func(context.Context) error { return errors.New("connection refused") }},
	)
	rec, body = get(t, failing, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", body["status"])
	checks, _ := body["checks"].([]any)
	require.Len(t, checks, 2)
	second, _ := checks[1].(map[string]any)
	assert.Equal(t, "redis", second["name"])
	assert.Equal(t, false, second["ok"])
	assert.Equal(t, "connection refused", second["error"])
}
