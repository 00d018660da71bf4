package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BelikovArtem/voteroom/internal/env"
	"github.com/BelikovArtem/voteroom/internal/hub"
	"github.com/BelikovArtem/voteroom/internal/types"
	"github.com/BelikovArtem/voteroom/internal/ws"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, origins ...string) http.Handler {
	t.Helper()

	h := hub.New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)

	cfg := env.Config{AllowedOrigins: origins}
	return newRouter(h, cfg, ws.Config{
		AllowedOrigins: origins,
		MaxMessageSize: 4096,
		PongWait:       time.Minute,
		RateLimit:      10,
		RateBurst:      10,
	})
}

func get(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, "*")

	rec := get(t, r, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStats(t *testing.T) {
	r := newTestRouter(t, "*")

	rec := get(t, r, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var s types.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, types.Stats{}, s)
}

func TestRoomsIsEmptyArray(t *testing.T) {
	r := newTestRouter(t, "*")

	rec := get(t, r, "/rooms")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCORS(t *testing.T) {
	r := newTestRouter(t, "http://allowed.test")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://allowed.test")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "http://allowed.test", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.test")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
