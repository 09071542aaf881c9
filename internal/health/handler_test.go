package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/ai"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func ok() Pinger { return pingFunc(func(context.Context) error { return nil }) }

func newRouter(checks map[string]Pinger) chi.Router {
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(checks, "test", zerolog.Nop()))
	return r
}

func get(t *testing.T, r http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	if res.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	}
	return res, body
}

func TestPing(t *testing.T) {
	res, _ := get(t, newRouter(nil), "/ping")
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "pong", res.Body.String())
}

func TestHealthAllOK(t *testing.T) {
	res, body := get(t, newRouter(map[string]Pinger{"database": ok(), "openai": ok()}), "/health")

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["environment"])
	assert.Equal(t, map[string]any{"database": "ok", "openai": "ok"}, body["services"])
}

func TestHealthDegradedOnFailingCheck(t *testing.T) {
	checks := map[string]Pinger{
		"database": pingFunc(func(context.Context) error { return errors.New("connection refused") }),
		"openai":   ok(),
	}
	res, body := get(t, newRouter(checks), "/health")

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, map[string]any{"database": "error", "openai": "ok"}, body["services"])
}

func TestUnconfiguredProviderIsDisabledNotFailing(t *testing.T) {
	checks := map[string]Pinger{"database": ok(), "openai": ai.Unconfigured{}}
	r := newRouter(checks)

	_, body := get(t, r, "/health")
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "disabled", body["services"].(map[string]any)["openai"])

	res, body := get(t, r, "/health/ready")
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "ready", body["status"])
}

func TestReadyListsIssues(t *testing.T) {
	checks := map[string]Pinger{
		"database": pingFunc(func(context.Context) error { return errors.New("down") }),
		"openai":   pingFunc(func(context.Context) error { return errors.New("401") }),
	}
	res, body := get(t, newRouter(checks), "/health/ready")

	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, []any{"database: error", "openai: error"}, body["issues"])
}

func TestChecksRunConcurrentlyWithinTimeout(t *testing.T) {
	slow := pingFunc(func(ctx context.Context) error {
		select {
		case <-time.After(200 * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	r := newRouter(map[string]Pinger{"a": slow, "b": slow, "c": slow})

	started := time.Now()
	_, body := get(t, r, "/health")

	assert.Less(t, time.Since(started), 500*time.Millisecond)
	assert.Equal(t, "ok", body["status"])
}
