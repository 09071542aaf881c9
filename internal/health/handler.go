// Package health reports liveness and dependency status.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/ai"
)

const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusDisabled = "disabled"
)

const checkTimeout = 3 * time.Second

// Pinger is any dependency that can be health checked.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	checks      map[string]Pinger
	environment string
	started     time.Time
	log         zerolog.Logger
	now         func() time.Time
}

// NewHandler checks each named dependency on every request. A dependency
// that reports ai.ErrNotConfigured is disabled, not failing.
func NewHandler(checks map[string]Pinger, environment string, log zerolog.Logger) *Handler {
	return &Handler{
		checks:      checks,
		environment: environment,
		started:     time.Now(),
		log:         log.With().Str("component", "health").Logger(),
		now:         time.Now,
	}
}

type report struct {
	Status      string            `json:"status"`
	Timestamp   string            `json:"timestamp"`
	Uptime      float64           `json:"uptime"`
	Environment string            `json:"environment"`
	Services    map[string]string `json:"services"`
}

type readiness struct {
	Status    string   `json:"status"`
	Timestamp string   `json:"timestamp"`
	Issues    []string `json:"issues,omitempty"`
}

// Ping serves GET /ping.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("pong"))
}

// Health serves GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.check(r.Context()))
}

// Ready serves GET /health/ready, 503 while any dependency is failing.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	rep := h.check(r.Context())
	if rep.Status == StatusOK {
		writeJSON(w, http.StatusOK, readiness{Status: "ready", Timestamp: rep.Timestamp})
		return
	}

	var issues []string
	for name, status := range rep.Services {
		if status == StatusError {
			issues = append(issues, fmt.Sprintf("%s: %s", name, status))
		}
	}
	sort.Strings(issues)
	writeJSON(w, http.StatusServiceUnavailable, readiness{
		Status:    "not ready",
		Timestamp: rep.Timestamp,
		Issues:    issues,
	})
}

func (h *Handler) check(ctx context.Context) report {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var mu sync.Mutex
	services := make(map[string]string, len(h.checks))

	var wg conc.WaitGroup
	for name, p := range h.checks {
		wg.Go(func() {
			status := StatusOK
			if err := p.Ping(ctx); err != nil {
				status = StatusError
				if errors.Is(err, ai.ErrNotConfigured) {
					status = StatusDisabled
				} else {
					h.log.Warn().Err(err).Str("service", name).Msg("health check failed")
				}
			}
			mu.Lock()
			services[name] = status
			mu.Unlock()
		})
	}
	wg.Wait()

	overall := StatusOK
	for _, status := range services {
		if status == StatusError {
			overall = "degraded"
		}
	}

	now := h.now()
	return report{
		Status:      overall,
		Timestamp:   now.UTC().Format(time.RFC3339),
		Uptime:      now.Sub(h.started).Seconds(),
		Environment: h.environment,
		Services:    services,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
