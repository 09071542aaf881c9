package conversation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type Handler struct {
	store Store
	log   zerolog.Logger
}

func NewHandler(store Store, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("component", "conversations").Logger(),
	}
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type sessionWithTurns struct {
	Session
	Messages []Turn `json:"messages"`
}

// ListSessions serves GET /conversations?restaurantId=
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListSessions(r.Context(), r.URL.Query().Get("restaurantId"))
	if err != nil {
		h.fail(w, err, "Failed to fetch conversations")
		return
	}
	if sessions == nil {
		sessions = []Session{}
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: sessions})
}

// GetSession serves GET /conversations/{sessionId}: the session plus its ordered turns.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	sess, err := h.store.GetSession(r.Context(), sessionID)
	if err != nil {
		h.fail(w, err, "Failed to fetch conversation")
		return
	}

	turns, err := h.store.ListTurns(r.Context(), sessionID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		h.fail(w, err, "Failed to fetch conversation")
		return
	}
	if turns == nil {
		turns = []Turn{}
	}

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    sessionWithTurns{Session: sess, Messages: turns},
	})
}

// ListTurns serves GET /conversations/{sessionId}/messages
func (h *Handler) ListTurns(w http.ResponseWriter, r *http.Request) {
	turns, err := h.store.ListTurns(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		h.fail(w, err, "Failed to fetch messages")
		return
	}
	if turns == nil {
		turns = []Turn{}
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: turns})
}

func (h *Handler) fail(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusNotFound, envelope{Error: "Conversation not found"})
		return
	}
	h.log.Error().Err(err).Msg(msg)
	writeJSON(w, http.StatusInternalServerError, envelope{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
