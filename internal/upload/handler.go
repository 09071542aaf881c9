// Package upload serves the capture-and-upload flow: the browser records a
// clip, posts it, and gets the transcript and reply back in one response.
package upload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/conversation"
	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/pipeline"
)

const maxUploadBytes = 25 << 20

type Executor interface {
	Execute(ctx context.Context, req pipeline.Request) (pipeline.Reply, error)
}

type Handler struct {
	exec    Executor
	channel conversation.Channel
	log     zerolog.Logger
}

func NewHandler(exec Executor, channel conversation.Channel, log zerolog.Logger) *Handler {
	return &Handler{
		exec:    exec,
		channel: channel,
		log:     log.With().Str("component", "upload").Str("channel", string(channel)).Logger(),
	}
}

type response struct {
	Success    bool   `json:"success"`
	SessionID  string `json:"sessionId,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Reply      string `json:"reply,omitempty"`
	Degraded   bool   `json:"degraded,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ServeHTTP takes a multipart form with an audio file, sessionId and restaurantId.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Error: "invalid multipart form"})
		return
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, response{Error: "No audio file provided"})
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil || len(audio) == 0 {
		writeJSON(w, http.StatusBadRequest, response{Error: "No audio file provided"})
		return
	}

	sessionID := r.FormValue("sessionId")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	h.log.Info().
		Str("session_id", sessionID).
		Int("bytes", len(audio)).
		Msg("recording received")

	reply, err := h.exec.Execute(r.Context(), pipeline.Request{
		SessionID:    sessionID,
		Channel:      h.channel,
		RestaurantID: r.FormValue("restaurantId"),
		Audio:        audio,
	})
	switch {
	case errors.Is(err, pipeline.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, response{Error: err.Error()})
		return
	case err != nil:
		h.log.Error().Err(err).Str("session_id", sessionID).Msg("upload turn failed")
		writeJSON(w, http.StatusInternalServerError, response{Error: "Failed to process voice recording"})
		return
	}

	writeJSON(w, http.StatusOK, response{
		Success:    true,
		SessionID:  sessionID,
		Transcript: reply.Transcript,
		Reply:      reply.Text,
		Degraded:   reply.Degraded(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
