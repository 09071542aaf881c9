// Package telephony adapts the voice platform's webhooks to the voice
// state machine and writes the chosen markup back as TwiML.
package telephony

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Vovarama1992/restaurant-assistant-bridge/internal/voice"
)

// Calls is the voice state machine as seen by the webhooks.
type Calls interface {
	Start(ctx context.Context, ev voice.CallStart) voice.Markup
	Recording(ctx context.Context, ev voice.RecordingReady) voice.Markup
	End(ev voice.CallEnd)
}

// Call statuses after which the platform sends nothing more for the call.
var terminalStatuses = map[string]bool{
	"completed": true,
	"busy":      true,
	"failed":    true,
	"no-answer": true,
	"canceled":  true,
}

type Handler struct {
	calls    Calls
	renderer voice.Renderer
	upload   http.Handler
	log      zerolog.Logger
}

func NewHandler(calls Calls, renderer voice.Renderer, upload http.Handler, log zerolog.Logger) *Handler {
	return &Handler{
		calls:    calls,
		renderer: renderer,
		upload:   upload,
		log:      log.With().Str("component", "telephony").Logger(),
	}
}

// HandleIncoming greets a new call and starts recording.
func (h *Handler) HandleIncoming(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	callID := r.PostFormValue("CallSid")
	if callID == "" {
		http.Error(w, "missing CallSid", http.StatusBadRequest)
		return
	}

	h.log.Info().Str("call_id", callID).Msg("incoming call")

	h.write(w, h.calls.Start(r.Context(), voice.CallStart{
		CallID:       callID,
		From:         r.PostFormValue("From"),
		RestaurantID: r.URL.Query().Get("restaurantId"),
	}))
}

// HandleRecording answers a finished recording segment.
func (h *Handler) HandleRecording(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	callID := r.PostFormValue("CallSid")
	recordingURL := r.PostFormValue("RecordingUrl")
	if callID == "" || recordingURL == "" {
		http.Error(w, "missing CallSid or RecordingUrl", http.StatusBadRequest)
		return
	}

	h.write(w, h.calls.Recording(r.Context(), voice.RecordingReady{
		CallID:       callID,
		RecordingURL: recordingURL,
	}))
}

// HandleStatus is the call progress callback; terminal statuses end the call.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	callID := r.PostFormValue("CallSid")
	if callID == "" {
		http.Error(w, "missing CallSid", http.StatusBadRequest)
		return
	}

	status := r.PostFormValue("CallStatus")
	if terminalStatuses[status] {
		h.log.Info().Str("call_id", callID).Str("status", status).Msg("call ended")
		h.calls.End(voice.CallEnd{CallID: callID})
	}
	h.write(w, voice.Markup{})
}

func (h *Handler) write(w http.ResponseWriter, m voice.Markup) {
	body, err := h.renderer.Render(m)
	if err != nil {
		h.log.Error().Err(err).Msg("render twiml")
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
