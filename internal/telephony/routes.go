package telephony

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/twilio/voice", func(r chi.Router) {
		r.Post("/incoming", h.HandleIncoming)
		r.Post("/process", h.HandleRecording)
		r.Post("/status", h.HandleStatus)
		if h.upload != nil {
			r.Method(http.MethodPost, "/process-web", h.upload)
		}
	})
}
