package realtime

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, h *Hub, upload http.Handler) {
	r.Route("/chat", func(r chi.Router) {
		r.Get("/ws", h.ServeWS)
		if upload != nil {
			r.Method(http.MethodPost, "/voice", upload)
		}
	})
}
