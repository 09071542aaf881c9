package conversation

import "github.com/go-chi/chi/v5"

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/conversations", func(r chi.Router) {
		r.Get("/", h.ListSessions)
		r.Get("/{sessionId}", h.GetSession)
		r.Get("/{sessionId}/messages", h.ListTurns)
	})
}
