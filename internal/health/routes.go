package health

import "github.com/go-chi/chi/v5"

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/ping", h.Ping)
	r.Get("/health", h.Health)
	r.Get("/health/ready", h.Ready)
}
