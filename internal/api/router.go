package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a chi router with all endpoints and middleware
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Heartbeat("/ping"))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.handleHealth)
		r.Post("/analyze", h.handleAnalyze)
		r.Get("/analysis", h.handleGetAnalysis)
		r.Post("/webhook/test", h.handleWebhookTest)

		r.Route("/batch", func(r chi.Router) {
			r.Post("/", h.handleBatchStart)
			r.Post("/pause", h.handleBatchPause)
			r.Post("/resume", h.handleBatchResume)
			r.Get("/status", h.handleBatchStatus)
			r.Get("/results", h.handleBatchResults)
		})
	})

	return r
}
