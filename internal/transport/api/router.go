package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sandevgo/datacom/internal/transport/api/middleware"
	"github.com/sandevgo/datacom/pkg/log"
)

const maxBodyBytes = 8 * 1024

// NewRouter creates and configures the HTTP router. API routes live under
// prefix; /health and /metrics stay at the root.
func NewRouter(ctx context.Context, h *Handler, prefix string) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)
	r.Use(middleware.MaxBodySize(maxBodyBytes))

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(log.FromCtx(ctx)))
	r.Use(chimw.Recoverer)

	// CORS - the frontend may be served from anywhere
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", h.Health)

	r.Route(prefix, func(r chi.Router) {
		r.Post("/chat", h.Chat)
		r.Get("/chat/health", h.ChatHealth)

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", h.ListConversations)
			r.Post("/", h.CreateConversation)
			r.Get("/health", h.ConversationsHealth)
			r.Get("/{id}", h.GetConversation)
			r.Patch("/{id}", h.UpdateConversation)
			r.Delete("/{id}", h.DeleteConversation)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.Error(w, http.StatusNotFound, "Not found")
	})

	return r
}
