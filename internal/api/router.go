// Package api exposes the agent pipeline, session history, and watchlist
// management over HTTP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig holds the HTTP-level settings the router needs.
type RouterConfig struct {
	AllowedOrigins []string
}

// NewRouter assembles the chi router with the standard middleware stack and
// every versioned route.
func NewRouter(cfg RouterConfig, h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(RequestLogger)
	r.Use(CallerIdentity)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/ai", func(r chi.Router) {
			r.Post("/chat", h.Chat)
			r.Get("/sessions", h.ListSessions)
			r.Get("/sessions/{sessionID}", h.GetSession)
			r.Delete("/sessions/{sessionID}", h.DeleteSession)
			r.Post("/analyze/{ticker}", h.Analyze)
			r.Post("/compare", h.Compare)
			r.Get("/financial-data/{ticker}", h.FinancialData)
		})

		r.Get("/watchlist", h.WatchlistList)
		r.Post("/watchlist", h.WatchlistAdd)
		r.Delete("/watchlist/{symbol}", h.WatchlistRemove)
	})

	return r
}
