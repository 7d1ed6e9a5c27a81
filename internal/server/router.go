package server

import (
	"net/http"

	"github.com/aspire-solutions/councilkb/internal/api"
	"github.com/aspire-solutions/councilkb/internal/api/handlers"
	"github.com/aspire-solutions/councilkb/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	WebhookSecret  string
	QueryHandler   *handlers.QueryHandler
	ContactHandler *handlers.ContactHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.TenantTag)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/contact", cfg.ContactHandler.Submit)

		r.Group(func(r chi.Router) {
			r.Use(middleware.SharedSecret(cfg.WebhookSecret))

			r.Post("/tools/query", cfg.QueryHandler.Query)
			r.Post("/tools/query/{tenant}", cfg.QueryHandler.Query)
			r.Post("/tools/request", cfg.ContactHandler.CouncilRequest)
		})
	})

	return r
}
