package api

import (
	"net/http"

	"github.com/credo-sh/credo/internal/api/handler"
	mw "github.com/credo-sh/credo/internal/api/middleware"
	"github.com/credo-sh/credo/internal/api/response"
	"github.com/credo-sh/credo/internal/metrics"
	"github.com/go-chi/chi/v5"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Metrics    *metrics.Metrics
	TenantAuth *mw.TenantAuth
	Installer  *mw.Installer
	RateLimit  *mw.RateLimit

	Keys  *handler.Keys
	Reach *handler.Reach
	Data  *handler.Data

	StatusHandler  http.HandlerFunc
	HealthHandler  http.HandlerFunc
	MetricsHandler http.Handler
}

// NewRouter builds the Chi router with the middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger(deps.Metrics))
	r.Use(mw.Recovery)

	// Public surface: status, health, metrics, and the self-authenticating
	// instance validation endpoint.
	r.Get("/", orNotImplemented(deps.StatusHandler))
	r.Get("/health", orNotImplemented(deps.HealthHandler))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	r.Post("/reach/validate", deps.Reach.Validate)

	// Lifecycle mutations: installer key required before any tenant logic.
	r.Group(func(r chi.Router) {
		r.Use(deps.Installer.Require)

		r.Get("/keys", deps.Keys.List)
		r.Post("/keys", deps.Keys.Create)

		// Bulk routes are static segments and win over the {id} routes.
		r.Put("/keys/pause", deps.Keys.BulkPause)
		r.Put("/keys/resume", deps.Keys.BulkResume)
		r.Delete("/keys/revoke", deps.Keys.BulkRevoke)

		r.Put("/keys/{id}/pause", deps.Keys.Pause)
		r.Put("/keys/{id}/resume", deps.Keys.Resume)
		r.Delete("/keys/{id}", deps.Keys.Revoke)

		r.Post("/reach/register", deps.Reach.Register)
		r.Get("/reach", deps.Reach.List)
		r.Put("/reach/{id}/deactivate", deps.Reach.Deactivate)
	})

	// Data plane: every request resolves to a tenant before any handler runs.
	r.Group(func(r chi.Router) {
		r.Use(deps.TenantAuth.Resolve)
		r.Use(deps.RateLimit.Limit)

		r.Get("/data/{database}/{table}", deps.Data.GetRows)
		r.Get("/data/{database}/{table}/{id}", deps.Data.GetRowByID)

		r.Get("/entity/{database}/{entity}", notImplemented)
		r.Get("/entity/{database}/{entity}/{id}", notImplemented)
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return notImplemented
}

func notImplemented(w http.ResponseWriter, r *http.Request) {
	response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED",
		"Endpoint not yet implemented", nil)
}
