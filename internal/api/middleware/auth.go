package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/credo-sh/credo/internal/api/response"
	"github.com/credo-sh/credo/internal/directory"
	"github.com/credo-sh/credo/internal/metrics"
	"github.com/credo-sh/credo/pkg/models"
)

// APIKeyHeader carries the per-tenant credential on data-plane requests.
const APIKeyHeader = "X-Api-Key"

// TenantAuth resolves the presented credential to a tenant context.
type TenantAuth struct {
	dir       directory.Directory
	devBypass bool
	devTenant models.TenantContext
	metrics   *metrics.Metrics

	bypassOnce sync.Once
}

// NewTenantAuth creates the tenant resolution middleware. devTenant is only
// consulted when devBypass is set; it comes from deployment configuration,
// never from request input.
func NewTenantAuth(dir directory.Directory, devBypass bool, devTenant models.TenantContext, m *metrics.Metrics) *TenantAuth {
	return &TenantAuth{dir: dir, devBypass: devBypass, devTenant: devTenant, metrics: m}
}

// Resolve authenticates the request and attaches a TenantContext. With a
// credential header present, behavior is identical whether or not dev-bypass
// is enabled; the bypass only activates in its absence.
func (a *TenantAuth) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawKey := r.Header.Get(APIKeyHeader)

		if rawKey != "" {
			tc, err := a.dir.Resolve(r.Context(), rawKey)
			if errors.Is(err, directory.ErrNoMatch) {
				a.metrics.AuthFailuresTotal.WithLabelValues("no_match").Inc()
				response.Error(w, http.StatusUnauthorized, "INVALID_KEY", "Invalid API key", nil)
				return
			}
			if err != nil {
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to validate API key", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(SetTenantContext(r.Context(), *tc)))
			return
		}

		if a.devBypass {
			// Once per process, not per request, to avoid log flooding.
			a.bypassOnce.Do(func() {
				slog.Warn("auth dev-bypass active: synthesizing tenant context for unauthenticated requests",
					"tenant", a.devTenant.ClientID)
			})
			next.ServeHTTP(w, r.WithContext(SetTenantContext(r.Context(), a.devTenant)))
			return
		}

		a.metrics.AuthFailuresTotal.WithLabelValues("missing_key").Inc()
		response.Error(w, http.StatusUnauthorized, "MISSING_KEY", "Missing X-Api-Key header", nil)
	})
}
