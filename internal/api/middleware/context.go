package middleware

import (
	"context"
	"net/http"

	"github.com/credo-sh/credo/pkg/models"
)

type contextKey string

const tenantContextKey contextKey = "tenant_context"

func SetTenantContext(ctx context.Context, tc models.TenantContext) context.Context {
	return context.WithValue(ctx, tenantContextKey, tc)
}

func GetTenantContext(r *http.Request) (models.TenantContext, bool) {
	tc, ok := r.Context().Value(tenantContextKey).(models.TenantContext)
	return tc, ok
}

// MustTenantContext returns the request's tenant context. A missing context
// on a protected route is a wiring bug, not a user-facing case; the panic is
// turned into a 500 by the recovery middleware.
func MustTenantContext(r *http.Request) models.TenantContext {
	tc, ok := GetTenantContext(r)
	if !ok {
		panic("tenant context missing: route not behind tenant resolution")
	}
	return tc
}
