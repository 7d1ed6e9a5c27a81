package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const TenantIDKey contextKey = "tenant_id"

// WithTenant stores the resolved tenant on the context. Handlers call this
// once resolution succeeds so the access log and telemetry can tag the request.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

// GetTenant returns the tenant ID from context.
func GetTenant(ctx context.Context) string {
	tenantID, _ := ctx.Value(TenantIDKey).(string)
	return tenantID
}

// TenantTag seeds the context with the tenant hint from the query string or
// headers so downstream logging and telemetry can tag the request. Final
// resolution still happens in the handler against the request body.
func TenantTag(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := r.URL.Query().Get("tenant")
		if tenantID == "" {
			tenantID = r.Header.Get("X-Tenant-ID")
		}

		if tenantID != "" {
			r = r.WithContext(WithTenant(r.Context(), tenantID))
		}
		next.ServeHTTP(w, r)
	})
}
