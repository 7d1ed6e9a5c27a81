package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/aspire-solutions/councilkb/internal/api"
)

// SharedSecret rejects requests that do not carry the configured webhook
// secret in the X-Vapi-Secret header. An empty configured secret disables
// the check so local development works without one.
func SharedSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get("X-Vapi-Secret")
			if provided == "" {
				api.Error(w, http.StatusUnauthorized, "missing webhook secret")
				return
			}

			if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
				api.Error(w, http.StatusUnauthorized, "invalid webhook secret")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
