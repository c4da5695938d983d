package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// RequireOperator guards operator endpoints with a static bearer token.
// An empty token disables the endpoints entirely.
func RequireOperator(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				WriteError(w, r, http.StatusNotFound, "Not Found", "operator endpoints are disabled")
				return
			}

			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				WriteError(w, r, http.StatusUnauthorized, "Unauthorized", "expected 'Bearer <token>'")
				return
			}
			if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
				w.Header().Set("WWW-Authenticate", "Bearer")
				WriteError(w, r, http.StatusUnauthorized, "Unauthorized", "invalid operator token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
