// Package middleware holds the HTTP middleware chain: request ids, auth, and
// per-client rate limiting.
package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"kbhub/internal/domain"
)

// TokenVerifier turns a bearer token into a principal.
type TokenVerifier interface {
	Verify(token string) (domain.ContextPrincipal, error)
}

// Authenticate requires a valid Bearer session token and stores the resulting
// principal in the request context. Pending accounts are rejected: they exist
// only until the invite flow completes.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				writeUnauthorized(w, "missing bearer token")
				return
			}

			principal, err := verifier.Verify(strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				writeUnauthorized(w, "invalid session token")
				return
			}
			if principal.Role == domain.RolePending {
				writeUnauthorized(w, "account is pending activation")
				return
			}

			ctx := domain.WithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    http.StatusUnauthorized,
		"message": message,
		"kind":    "access_denied",
	})
}
