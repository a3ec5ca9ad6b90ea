package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/crewchat-hq/crewchat/internal/auth"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// AuthMiddleware validates platform session tokens on REST endpoints. The
// WebSocket endpoint does its own handshake-time validation.
type AuthMiddleware struct {
	verifier *auth.Verifier
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(verifier *auth.Verifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireAuth rejects requests without a valid session token and puts the
// claims on the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			jsonError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := m.verifier.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			jsonError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + message + `"}`))
}

// GetClaimsFromContext retrieves the authenticated claims from the request
// context, or nil.
func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}
