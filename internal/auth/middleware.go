// internal/auth/middleware.go
package auth

import (
	"context"
	"net/http"
	"strings"

	"bookhaven/internal/httpx"
)

type contextKey struct{}

var userIDKey contextKey

// RequireAuth rejects requests without a valid bearer token and places the
// authenticated user id into the request context.
func RequireAuth(tokens *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearer := r.Header.Get("Authorization")
			if !strings.HasPrefix(bearer, "Bearer ") {
				httpx.Fail(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			userID, err := tokens.Verify(strings.TrimPrefix(bearer, "Bearer "))
			if err != nil {
				httpx.Fail(w, http.StatusUnauthorized, "Unauthorized, invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
		})
	}
}

// UserID returns the authenticated user id, or "" when the request did not
// pass through RequireAuth.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
