package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/whatease/backend/pkg/utils"
)

type contextKey struct{}

var identityKey contextKey

// Identity returns the authenticated email stored by Middleware, or empty.
func Identity(ctx context.Context) string {
	email, _ := ctx.Value(identityKey).(string)
	return email
}

// WithIdentity returns a context carrying email as the authenticated caller.
// Exposed for handlers that authenticate outside the middleware (websocket
// upgrades) and for tests.
func WithIdentity(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, identityKey, email)
}

// Middleware rejects requests without a valid bearer token and injects the
// caller identity into the request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			utils.RespondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		email, err := m.VerifyToken(token)
		if err != nil {
			utils.RespondError(w, http.StatusUnauthorized, "invalid authentication credentials")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), email)))
	})
}
