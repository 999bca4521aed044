package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type ctxKey string

const providerIDKey ctxKey = "provider_id"

// ProviderIDFromContext returns the authenticated provider id placed on
// the request context by Middleware.
func ProviderIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(providerIDKey).(uuid.UUID)
	return id, ok
}

// ContextWithProviderID is exported for handler tests.
func ContextWithProviderID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, providerIDKey, id)
}

// Middleware authenticates a request from the "token" cookie or an
// Authorization bearer header and rejects it with 401 when neither
// carries a valid token.
func (m *TokenManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := ""
		if c, err := r.Cookie("token"); err == nil {
			raw = c.Value
		}
		if raw == "" {
			if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				raw = strings.TrimPrefix(h, "Bearer ")
			}
		}
		if raw == "" {
			http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
			return
		}

		providerID, err := m.Verify(raw)
		if err != nil {
			http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithProviderID(r.Context(), providerID)))
	})
}
