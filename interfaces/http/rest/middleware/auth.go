package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"insightdocs-backend/pkg/auth"
)

type contextKey string

const identityKey contextKey = "identity"

// IdentityFromContext returns the authenticated identity set by Authenticate
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(auth.Identity)
	return identity, ok
}

// Authenticate validates the bearer token and stores the identity in the
// request context. When insecure is set (development), an X-User-ID header
// is accepted in place of a token.
func Authenticate(validator *auth.Validator, insecure bool, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.FromAuthorizationHeader(r.Header.Get("Authorization"))
			if !ok {
				if insecure {
					if userID := r.Header.Get("X-User-ID"); userID != "" {
						identity := auth.Identity{UserID: userID, DisplayName: userID}
						next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
						return
					}
				}
				respondUnauthorized(w, "Missing authorization header")
				return
			}

			identity, err := validator.Validate(token)
			if err != nil {
				logger.Warn("Invalid token",
					zap.Error(err),
					zap.String("path", r.URL.Path),
				)
				respondUnauthorized(w, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
		})
	}
}

// respondUnauthorized sends an unauthorized response
func respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    http.StatusUnauthorized,
	})
}
