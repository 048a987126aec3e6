package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/bizfinda/backend/internal/errors"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Identity is the authenticated subject injected into the request
// context for downstream handlers.
type Identity struct {
	UserID uuid.UUID
}

// Middleware guards protected routes. A missing or malformed
// Authorization header is a 401; a token that fails verification is a
// 403. The gate is stateless and has no side effects beyond context
// injection.
func Middleware(svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := apperrors.GetRequestID(r.Context())

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apperrors.WriteError(w, requestID, apperrors.Unauthorized("Access token missing or invalid"))
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				apperrors.WriteError(w, requestID, apperrors.Unauthorized("Access token missing or invalid"))
				return
			}

			claims, err := svc.VerifyAccessToken(parts[1])
			if err != nil {
				apperrors.WriteError(w, requestID, apperrors.Forbidden("Token is Invalid or expired"))
				return
			}

			userID, err := uuid.Parse(claims.UserID)
			if err != nil {
				apperrors.WriteError(w, requestID, apperrors.Forbidden("Token is Invalid or expired"))
				return
			}

			ctx := ContextWithIdentity(r.Context(), &Identity{UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ContextWithIdentity returns a context carrying the authenticated
// identity. Exported for handlers-level tests standing in for the
// middleware.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext returns the authenticated identity, or nil when
// the request did not pass through the middleware.
func IdentityFromContext(ctx context.Context) *Identity {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	if !ok {
		return nil
	}
	return identity
}
