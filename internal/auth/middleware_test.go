package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	svc, _ := newTestService()

	var seen *Identity
	protected := Middleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	do := func(authorization string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/business/me", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		rec := httptest.NewRecorder()
		seen = nil
		protected.ServeHTTP(rec, req)
		return rec
	}

	t.Run("missing header", func(t *testing.T) {
		rec := do("")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, seen)
	})

	t.Run("not bearer form", func(t *testing.T) {
		rec := do("Basic dXNlcjpwYXNz")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		rec := do("Bearer garbage")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		cfg := testConfig()
		cfg.AccessExpiry = -1 * time.Minute
		expired, err := NewService(newFakeUserStore(), cfg).IssueAccessToken(uuid.New())
		require.NoError(t, err)

		rec := do("Bearer " + expired)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("refresh token rejected at the gate", func(t *testing.T) {
		refresh, err := svc.IssueRefreshToken(uuid.New())
		require.NoError(t, err)

		rec := do("Bearer " + refresh)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("valid token injects identity", func(t *testing.T) {
		userID := uuid.New()
		token, err := svc.IssueAccessToken(userID)
		require.NoError(t, err)

		rec := do("Bearer " + token)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, userID, seen.UserID)
	})
}
