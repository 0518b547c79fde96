package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/parksafe/parksafe/pkg/auth"
	"github.com/stretchr/testify/require"
)

type fakeRevocations struct {
	revoked map[string]bool
	err     error
}

func (f fakeRevocations) IsRevoked(_ context.Context, token string) (bool, error) {
	return f.revoked[token], f.err
}

func newRouter(jwt *auth.JWTManager, rc RevocationChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(jwt, rc), func(c *gin.Context) {
		c.String(http.StatusOK, c.MustGet("user_id").(uuid.UUID).String())
	})
	return r
}

func do(r http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	jwt := auth.NewJWTManager("test-secret", time.Hour)
	userID := uuid.New()
	token, err := jwt.GenerateToken(userID, "a@example.com", "A")
	require.NoError(t, err)

	r := newRouter(jwt, fakeRevocations{})

	w := do(r, "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, userID.String(), w.Body.String())

	require.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	require.Equal(t, http.StatusUnauthorized, do(r, "Token "+token).Code)
	require.Equal(t, http.StatusUnauthorized, do(r, "Bearer not-a-jwt").Code)
}

func TestAuthMiddleware_RevokedToken(t *testing.T) {
	jwt := auth.NewJWTManager("test-secret", time.Hour)
	token, err := jwt.GenerateToken(uuid.New(), "a@example.com", "A")
	require.NoError(t, err)

	r := newRouter(jwt, fakeRevocations{revoked: map[string]bool{token: true}})
	require.Equal(t, http.StatusUnauthorized, do(r, "Bearer "+token).Code)

	r = newRouter(jwt, fakeRevocations{err: errors.New("redis down")})
	require.Equal(t, http.StatusInternalServerError, do(r, "Bearer "+token).Code)
}
