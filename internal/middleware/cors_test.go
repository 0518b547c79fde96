package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/parksafe/parksafe/internal/config"
	"github.com/stretchr/testify/require"
)

func preflight(r http.Handler, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// as split from CORS_ORIGINS="http://localhost:5173, https://parksafe.app,"
	r.Use(CORSMiddleware(config.CORSConfig{
		Origins: []string{"http://localhost:5173", " https://parksafe.app", ""},
		MaxAge:  time.Hour,
	}))
	r.POST("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := preflight(r, "https://parksafe.app")
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "https://parksafe.app", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "3600", w.Header().Get("Access-Control-Max-Age"))

	w = preflight(r, "https://evil.example")
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
