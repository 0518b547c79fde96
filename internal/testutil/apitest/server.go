// Package apitest runs the full API server in tests.
package apitest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/parksafe/parksafe/internal/config"
	"github.com/parksafe/parksafe/internal/handler"
	"github.com/parksafe/parksafe/internal/realtime"
	"github.com/parksafe/parksafe/internal/repository"
	"github.com/parksafe/parksafe/internal/service"
	"github.com/parksafe/parksafe/internal/testutil"
	"github.com/parksafe/parksafe/pkg/auth"
	"gorm.io/gorm"
)

// Revoked is an in-memory token blacklist
type Revoked struct {
	mu     sync.Mutex
	tokens map[string]bool
}

func NewRevoked() *Revoked {
	return &Revoked{tokens: make(map[string]bool)}
}

func (r *Revoked) Revoke(_ context.Context, token string, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = true
	return nil
}

func (r *Revoked) IsRevoked(_ context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tokens[token], nil
}

// Server is a full API server over SQLite with a single-instance hub
type Server struct {
	*httptest.Server
	DB      *gorm.DB
	Hub     *realtime.Hub
	JWT     *auth.JWTManager
	Revoked *Revoked
}

// NewServer starts an API server for the duration of the test. wrap, if
// given, decorates the router, e.g. to delay some routes.
func NewServer(t *testing.T, wrap ...func(http.Handler) http.Handler) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenDB(t)
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	revoked := NewRevoked()

	profileRepo := repository.NewProfileRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	hub := realtime.NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	authService := service.NewAuthService(profileRepo, jwtManager, revoked)
	messageService := service.NewMessageService(msgRepo, groupRepo, profileRepo, hub, 50, 100)
	alertService := service.NewAlertService(alertRepo, profileRepo, hub, 5)
	groupService := service.NewGroupService(groupRepo, profileRepo)
	profileService := service.NewProfileService(profileRepo, hub, time.Hour)

	router := handler.NewRouter(handler.Handlers{
		Auth:    handler.NewAuthHandler(authService),
		Message: handler.NewMessageHandler(messageService),
		Alert:   handler.NewAlertHandler(alertService),
		Group:   handler.NewGroupHandler(groupService),
		Profile: handler.NewProfileHandler(profileService, nil),
		WS:      handler.NewWSHandler(hub, jwtManager, revoked),
	}, handler.RouterConfig{
		CORS:    config.CORSConfig{Origins: []string{"http://localhost:5173"}, MaxAge: time.Hour},
		JWT:     jwtManager,
		Revoked: revoked,
	})

	var h http.Handler = router
	for _, w := range wrap {
		h = w(h)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})

	return &Server{Server: srv, DB: db, Hub: hub, JWT: jwtManager, Revoked: revoked}
}
