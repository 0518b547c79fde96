package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/parksafe/parksafe/internal/config"
	"github.com/parksafe/parksafe/internal/metrics"
	"github.com/parksafe/parksafe/internal/middleware"
	"github.com/parksafe/parksafe/pkg/auth"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handlers groups every HTTP handler served by the API
type Handlers struct {
	Auth    *AuthHandler
	Message *MessageHandler
	Alert   *AlertHandler
	Group   *GroupHandler
	Profile *ProfileHandler
	WS      *WSHandler
}

// RouterConfig carries what the router needs besides the handlers
type RouterConfig struct {
	CORS        config.CORSConfig
	JWT         *auth.JWTManager
	Revoked     middleware.RevocationChecker
	SwaggerJSON string // path to the generated swagger.json; empty disables the UI
}

// NewRouter wires middleware and routes onto a gin engine
func NewRouter(h Handlers, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORS))
	router.Use(metrics.GinMiddleware())

	if cfg.SwaggerJSON != "" {
		// Serve swagger.json at /docs/swagger.json to avoid conflict with /swagger/* wildcard
		router.StaticFile("/docs/swagger.json", cfg.SwaggerJSON)
		url := ginSwagger.URL("/docs/swagger.json")
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, url))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "parksafe-api",
			"time":    time.Now().Format(time.RFC3339),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ==================== API Routes ====================
	api := router.Group("/api/v1")
	{
		// Auth routes (public)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.Auth.Register)
			authGroup.POST("/login", h.Auth.Login)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(cfg.JWT, cfg.Revoked))
		{
			// Auth
			protected.POST("/auth/logout", h.Auth.Logout)
			protected.GET("/auth/profile", h.Auth.GetProfile)

			// Messages
			protected.GET("/messages", h.Message.GetMessages)
			protected.POST("/messages", h.Message.SendMessage)
			protected.GET("/messages/:id", h.Message.GetMessage)

			// Alerts
			protected.GET("/alerts", h.Alert.GetAlerts)
			protected.POST("/alerts", h.Alert.CreateAlert)
			protected.GET("/alerts/:id", h.Alert.GetAlert)
			protected.POST("/alerts/:id/resolve", h.Alert.ResolveAlert)

			// Groups
			protected.GET("/groups", h.Group.GetGroups)
			protected.POST("/groups", h.Group.CreateGroup)
			protected.GET("/groups/:id/members", h.Group.GetMembers)
			protected.POST("/groups/:id/members", h.Group.AddMember)
			protected.DELETE("/groups/:id/members/:userId", h.Group.RemoveMember)

			// Profile and locations
			protected.PUT("/profile", h.Profile.UpdateProfile)
			protected.PUT("/profile/location", h.Profile.UpdateLocation)
			protected.POST("/profile/avatar", h.Profile.UploadAvatar)
			protected.POST("/profile/devices", h.Profile.RegisterDevice)
			protected.GET("/profiles/active", h.Profile.ActiveUsers)
		}
	}

	// WebSocket endpoint (auth via query parameter)
	router.GET("/ws", h.WS.HandleWebSocket)

	return router
}
