package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/parksafe/parksafe/internal/middleware"
	"github.com/parksafe/parksafe/internal/model"
	"github.com/parksafe/parksafe/internal/realtime"
	"github.com/parksafe/parksafe/pkg/auth"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // native clients send no Origin
	},
}

// WSHandler upgrades connections onto the realtime change feed
type WSHandler struct {
	hub        *realtime.Hub
	jwtManager *auth.JWTManager
	revoked    middleware.RevocationChecker
}

func NewWSHandler(hub *realtime.Hub, jwtManager *auth.JWTManager, revoked middleware.RevocationChecker) *WSHandler {
	return &WSHandler{
		hub:        hub,
		jwtManager: jwtManager,
		revoked:    revoked,
	}
}

// HandleWebSocket upgrades HTTP to WebSocket and manages the connection
// Client connects with: ws://host/ws?token=<jwt_token>
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	// Authenticate via query parameter (WebSocket can't use Authorization header)
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "Token required"})
		return
	}

	if isRevoked, err := h.revoked.IsRevoked(c.Request.Context(), tokenString); err != nil || isRevoked {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "Invalid token"})
		return
	}

	claims, err := h.jwtManager.ValidateToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "Invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := realtime.NewClient(h.hub, conn, claims.UserID)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
