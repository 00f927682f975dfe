package events

import (
	"log"
	"net/http"
	"time"

	"realestate/internal/domain"
	"realestate/internal/pkg/jwt"
	"realestate/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const pongWait = 60 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// origin is enforced by the CORS allow-list on the HTTP side
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Handler struct {
	hub        *Hub
	jwtService *jwt.Service
}

func NewHandler(hub *Hub, jwtService *jwt.Service) *Handler {
	return &Handler{hub: hub, jwtService: jwtService}
}

func (h *Handler) RegisterRoutes(v1 *gin.RouterGroup) {
	v1.GET("/admin/applications/stream", h.HandleStream)
}

// HandleStream upgrades an admin connection to the event feed.
//
// Endpoint: GET /api/v1/admin/applications/stream?token=JWT_TOKEN
//
// Browsers cannot set headers on a WebSocket handshake, so the token travels
// in the query string.
func (h *Handler) HandleStream(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Token is required. Use ?token=YOUR_JWT_TOKEN")
		return
	}

	claims, err := h.jwtService.ValidateToken(token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
		return
	}
	if domain.UserRole(claims.Role) != domain.RoleAdmin {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "admin role required")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("events action=upgrade admin_id=%d error=%q", claims.UserID, err.Error())
		return
	}

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	client := h.hub.Register(claims.UserID, conn)
	log.Printf("events action=connect admin_id=%d", claims.UserID)

	defer func() {
		h.hub.Unregister(client)
		log.Printf("events action=disconnect admin_id=%d", claims.UserID)
	}()

	readLoop(client)
}

// readLoop discards client frames; it only exists to observe close and pong.
func readLoop(c *Client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("events action=read admin_id=%d error=%q", c.adminID, err.Error())
			}
			return
		}
	}
}
