package notification

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"zetta/internal/pkg/jwt"
	"zetta/internal/pkg/response"
)

// WSHandler upgrades authenticated browsers onto the notification hub.
type WSHandler struct {
	hub        *Hub
	jwtService *jwt.Service
	store      *Store
	upgrader   websocket.Upgrader
	log        *zap.Logger
}

func NewWSHandler(hub *Hub, jwtService *jwt.Service, store *Store, allowedOrigins []string, log *zap.Logger) *WSHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &WSHandler{
		hub:        hub,
		jwtService: jwtService,
		store:      store,
		log:        log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if len(allowed) == 0 || origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// HandleWebSocket serves GET /ws/notifications?token=JWT. Browsers cannot
// set headers on a websocket handshake, hence the query token.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "TOKEN_REQUIRED", "Token is required. Use ?token=YOUR_JWT_TOKEN")
		return
	}

	claims, err := h.jwtService.ValidateToken(token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.hub.ServeWS(conn, claims.UserID, claims.Role, h.handleMessage, NewUnreadEvent(h.store.UnreadCount()))
}

func (h *WSHandler) handleMessage(userID string, msg WSClientMessage) *WSEvent {
	ctx := context.Background()

	switch msg.Type {
	case "ping":
		return NewPongEvent()
	case "read":
		if msg.ID == "" {
			return NewErrorEvent("INVALID_ID", "id is required")
		}
		h.store.MarkAsRead(ctx, msg.ID)
		return nil
	case "read_all":
		h.store.MarkAllAsRead(ctx)
		return nil
	default:
		return NewErrorEvent("UNKNOWN_TYPE", "Unknown message type: "+msg.Type)
	}
}
