package handlers

import (
	"net/http"

	"civicconnect/internal/config"
	"civicconnect/internal/middleware"
	"civicconnect/internal/utils"
	"civicconnect/internal/websocket"
	"civicconnect/pkg/logger"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub        *websocket.Hub
	jwt        *utils.JWTManager
	cookieName string
	readLimit  int64
	upgrader   gorilla.Upgrader
}

func NewWebSocketHandler(hub *websocket.Hub, jwt *utils.JWTManager, cookieName string, wsCfg config.WebSocketConfig, corsCfg config.CORSConfig) *WebSocketHandler {
	upgrader := gorilla.Upgrader{
		ReadBufferSize:  wsCfg.ReadBufferSize,
		WriteBufferSize: wsCfg.WriteBufferSize,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
	if wsCfg.CheckOrigin {
		allowed := corsCfg.AllowedOrigins
		upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// Non-browser clients send no Origin
			return origin == "" || middleware.IsOriginAllowed(origin, allowed)
		}
	}

	return &WebSocketHandler{
		hub:        hub,
		jwt:        jwt,
		cookieName: cookieName,
		readLimit:  wsCfg.MaxMessageSize,
		upgrader:   upgrader,
	}
}

// Connect authenticates the caller and upgrades to a realtime connection. Token
// failures are answered with a plain 401 before any upgrade happens.
func (h *WebSocketHandler) Connect(c *gin.Context) {
	token := middleware.TokenFromRequest(c, h.cookieName)
	if token == "" {
		utils.UnauthorizedResponse(c, "Missing access token")
		return
	}

	claims, err := h.jwt.ValidateUserJWT(token)
	if err != nil {
		logger.LogSecurityEvent("websocket_invalid_token", "", c.ClientIP(), map[string]interface{}{
			"error": err.Error(),
		})
		utils.UnauthorizedResponse(c, "Invalid or expired token")
		return
	}
	actor, err := claims.Actor()
	if err != nil {
		utils.UnauthorizedResponse(c, "Invalid token claims")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already written the HTTP error
		logger.WithError(err).WithField("user_id", actor.ID.Hex()).Warn("WebSocket upgrade failed")
		return
	}

	client := websocket.NewClient(conn, h.hub, actor.ID.Hex(), actor.Role)
	client.Department = actor.Department
	client.IP = c.ClientIP()
	client.UserAgent = c.Request.UserAgent()
	client.ReadLimit = h.readLimit

	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
