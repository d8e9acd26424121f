package routes

import (
	"civicconnect/internal/handlers"

	"github.com/gin-gonic/gin"
)

// SetupWebSocketRoutes registers the realtime endpoint. It authenticates itself so
// browsers can pass the token as a query parameter.
func SetupWebSocketRoutes(router *gin.Engine, wsHandler *handlers.WebSocketHandler) {
	router.GET("/ws", wsHandler.Connect)
}
