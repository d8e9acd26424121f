package handlers

import (
	"context"
	"net/http"
	"time"

	"civicconnect/internal/websocket"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports storage connectivity and realtime gateway statistics.
type HealthHandler struct {
	hub     *websocket.Hub
	version string
	// checkDB is nil when the in-memory store is in use
	checkDB func(ctx context.Context) map[string]interface{}
}

func NewHealthHandler(hub *websocket.Hub, version string, checkDB func(ctx context.Context) map[string]interface{}) *HealthHandler {
	return &HealthHandler{
		hub:     hub,
		version: version,
		checkDB: checkDB,
	}
}

func (h *HealthHandler) Health(c *gin.Context) {
	status := "ok"
	code := http.StatusOK

	db := map[string]interface{}{"status": "memory"}
	if h.checkDB != nil {
		db = h.checkDB(c.Request.Context())
		if db["status"] != "connected" {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	c.JSON(code, gin.H{
		"status":    status,
		"version":   h.version,
		"database":  db,
		"realtime":  h.hub.Stats(),
		"timestamp": time.Now(),
	})
}
