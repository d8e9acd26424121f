package handlers

import (
	"strconv"

	"civicconnect/internal/services"
	"civicconnect/internal/utils"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	users         *services.UserService
	notifications *services.NotificationService
}

func NewUserHandler(users *services.UserService, notifications *services.NotificationService) *UserHandler {
	return &UserHandler{
		users:         users,
		notifications: notifications,
	}
}

func (h *UserHandler) Profile(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	user, err := h.users.Profile(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, user)
}

func (h *UserHandler) Leaderboard(c *gin.Context) {
	entries, err := h.users.Leaderboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, entries)
}

func (h *UserHandler) Stats(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	stats, err := h.users.Stats(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, stats)
}

// Notifications

func (h *UserHandler) Notifications(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	// Invalid or missing limits fall back to the configured page size
	limit, _ := strconv.Atoi(c.Query("limit"))

	page, err := h.notifications.List(c.Request.Context(), actor, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, page)
}

func (h *UserHandler) MarkRead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	n, err := h.notifications.MarkRead(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, n)
}
