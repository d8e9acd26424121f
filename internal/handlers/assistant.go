package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"civicconnect/internal/assistant"
	"civicconnect/internal/domain"
	"civicconnect/internal/utils"
	"civicconnect/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Assistant answers a prompt in the context of earlier turns.
type Assistant interface {
	Chat(ctx context.Context, prompt string, history []assistant.Turn) (string, error)
}

type AssistantHandler struct {
	assistant Assistant
}

func NewAssistantHandler(a Assistant) *AssistantHandler {
	return &AssistantHandler{assistant: a}
}

type chatRequest struct {
	Prompt  string                   `json:"prompt"`
	History []assistant.IncomingTurn `json:"history"`
}

func (h *AssistantHandler) Chat(c *gin.Context) {
	var req chatRequest
	if !bindJSON(c, &req, false) {
		return
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		respondError(c, domain.NewValidationError("prompt", "This field is required"))
		return
	}

	history, err := assistant.NormalizeHistory(req.History)
	if err != nil {
		respondError(c, err)
		return
	}

	reply, err := h.assistant.Chat(c.Request.Context(), prompt, history)
	if err != nil {
		if errors.Is(err, assistant.ErrNotConfigured) {
			respondError(c, err)
			return
		}
		logger.WithError(err).Warn("Assistant request failed")
		utils.ErrorResponse(c, http.StatusBadGateway, "AI assistant request failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"response": reply,
	})
}
