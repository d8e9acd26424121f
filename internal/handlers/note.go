package handlers

import (
	"strings"
	"time"

	"civicconnect/internal/domain"
	"civicconnect/internal/services"
	"civicconnect/internal/utils"

	"github.com/gin-gonic/gin"
)

// Notes carry either a calendar date or a full timestamp.
var noteDateLayouts = []string{"2006-01-02", time.RFC3339}

type NoteHandler struct {
	notes *services.NoteService
}

func NewNoteHandler(notes *services.NoteService) *NoteHandler {
	return &NoteHandler{notes: notes}
}

func (h *NoteHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	notes, err := h.notes.List(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, notes)
}

func (h *NoteHandler) Add(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content"`
		Date    string `json:"date"`
	}
	if !bindJSON(c, &req, false) {
		return
	}

	in := services.AddNoteInput{Content: req.Content}
	if raw := strings.TrimSpace(req.Date); raw != "" {
		date, ok := parseNoteDate(raw)
		if !ok {
			respondError(c, domain.NewValidationError("date", "must be YYYY-MM-DD or RFC3339"))
			return
		}
		in.Date = &date
	}

	note, err := h.notes.Add(c.Request.Context(), actor, in)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, "Note added", note)
}

func (h *NoteHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if err := h.notes.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponseWithMessage(c, "Note deleted", nil)
}

func parseNoteDate(raw string) (time.Time, bool) {
	for _, layout := range noteDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
