package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"civicconnect/internal/domain"
	"civicconnect/internal/media"
	"civicconnect/internal/services"
	"civicconnect/internal/utils"

	"github.com/gin-gonic/gin"
)

// multipartMemory is how much of a multipart body is held in memory before spilling to disk.
const multipartMemory = 8 << 20

type ComplaintHandler struct {
	complaints    *services.ComplaintService
	maxUploadSize int64
}

func NewComplaintHandler(complaints *services.ComplaintService, maxUploadSize int64) *ComplaintHandler {
	return &ComplaintHandler{
		complaints:    complaints,
		maxUploadSize: maxUploadSize,
	}
}

// parseForm reads a multipart or urlencoded body. Bodies of any other type are left
// alone so the missing fields surface as validation errors.
func parseForm(c *gin.Context) error {
	err := c.Request.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return c.Request.ParseForm()
	}
	return err
}

// Complaint lifecycle

func (h *ComplaintHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	limitBody(c, h.maxUploadSize)
	if err := parseForm(c); err != nil {
		respondUploadError(c, err)
		return
	}

	in := services.CreateComplaintInput{
		Description: c.PostForm("complaintDescription"),
		Location:    c.PostForm("complaintLocation"),
		Type:        c.PostForm("complaintType"),
		Priority:    c.PostForm("complaintPriority"),
	}

	if raw := strings.TrimSpace(c.PostForm("complaintAIScore")); raw != "" {
		score, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondError(c, domain.NewValidationError("complaintAIScore", "must be a number"))
			return
		}
		in.AIScore = &score
	}

	var err error
	if in.Image, err = readUpload(c, "image"); err != nil {
		respondUploadError(c, err)
		return
	}
	if in.Video, err = readUpload(c, "video"); err != nil {
		respondUploadError(c, err)
		return
	}

	complaint, err := h.complaints.Create(c.Request.Context(), actor, in)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, "Complaint registered", complaint)
}

func (h *ComplaintHandler) Edit(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var patch services.EditComplaintInput
	if !bindJSON(c, &patch, false) {
		return
	}

	complaint, err := h.complaints.Edit(c.Request.Context(), actor, c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponseWithMessage(c, "Complaint updated", complaint)
}

func (h *ComplaintHandler) UpdateStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var in services.TransitionInput
	if !bindJSON(c, &in, false) {
		return
	}

	complaint, err := h.complaints.TransitionStatus(c.Request.Context(), actor, c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponseWithMessage(c, "Status updated to "+complaint.Status, complaint)
}

// Feedback accepts an empty body, which records general feedback.
func (h *ComplaintHandler) Feedback(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var in services.FeedbackInput
	if !bindJSON(c, &in, true) {
		return
	}

	complaint, err := h.complaints.AddFeedback(c.Request.Context(), actor, c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponseWithMessage(c, "Feedback recorded", complaint)
}

// Listings

func (h *ComplaintHandler) MyContributions(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	complaints, err := h.complaints.UserContributions(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, complaints)
}

func (h *ComplaintHandler) AuthorityComplaints(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	complaints, err := h.complaints.AuthorityComplaints(c.Request.Context(), actor, c.Query("sort"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, complaints)
}

func (h *ComplaintHandler) AuthorityStats(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	stats, err := h.complaints.AuthorityStats(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, stats)
}

func (h *ComplaintHandler) Resolved(c *gin.Context) {
	complaints, err := h.complaints.ResolvedGlobal(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, complaints)
}

func (h *ComplaintHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	complaint, err := h.complaints.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, complaint)
}

// AI passthroughs

func (h *ComplaintHandler) Predict(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if !bindJSON(c, &req, false) {
		return
	}

	result, err := h.complaints.Predict(c.Request.Context(), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, result)
}

func (h *ComplaintHandler) Caption(c *gin.Context) {
	h.describe(c, "image", h.complaints.Caption)
}

func (h *ComplaintHandler) AnalyzeVideo(c *gin.Context) {
	h.describe(c, "video", h.complaints.AnalyzeVideo)
}

func (h *ComplaintHandler) describe(c *gin.Context, field string, fn func(context.Context, *media.Upload) (string, error)) {
	limitBody(c, h.maxUploadSize)
	upload, err := readUpload(c, field)
	if err != nil {
		respondUploadError(c, err)
		return
	}

	description, err := fn(c.Request.Context(), upload)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"description": description})
}
