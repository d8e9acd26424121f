package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"civicconnect/internal/assistant"
	"civicconnect/internal/domain"
	"civicconnect/internal/media"
	"civicconnect/internal/middleware"
	"civicconnect/internal/models"
	"civicconnect/internal/utils"
	"civicconnect/pkg/logger"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto HTTP responses. Unknown errors are logged
// and hidden behind a generic 500.
func respondError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.ValidationErrorResponse(c, verr.Fields())
	case errors.Is(err, domain.ErrUnauthorized):
		utils.UnauthorizedResponse(c, publicMessage(err, domain.ErrUnauthorized))
	case errors.Is(err, domain.ErrForbidden):
		utils.ForbiddenResponse(c, publicMessage(err, domain.ErrForbidden))
	case errors.Is(err, domain.ErrNotFound):
		utils.NotFoundResponse(c, publicMessage(err, domain.ErrNotFound))
	case errors.Is(err, domain.ErrConflict):
		utils.ConflictResponse(c, publicMessage(err, domain.ErrConflict))
	case errors.Is(err, domain.ErrClassificationUnavailable):
		logger.WithError(err).Warn("Classification service unavailable")
		utils.ServiceUnavailableResponse(c, "Classification service unavailable")
	case errors.Is(err, assistant.ErrNotConfigured):
		utils.ServiceUnavailableResponse(c, "AI assistant is not configured")
	default:
		logger.LogError(err, "Request failed", map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		})
		utils.InternalErrorResponse(c, "")
	}
}

// publicMessage strips the sentinel text so only the reason reaches the client.
// A bare sentinel yields "" and the response helper's default message.
func publicMessage(err, sentinel error) string {
	msg := err.Error()
	if msg == sentinel.Error() {
		return ""
	}
	return strings.TrimPrefix(msg, sentinel.Error()+": ")
}

// currentActor returns the authenticated caller or writes a 401.
func currentActor(c *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return models.Actor{}, false
	}
	return actor, true
}

// bindJSON decodes the request body into dst. An empty body leaves dst untouched when
// allowEmpty is set.
func bindJSON(c *gin.Context, dst interface{}, allowEmpty bool) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// limitBody caps the request body at limit bytes.
func limitBody(c *gin.Context, limit int64) {
	if limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}
}

// readUpload loads a multipart file into memory. A missing file, or a request that
// is not multipart at all, yields nil.
func readUpload(c *gin.Context, field string) (*media.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &media.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func respondUploadError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, "Upload exceeds the maximum allowed size")
		return
	}
	logger.WithError(err).Debug("Rejected malformed upload")
	utils.ErrorResponse(c, http.StatusBadRequest, "Invalid upload")
}
