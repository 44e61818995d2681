package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/levtools/mediagrab/internal/app"
	"github.com/levtools/mediagrab/internal/domain"
)

// ErrorResponse is the body of every non-2xx API response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps a core error to an HTTP status and response body
func statusFor(err error) (int, ErrorResponse) {
	var de *domain.Error
	if errors.As(err, &de) {
		body := ErrorResponse{Code: string(de.Kind), Message: de.Message}
		switch de.Kind {
		case domain.KindValidation, domain.KindNotSupported:
			return http.StatusBadRequest, body
		case domain.KindNotFound:
			return http.StatusNotFound, body
		case domain.KindCancellation:
			return http.StatusConflict, body
		}
	}
	if errors.Is(err, app.ErrNotQueued) {
		return http.StatusConflict, ErrorResponse{Code: "NOT_QUEUED", Message: err.Error()}
	}
	return http.StatusInternalServerError, ErrorResponse{Code: "INTERNAL_ERROR", Message: "internal server error"}
}

// respondError writes err as a JSON error. Internal errors are logged and
// replaced by a generic message.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status, body := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Code: string(domain.KindValidation), Message: message})
}
