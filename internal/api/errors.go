package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/julianstephens/rehab/internal/errors"
	"github.com/julianstephens/rehab/internal/logger"
	"github.com/julianstephens/rehab/internal/validation"
)

// statusOf maps an error's kind to an HTTP status
func statusOf(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindUnauthorized:
		return http.StatusUnauthorized
	case apperrors.KindForbidden:
		return http.StatusForbidden
	case apperrors.KindGeneration:
		return http.StatusBadGateway
	case apperrors.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the text shown to clients. Internal failures are not echoed.
func publicMessage(err error) string {
	switch apperrors.KindOf(err) {
	case apperrors.KindNotFound:
		return "not found"
	case apperrors.KindGeneration:
		return "failed to generate"
	case apperrors.KindInternal:
		return "internal error"
	case apperrors.KindValidation:
		if _, ok := validation.Fields(err); ok {
			return "invalid input"
		}
	}
	return err.Error()
}

func writeError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
	}

	body := gin.H{"error": publicMessage(err)}
	if fields, ok := validation.Fields(err); ok {
		body["fields"] = fields
	}
	c.AbortWithStatusJSON(status, body)
}

// badRequest reports a body that could not be decoded
func badRequest(c *gin.Context, err error) {
	logger.Debug("Malformed request body", "path", c.Request.URL.Path, "error", err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
}
