package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/natededev/de-commerce/internal/domain"
)

// Error codes carried in the envelope so clients can branch without parsing
// messages.
const (
	CodeValidation       = "validation"
	CodeOutOfStock       = "out_of_stock"
	CodeOwnership        = "ownership"
	CodeNotAuthenticated = "not_authenticated"
	CodeForbidden        = "forbidden"
	CodeNotFound         = "not_found"
	CodeConflict         = "conflict"
	CodeSyncFailed       = "sync_failed"
	CodeInternal         = "internal"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

func respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, envelope{Success: true, Data: data, Message: message})
}

func respondCode(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Error: msg, Code: code})
}

// respondError maps err onto a status and code. Unclassified errors are
// logged and reported as a generic internal error.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status, code := classify(err)
	msg := err.Error()
	if code == CodeInternal {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		msg = "internal server error"
	}
	if code == CodeSyncFailed {
		msg = "failed to sync cart"
	}
	respondCode(c, status, code, msg)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrOutOfStock):
		return http.StatusBadRequest, CodeOutOfStock
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, domain.ErrOwnership):
		return http.StatusBadRequest, CodeOwnership
	case errors.Is(err, domain.ErrNotAuthenticated), errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, CodeNotAuthenticated
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, domain.ErrSyncFailed):
		return http.StatusInternalServerError, CodeSyncFailed
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func bindError(c *gin.Context, err error) {
	respondCode(c, http.StatusBadRequest, CodeValidation, "validation failed: "+err.Error())
}
