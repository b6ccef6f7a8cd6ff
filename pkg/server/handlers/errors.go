package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"

	"github.com/soundprediction/sifter/pkg/driver"
	"github.com/soundprediction/sifter/pkg/server/dto"
	"github.com/soundprediction/sifter/pkg/types"
)

// statusFor maps an error to its HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrUnknownEntity), errors.Is(err, driver.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, types.ErrFieldNotFound),
		errors.Is(err, types.ErrOperatorNotAllowed),
		errors.Is(err, types.ErrInvalidValue),
		errors.Is(err, types.ErrInvalidID):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError aborts the request with an ErrorResponse. Server errors are
// logged with the request context so they reach telemetry.
func writeError(c *gin.Context, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger(c).ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: code, Message: err.Error(), Code: status})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   "invalid_request",
		Message: message,
		Code:    http.StatusBadRequest,
	})
}
