package httpx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diewo77/sgm/internal/gate"
	"github.com/diewo77/sgm/internal/logger"
	"github.com/diewo77/sgm/internal/services"
	"github.com/diewo77/sgm/internal/validation"
)

// Status returns the HTTP status for err.
func Status(err error) int {
	switch {
	case errors.Is(err, gate.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, gate.ErrUnauthorized), errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrConflict):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as an error envelope. Unexpected errors are logged and
// answered with a generic message.
func Error(c *gin.Context, err error) {
	status := Status(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("Request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err)
		JSONError(c, status, "internal server error", nil)
		return
	}
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		JSONError(c, status, svcErr.Error(), svcErr.Details)
		return
	}
	JSONError(c, status, err.Error(), nil)
}

// BindJSON decodes the body into dst, answering 400 with the violations on
// failure. It reports whether the handler may continue.
func BindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if v, ok := validation.FromError(err); ok {
			JSONError(c, http.StatusBadRequest, "validation failed", v)
			return false
		}
		JSONError(c, http.StatusBadRequest, "invalid request body", nil)
		return false
	}
	return true
}
