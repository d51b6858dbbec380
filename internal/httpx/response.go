// Package httpx writes JSON responses and maps use-case errors to HTTP
// statuses for gin handlers.
package httpx

import (
	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// JSONError writes the error envelope and aborts the handler chain.
func JSONError(c *gin.Context, status int, msg string, details any) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg, Details: details})
}
