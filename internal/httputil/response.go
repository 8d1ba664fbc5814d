// Package httputil provides shared HTTP response helpers.
package httputil

import (
	"github.com/gin-gonic/gin"

	"github.com/clemoseitano/open-inventory-api/internal/models"
)

// RespondError writes a standardized JSON error response and aborts the request.
func RespondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorBody(c, code, message))
}

// RespondValidationError writes an error response carrying the per-field
// detail of a rejected batch or admin request.
func RespondValidationError(c *gin.Context, status int, code, message string, fields models.ValidationErrors) {
	body := errorBody(c, code, message)
	body["errors"] = fields

	c.AbortWithStatusJSON(status, body)
}

func errorBody(c *gin.Context, code, message string) map[string]any {
	body := map[string]any{
		"code":    code,
		"message": message,
	}

	if rid, exists := c.Get("request_id"); exists {
		if s, ok := rid.(string); ok && s != "" {
			body["request_id"] = s
		}
	}

	return body
}
