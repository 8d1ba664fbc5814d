package api

import (
	"github.com/gin-gonic/gin"

	"github.com/clemoseitano/open-inventory-api/internal/httputil"
	"github.com/clemoseitano/open-inventory-api/internal/metrics"
	"github.com/clemoseitano/open-inventory-api/internal/models"
)

// Error code constants for standardized API responses.
const (
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeInternalError    = "internal_error"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeConflict         = "conflict"
	ErrCodeValidationError  = "validation_error"
	ErrCodeFullSyncRequired = "full_sync_required"
)

// respondError writes a standardized JSON error response, pulling the request
// ID from the Gin context (set by the request ID middleware).
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondError(c, status, code, message)
}

// respondValidationError writes the per-field detail of a rejected batch.
func respondValidationError(c *gin.Context, status int, fields models.ValidationErrors) {
	metrics.ErrorsTotal.WithLabelValues(ErrCodeValidationError).Inc()
	httputil.RespondValidationError(c, status, ErrCodeValidationError, "request validation failed", fields)
}
