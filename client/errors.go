package client

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError represents a structured error response from the sync API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("openinventory: %d %s: %s (request_id=%s)", e.StatusCode, e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("openinventory: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsNotFound returns true if the error is a 404 not found.
func IsNotFound(err error) bool {
	if e, ok := err.(*APIError); ok {
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// IsConflict returns true if the error is a 409 conflict (duplicate key).
func IsConflict(err error) bool {
	if e, ok := err.(*APIError); ok {
		return e.StatusCode == http.StatusConflict
	}
	return false
}

// IsForbidden returns true if the error is a 403 membership rejection.
func IsForbidden(err error) bool {
	if e, ok := err.(*APIError); ok {
		return e.StatusCode == http.StatusForbidden
	}
	return false
}

// IsFullSyncRequired returns true if the server answered a pull with 410:
// the cursor predates retained history and the caller must download a
// fresh snapshot instead of catching up incrementally.
func IsFullSyncRequired(err error) bool {
	if e, ok := err.(*APIError); ok {
		return e.StatusCode == http.StatusGone
	}
	return false
}

// IsRateLimited returns true if the error is a 429 rate limit.
func IsRateLimited(err error) bool {
	if e, ok := err.(*APIError); ok {
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// parseAPIError attempts to decode a JSON error body; falls back to raw text.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = "unknown"
		apiErr.Message = string(body)
	}
	return apiErr
}
