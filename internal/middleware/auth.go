package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// authTimingFloor is the minimum response time for auth failures to prevent
// timing oracle attacks that could distinguish valid from invalid API keys.
const authTimingFloor = 50 * time.Millisecond

// UserIDKey is the gin context key holding the authenticated user ID.
const UserIDKey = "user_id"

// UserLookup is the interface for resolving an API key to a user.
type UserLookup interface {
	GetUserByAPIKey(ctx context.Context, apiKey string) (int64, error)
}

// truncateKey returns at most the first 4 characters of key followed by "...".
func truncateKey(key string) string {
	if len(key) > 4 {
		return key[:4] + "..."
	}
	return key
}

// enforceTimingFloor sleeps if needed so the response takes at least authTimingFloor.
func enforceTimingFloor(start time.Time) {
	if elapsed := time.Since(start); elapsed < authTimingFloor {
		time.Sleep(authTimingFloor - elapsed)
	}
}

// AuthMiddleware returns Gin middleware that authenticates requests via
// Bearer API key and stores the resolved user ID on the context. Tenant
// membership is checked later, per request, by the sync handlers.
func AuthMiddleware(lookup UserLookup, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if c.Writer.Status() == http.StatusUnauthorized {
				enforceTimingFloor(start)
			}
		}()

		apiKey := ExtractBearerToken(c)
		if apiKey == "" {
			respondError(c, http.StatusUnauthorized, "unauthorized", "missing or invalid authorization header")
			return
		}

		userID, err := lookup.GetUserByAPIKey(c.Request.Context(), apiKey)
		if err != nil {
			logAuthFailure(log, c, apiKey)
			respondError(c, http.StatusUnauthorized, "unauthorized", "invalid api key")
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// AdminAuth returns Gin middleware guarding operator endpoints with a static
// admin token. An empty configured token disables the admin surface entirely.
func AdminAuth(adminToken string, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if c.Writer.Status() == http.StatusUnauthorized {
				enforceTimingFloor(start)
			}
		}()

		if adminToken == "" {
			respondError(c, http.StatusNotFound, "not_found", "admin endpoints disabled")
			return
		}

		token := ExtractBearerToken(c)
		if subtle.ConstantTimeCompare([]byte(token), []byte(adminToken)) != 1 {
			logAuthFailure(log, c, token)
			respondError(c, http.StatusUnauthorized, "unauthorized", "invalid admin token")
			return
		}

		c.Next()
	}
}

// ExtractBearerToken extracts the API key from the Authorization header.
func ExtractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// logAuthFailure logs a failed authentication attempt.
func logAuthFailure(log *logrus.Logger, c *gin.Context, apiKey string) {
	log.WithFields(logrus.Fields{
		"client_ip":  c.ClientIP(),
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"user_agent": c.Request.UserAgent(),
		"request_id": c.GetString("request_id"),
		"key_prefix": truncateKey(apiKey),
	}).Warn("authentication failed")
}
