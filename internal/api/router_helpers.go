package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/clemoseitano/open-inventory-api/internal/middleware"
	"github.com/clemoseitano/open-inventory-api/internal/ws"
)

// getUserID extracts the authenticated user ID set by the auth middleware.
func getUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get(middleware.UserIDKey)
	if !exists {
		respondError(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing authentication")

		return 0, false
	}

	userID, ok := v.(int64)
	if !ok || userID == 0 {
		respondError(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing authentication")

		return 0, false
	}

	return userID, true
}

// requireTenantParam reads the tenant slug from the query string.
func requireTenantParam(c *gin.Context) (string, bool) {
	slug := c.Query("tenant")
	if slug == "" {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "tenant query parameter is required")

		return "", false
	}

	return slug, true
}

// parseSince parses the optional since watermark as RFC3339 (with or without
// fractional seconds).
func parseSince(c *gin.Context) (*time.Time, bool) {
	raw := c.Query("since")
	if raw == "" {
		return nil, true
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid since format, use RFC3339")

		return nil, false
	}

	return &t, true
}

func wsHandler(appCtx context.Context, log *logrus.Logger, hub *ws.Hub, corsOrigins []string, members MembershipResolver, lookup middleware.UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := getUserID(c)
		if !ok {
			return
		}

		slug, ok := requireTenantParam(c)
		if !ok {
			return
		}

		// Membership is checked once at connect; the periodic token refresh
		// inside the client re-validates the API key afterwards.
		if _, _, err := members.ResolveMember(c.Request.Context(), userID, slug); err != nil {
			respondError(c, http.StatusForbidden, ErrCodeForbidden, "not a member of this tenant")

			return
		}

		// Extract the raw API key for periodic re-validation.
		apiKey := middleware.ExtractBearerToken(c)

		// CORS origins are reused as WebSocket origin patterns. The config
		// validator ensures these are safe host patterns (no wildcards etc.).
		conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
			OriginPatterns:       corsOrigins,
			CompressionMode:      websocket.CompressionContextTakeover,
			CompressionThreshold: 128,
		})
		if err != nil {
			log.WithError(err).Error("websocket accept failed")

			return
		}

		client := ws.NewClient(hub, conn, lookup, apiKey, slug)
		hub.Register(client)

		// Derive a context that cancels when either the server shuts down or the request ends.
		wsCtx, wsCancel := context.WithCancel(appCtx)
		go func() {
			select {
			case <-c.Request.Context().Done():
				wsCancel()
			case <-wsCtx.Done():
			}
		}()

		go client.WritePump(wsCtx)
		client.ReadPump(wsCtx)
		wsCancel()
	}
}

func ginLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		}
		if rid, exists := c.Get(middleware.RequestIDKey); exists {
			fields["request_id"] = rid
		}
		if tenant := c.Query("tenant"); tenant != "" {
			fields["tenant"] = tenant
		}
		log.WithFields(fields).Info("request")
	}
}

// maxPaginationLimit caps the maximum number of items per page.
const maxPaginationLimit = 500

// maxPaginationOffset caps the maximum offset for paginated queries.
const maxPaginationOffset = 100000

func parseInt(s string, fallback int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return fallback
	}

	if v > maxPaginationLimit {
		return maxPaginationLimit
	}

	return v
}

func parseOffset(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0
	}

	if v > maxPaginationOffset {
		return maxPaginationOffset
	}

	return v
}
