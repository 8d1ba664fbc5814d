package middleware

import "github.com/gin-gonic/gin"

// SecurityHeaders returns Gin middleware that sets security response headers.
// The API is JSON-only and never renders HTML, so the CSP denies everything
// and framing is blocked outright. Cache-Control: no-store keeps journal
// entries and snapshot exports out of shared proxy caches; stale sync data
// served from a cache would defeat the cursor protocol.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Header("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		c.Header("Cache-Control", "no-store")

		c.Next()
	}
}
