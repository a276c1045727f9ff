package middlewares

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeaders sets the headers that matter for a JSON and event-stream
// API. HSTS is only sent over HTTPS, directly or behind a TLS proxy.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "no-referrer")
		// Seating state changes every few seconds; never serve it from a cache.
		c.Header("Cache-Control", "no-store")

		if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
