package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// StreamAuthMiddleware authenticates live-view connections. Browsers cannot
// set headers on EventSource or WebSocket, so the token may come as ?token=.
func StreamAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		if token == "" || !authenticate(c, token) {
			c.AbortWithStatus(401)
			return
		}
		c.Next()
	}
}
