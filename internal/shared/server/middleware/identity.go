package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"jar-translator/internal/shared/util"
)

const clientIDKey = "clientId"

const maxClientIDLen = 128

// Identity resolves a client identifier for logging and rate limiting. An
// explicit X-Client-Id header wins; otherwise a hash of the client IP is used.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader("X-Client-Id"))
		if len(id) > maxClientIDLen {
			id = id[:maxClientIDLen]
		}
		if id == "" {
			id = "ip:" + util.ShortHash(c.ClientIP(), 16)
		}
		c.Set(clientIDKey, id)
		c.Next()
	}
}

// ClientIDFromContext fetches the client ID set by the Identity middleware.
func ClientIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(clientIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
