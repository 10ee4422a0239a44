package middleware

import (
	"github.com/gin-gonic/gin"
)

const anonymousUser = "anonymous"

// NoAuth is a pass-through middleware for AUTH_MODE=none.
func NoAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Rate limiting and logs key on user_id, so set one
		c.Set("user_id", anonymousUser)
		c.Next()
	}
}
