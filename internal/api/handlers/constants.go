package handlers

import "github.com/gin-gonic/gin"

const (
	// maxBodyBytes caps POST /api/generate bodies
	maxBodyBytes = 16 << 10

	msgMethodNotAllowed = "Method not allowed"
	msgNotFound         = "Not found"
)

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"ok": true, "data": data})
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"ok": false, "error": message})
}
