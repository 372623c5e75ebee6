package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORSMiddleware 允许浏览器端跨域访问 API。
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept")
		c.Header("Access-Control-Expose-Headers", "Content-Disposition, X-File-Id")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
