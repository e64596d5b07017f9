package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireSession guards the console API: no cached token, no access.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !StoreFrom(c).IsAuthenticated(c.Request.Context()) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "No authentication token found",
				},
			})
			return
		}
		c.Next()
	}
}

// RequireAdminSession reads the role from the cached user. Run it after
// RequireSession.
func RequireAdminSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !StoreFrom(c).IsAdmin(c.Request.Context()) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": "Admin role required",
				},
			})
			return
		}
		c.Next()
	}
}
