package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"

	"laundry-backend/apperr"
	"laundry-backend/utils"
)

// AuthMiddleware validates the bearer token and stores the subject id and
// role in the request context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondError(c, apperr.Unauthorized("authorization header missing"))
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := utils.ParseToken(tokenString)
		if err != nil || claims == nil {
			utils.RespondError(c, apperr.Unauthorized("invalid or expired token"))
			c.Abort()
			return
		}

		if claims.UserID == 0 {
			utils.RespondError(c, apperr.Unauthorized("invalid user ID in token"))
			c.Abort()
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("role", claims.Role)

		c.Next()
	}
}

// WebSocketAuthMiddleware accepts the token from the query string, since
// browsers cannot set headers on websocket upgrades.
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatus(401)
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			c.AbortWithStatus(401)
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("role", claims.Role)

		c.Next()
	}
}