package middlewares

import (
	"github.com/gin-gonic/gin"

	"laundry-backend/apperr"
	"laundry-backend/models"
	"laundry-backend/utils"
)

// RequireRoles gates an endpoint to the given roles. SUPER_ADMIN passes
// every gate.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleValue, exists := c.Get("role")
		if !exists {
			utils.RespondError(c, apperr.Unauthorized("unauthorized"))
			c.Abort()
			return
		}

		role, ok := roleValue.(models.Role)
		if !ok {
			utils.RespondError(c, apperr.Unauthorized("unauthorized"))
			c.Abort()
			return
		}

		if role == models.RoleSuperAdmin {
			c.Next()
			return
		}

		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		utils.RespondError(c, apperr.Forbidden("%s access required", roles[0]))
		c.Abort()
	}
}

// SubjectID returns the authenticated user id set by AuthMiddleware.
func SubjectID(c *gin.Context) uint {
	v, _ := c.Get("userID")
	id, _ := v.(uint)
	return id
}
