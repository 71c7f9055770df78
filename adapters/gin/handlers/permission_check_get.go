package handlers

import (
	"net/http"
	"strings"

	authgin "github.com/PaulFidika/duekit/adapters/gin"
	"github.com/PaulFidika/duekit/adapters/ginutil"
	"github.com/PaulFidika/duekit/permissions"
	"github.com/gin-gonic/gin"
)

type permissionCheckResponse struct {
	Role       permissions.Role `json:"role"`
	Permission string           `json:"permission"`
	permissions.Decision
}

// HandlePermissionCheckGET explains a permission decision. The role comes
// from ?role= or, when absent, from the caller's session.
func HandlePermissionCheckGET(table *permissions.Table, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLPermissionCheck) {
			ginutil.TooMany(c)
			return
		}
		perm := strings.TrimSpace(c.Query("permission"))
		if perm == "" {
			ginutil.BadRequest(c, "missing_permission")
			return
		}
		role := permissions.Role(strings.TrimSpace(c.Query("role")))
		if role == "" {
			s, ok := authgin.CurrentSession(c)
			if !ok {
				ginutil.BadRequest(c, "missing_role")
				return
			}
			role = s.Role
		}
		c.JSON(http.StatusOK, permissionCheckResponse{
			Role:       role,
			Permission: perm,
			Decision:   table.Explain(role, perm),
		})
	}
}
