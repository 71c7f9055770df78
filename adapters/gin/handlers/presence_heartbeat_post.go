package handlers

import (
	"context"
	"net/http"

	authgin "github.com/PaulFidika/duekit/adapters/gin"
	"github.com/PaulFidika/duekit/adapters/ginutil"
	"github.com/gin-gonic/gin"
)

// Heartbeats records that a user is currently online.
type Heartbeats interface {
	Touch(ctx context.Context, userID string) error
}

// HandlePresenceHeartbeatPOST marks the session user online.
func HandlePresenceHeartbeatPOST(presence Heartbeats, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := authgin.CurrentSession(c)
		if !ok {
			ginutil.Unauthorized(c, "unauthorized")
			return
		}
		if !ginutil.AllowNamed(c, rl, ginutil.RLPresenceHeartbeat) {
			ginutil.TooMany(c)
			return
		}
		if err := presence.Touch(c.Request.Context(), s.UserID); err != nil {
			ginutil.ServerErrWithLog(c, "heartbeat_failed", err, "record presence heartbeat")
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
