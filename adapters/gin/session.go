package authgin

import (
	"context"
	"strings"

	"github.com/PaulFidika/duekit/adapters/ginutil"
	jwtkit "github.com/PaulFidika/duekit/jwt"
	"github.com/PaulFidika/duekit/permissions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const keySession = "duekit.session"

// SessionVerifier is satisfied by *jwtkit.Verifier.
type SessionVerifier interface {
	Verify(ctx context.Context, raw string) (jwtkit.SessionClaims, error)
}

// SessionMiddleware verifies a bearer token when one is sent and stores the
// session on the context. Requests without a token pass through unauthenticated;
// a token that fails verification is rejected with 401.
func SessionMiddleware(v SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			c.Next()
			return
		}
		claims, err := v.Verify(c.Request.Context(), raw)
		if err != nil {
			logrus.WithError(err).Debug("session token rejected")
			ginutil.Unauthorized(c, "invalid_token")
			return
		}
		c.Set(keySession, claims)
		c.Set(ginutil.KeyUserID, claims.UserID)
		c.Next()
	}
}

// CurrentSession returns the verified session, if any.
func CurrentSession(c *gin.Context) (jwtkit.SessionClaims, bool) {
	v, ok := c.Get(keySession)
	if !ok {
		return jwtkit.SessionClaims{}, false
	}
	s, ok := v.(jwtkit.SessionClaims)
	return s, ok && s.UserID != ""
}

// RequireSession aborts with 401 when no session was verified.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentSession(c); !ok {
			ginutil.Unauthorized(c, "unauthorized")
			return
		}
		c.Next()
	}
}

// RequirePermission aborts with 401 without a session and 403 when the
// session's role lacks permission in table.
func RequirePermission(table *permissions.Table, permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := CurrentSession(c)
		if !ok {
			ginutil.Unauthorized(c, "unauthorized")
			return
		}
		if !table.HasPermission(s.Role, permission) {
			logrus.WithFields(logrus.Fields{
				"user_id":    s.UserID,
				"role":       s.Role,
				"permission": permission,
			}).Info("permission denied")
			ginutil.Forbidden(c, "forbidden")
			return
		}
		c.Next()
	}
}

func bearerToken(h string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
