// Package ginutil holds the JSON error responses and rate-limit gate shared
// by duekit's gin handlers.
package ginutil

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Rate-limit buckets for HTTP routes. The email bucket lives in notify.
const (
	RLPermissionCheck   = "http:permission_check"
	RLDeadlinesEvaluate = "http:deadlines_evaluate"
	RLPresenceHeartbeat = "http:presence_heartbeat"
)

// RateLimiter matches both duekit limiters.
type RateLimiter interface {
	AllowNamed(bucket, key string) (bool, error)
}

// KeyUserID is the gin context key the session middleware stores the
// caller's user ID under.
const KeyUserID = "duekit.user_id"

// AllowNamed applies rl to the caller. The caller is keyed by session user
// when one is present, otherwise by client IP. A nil limiter allows all and
// a limiter error fails open.
func AllowNamed(c *gin.Context, rl RateLimiter, bucket string) bool {
	if rl == nil {
		return true
	}
	key := c.ClientIP()
	if uid := c.GetString(KeyUserID); uid != "" {
		key = "user:" + uid
	}
	ok, err := rl.AllowNamed(bucket, key)
	if err != nil {
		logrus.WithError(err).WithField("bucket", bucket).Warn("rate limiter unavailable")
		return true
	}
	return ok
}

func BadRequest(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": code})
}

func Unauthorized(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": code})
}

func Forbidden(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": code})
}

func NotFound(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": code})
}

func TooMany(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
}

func ServerErr(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": code})
}

// ServerErrWithLog logs err with the request path before responding 500.
func ServerErrWithLog(c *gin.Context, code string, err error, msg string) {
	logrus.WithError(err).WithFields(logrus.Fields{
		"path": c.FullPath(),
		"code": code,
	}).Error(msg)
	ServerErr(c, code)
}
