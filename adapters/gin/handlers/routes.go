package handlers

import (
	authgin "github.com/PaulFidika/duekit/adapters/gin"
	"github.com/PaulFidika/duekit/adapters/ginutil"
	"github.com/PaulFidika/duekit/deadlines"
	jwtkit "github.com/PaulFidika/duekit/jwt"
	"github.com/PaulFidika/duekit/permissions"
	"github.com/PaulFidika/duekit/tasks"
	"github.com/gin-gonic/gin"
)

// Deps are the services the HTTP surface is built on. Keys, Presence,
// Source and Tasks are optional; routes that need a nil one are skipped.
type Deps struct {
	Table    *permissions.Table
	Engine   *deadlines.Engine
	Verifier authgin.SessionVerifier
	Keys     jwtkit.KeySource
	Presence Heartbeats
	Source   tasks.Source
	Tasks    TaskStore
	Limiter  ginutil.RateLimiter
}

// Register mounts duekit's routes on r.
//
//	GET  /.well-known/jwks.json
//	GET  /v1/permissions/check?permission=...&role=...
//	POST /v1/deadlines/evaluate      (manage:notifications)
//	POST /v1/presence/heartbeat      (session)
//	GET  /v1/tasks/:id               (view:tasks)
//	PUT  /v1/tasks/:id               (manage:tasks)
//	POST /v1/tasks/:id/status        (manage:tasks)
func Register(r gin.IRouter, d Deps) {
	if d.Keys != nil {
		r.GET("/.well-known/jwks.json", HandleJWKSGET(d.Keys))
	}
	v1 := r.Group("/v1", authgin.SessionMiddleware(d.Verifier))
	v1.GET("/permissions/check", HandlePermissionCheckGET(d.Table, d.Limiter))
	v1.POST("/deadlines/evaluate",
		authgin.RequirePermission(d.Table, permissions.PermManageNotification),
		HandleDeadlinesEvaluatePOST(d.Engine, d.Source, d.Limiter))
	if d.Presence != nil {
		v1.POST("/presence/heartbeat", authgin.RequireSession(), HandlePresenceHeartbeatPOST(d.Presence, d.Limiter))
	}
	if d.Tasks != nil {
		v1.GET("/tasks/:id",
			authgin.RequirePermission(d.Table, permissions.PermViewTasks),
			HandleTaskGET(d.Tasks))
		v1.PUT("/tasks/:id",
			authgin.RequirePermission(d.Table, permissions.PermManageTasks),
			HandleTaskPUT(d.Tasks))
		v1.POST("/tasks/:id/status",
			authgin.RequirePermission(d.Table, permissions.PermManageTasks),
			HandleTaskStatusPOST(d.Tasks))
	}
}
