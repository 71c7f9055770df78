package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/PaulFidika/duekit/adapters/ginutil"
	"github.com/PaulFidika/duekit/deadlines"
	"github.com/PaulFidika/duekit/notify"
	"github.com/PaulFidika/duekit/tasks"
	"github.com/gin-gonic/gin"
)

type evaluateRequest struct {
	Entities []deadlines.Entity `json:"entities"`
}

type skipView struct {
	EntityID string `json:"entity_id"`
	Reason   string `json:"reason"`
}

// HandleDeadlinesEvaluatePOST runs one evaluation pass. Entities in the
// request body are only previewed: nothing is claimed or delivered. An
// empty body runs a real pass over source when one is set.
// Mount it behind RequirePermission(table, manage:notifications).
func HandleDeadlinesEvaluatePOST(engine *deadlines.Engine, source tasks.Source, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLDeadlinesEvaluate) {
			ginutil.TooMany(c)
			return
		}
		var req evaluateRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		var res deadlines.Result
		switch {
		case req.Entities != nil:
			res = engine.PreviewNow(c.Request.Context(), req.Entities)
		case source != nil:
			entities, err := source.Entities(c.Request.Context())
			if err != nil {
				ginutil.ServerErrWithLog(c, "load_entities_failed", err, "load entities")
				return
			}
			res = engine.EvaluateNow(c.Request.Context(), entities)
		default:
			res = engine.PreviewNow(c.Request.Context(), nil)
		}
		skipped := make([]skipView, 0, len(res.Skipped))
		for _, s := range res.Skipped {
			skipped = append(skipped, skipView{EntityID: s.EntityID, Reason: s.Reason})
		}
		events := res.Events
		if events == nil {
			events = []notify.Event{}
		}
		c.JSON(http.StatusOK, gin.H{
			"run_id":       res.RunID,
			"evaluated_at": res.EvaluatedAt,
			"events":       events,
			"skipped":      skipped,
			"dry_run":      res.DryRun,
		})
	}
}
