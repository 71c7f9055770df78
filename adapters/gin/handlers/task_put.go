package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/PaulFidika/duekit/adapters/ginutil"
	"github.com/PaulFidika/duekit/deadlines"
	"github.com/gin-gonic/gin"
)

// TaskStore persists tasks for the scheduled source to pick up.
// *tasks.Store implements it.
type TaskStore interface {
	Upsert(ctx context.Context, e deadlines.Entity) error
	Get(ctx context.Context, id string) (deadlines.Entity, error)
	SetStatus(ctx context.Context, id string, status deadlines.Status) error
}

type taskRequest struct {
	Title      string           `json:"title"`
	DueDate    string           `json:"due_date"`
	Status     deadlines.Status `json:"status"`
	AssignedTo string           `json:"assigned_to"`
}

func validStatus(s deadlines.Status) bool {
	switch s {
	case deadlines.StatusNotStarted, deadlines.StatusInProgress, deadlines.StatusCompleted, deadlines.StatusOnHold:
		return true
	}
	return false
}

// HandleTaskPUT creates or replaces the task named by :id. The due date is
// checked with the same parser the engine uses.
func HandleTaskPUT(store TaskStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.Param("id"))
		if id == "" {
			ginutil.BadRequest(c, "missing_task_id")
			return
		}
		var req taskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		if req.Status == "" {
			req.Status = deadlines.StatusNotStarted
		}
		if !validStatus(req.Status) {
			ginutil.BadRequest(c, "invalid_status")
			return
		}
		if req.DueDate != "" {
			if _, err := deadlines.ParseDueDate(req.DueDate, time.Now()); err != nil {
				ginutil.BadRequest(c, "invalid_due_date")
				return
			}
		}
		e := deadlines.Entity{ID: id, Title: req.Title, DueDate: req.DueDate, Status: req.Status, AssignedTo: req.AssignedTo}
		if err := store.Upsert(c.Request.Context(), e); err != nil {
			if errors.Is(err, deadlines.ErrMissingEntityID) {
				ginutil.BadRequest(c, "missing_task_id")
				return
			}
			ginutil.ServerErrWithLog(c, "save_task_failed", err, "save task")
			return
		}
		c.JSON(http.StatusOK, e)
	}
}
