package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/PaulFidika/duekit/adapters/ginutil"
	"github.com/PaulFidika/duekit/deadlines"
	"github.com/PaulFidika/duekit/tasks"
	"github.com/gin-gonic/gin"
)

type statusRequest struct {
	Status deadlines.Status `json:"status"`
}

// HandleTaskStatusPOST moves an existing task to a new status. Marking a
// task Completed stops further deadline alerts for it.
func HandleTaskStatusPOST(store TaskStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.Param("id"))
		if id == "" {
			ginutil.BadRequest(c, "missing_task_id")
			return
		}
		var req statusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		if !validStatus(req.Status) {
			ginutil.BadRequest(c, "invalid_status")
			return
		}
		err := store.SetStatus(c.Request.Context(), id, req.Status)
		if errors.Is(err, tasks.ErrNotFound) {
			ginutil.NotFound(c, "task_not_found")
			return
		}
		if err != nil {
			ginutil.ServerErrWithLog(c, "update_task_failed", err, "update task status")
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "status": req.Status})
	}
}
