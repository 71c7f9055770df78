package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/PaulFidika/duekit/adapters/ginutil"
	"github.com/PaulFidika/duekit/tasks"
	"github.com/gin-gonic/gin"
)

// HandleTaskGET returns the task named by :id.
func HandleTaskGET(store TaskStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.Param("id"))
		if id == "" {
			ginutil.BadRequest(c, "missing_task_id")
			return
		}
		e, err := store.Get(c.Request.Context(), id)
		if errors.Is(err, tasks.ErrNotFound) {
			ginutil.NotFound(c, "task_not_found")
			return
		}
		if err != nil {
			ginutil.ServerErrWithLog(c, "load_task_failed", err, "load task")
			return
		}
		c.JSON(http.StatusOK, e)
	}
}
