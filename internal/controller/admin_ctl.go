package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pod_fulfillment_v1/internal/task"
)

// TaskRunner exposes the background jobs to operators.
type TaskRunner interface {
	TriggerTrackingRefresh(ctx context.Context) (*task.RefreshSummary, error)
	Status() map[string]bool
}

type AdminController struct {
	tasks TaskRunner
	log   *zap.Logger
}

func NewAdminController(tasks TaskRunner, log *zap.Logger) *AdminController {
	return &AdminController{tasks: tasks, log: log}
}

// RefreshTracking runs a tracking sweep now instead of waiting for the schedule.
// POST /api/admin/tracking/refresh
func (c *AdminController) RefreshTracking(ctx *gin.Context) {
	summary, err := c.tasks.TriggerTrackingRefresh(ctx.Request.Context())
	if errors.Is(err, task.ErrTaskDisabled) {
		ctx.JSON(http.StatusConflict, gin.H{"error": "tracking refresh is disabled"})
		return
	}
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	if summary == nil {
		ctx.JSON(http.StatusConflict, gin.H{"error": "a tracking refresh is already running"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": summary})
}

// Tasks GET /api/admin/tasks
func (c *AdminController) Tasks(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"data": c.tasks.Status()})
}
