package task

import (
	"context"
	"time"

	"go.uber.org/zap"

	"pod_fulfillment_v1/internal/service"
)

// ==================== TaskManager ====================

// TaskManager owns the scheduled background work: order status polling,
// catalog re-import and cache cleanup.
type TaskManager struct {
	trackingTask *TrackingRefreshTask
	catalogTask  *CatalogSyncTask
	cleanupTask  *CleanupTask
	log          *zap.Logger
}

// TaskManagerDeps are the services the tasks drive. A nil dependency disables its task.
type TaskManagerDeps struct {
	Tracking OrderRefresher
	Catalog  CatalogSyncer
	Carts    Purger
	Quotes   Purger
}

type TaskManagerConfig struct {
	TrackingEnabled   bool
	TrackingCron      string
	TrackingBatchSize int

	CatalogEnabled bool
	CatalogCron    string
	CatalogTimeout time.Duration

	CleanupCron string
}

func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		TrackingEnabled:   true,
		TrackingCron:      "0 */15 * * * *",
		TrackingBatchSize: 100,

		CatalogEnabled: true,
		CatalogCron:    "0 0 3 * * *",
		CatalogTimeout: 2 * time.Minute,

		CleanupCron: "0 */10 * * * *",
	}
}

func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig, log *zap.Logger) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	tm := &TaskManager{log: log.Named("tasks")}

	if cfg.TrackingEnabled && deps.Tracking != nil {
		tm.trackingTask = NewTrackingRefreshTask(deps.Tracking, cfg.TrackingCron, cfg.TrackingBatchSize, log)
	}
	if cfg.CatalogEnabled && deps.Catalog != nil {
		tm.catalogTask = NewCatalogSyncTask(deps.Catalog, cfg.CatalogCron, cfg.CatalogTimeout, log)
	}

	purgers := make(map[string]Purger)
	if deps.Carts != nil {
		purgers["carts"] = deps.Carts
	}
	if deps.Quotes != nil {
		purgers["quotes"] = deps.Quotes
	}
	if len(purgers) > 0 {
		tm.cleanupTask = NewCleanupTask(purgers, cfg.CleanupCron, log)
	}
	return tm
}

// ==================== lifecycle ====================

// Start schedules every enabled task. Tasks already started are stopped on error.
func (tm *TaskManager) Start() error {
	var started []func()
	for _, t := range tm.tasks() {
		if err := t.Start(); err != nil {
			for _, stop := range started {
				stop()
			}
			return err
		}
		started = append(started, t.Stop)
	}
	tm.log.Info("background tasks started", zap.Any("status", tm.Status()))
	return nil
}

// Stop waits for running jobs to finish.
func (tm *TaskManager) Stop() {
	for _, t := range tm.tasks() {
		t.Stop()
	}
	tm.log.Info("background tasks stopped")
}

type scheduled interface {
	Start() error
	Stop()
}

func (tm *TaskManager) tasks() []scheduled {
	var out []scheduled
	if tm.trackingTask != nil {
		out = append(out, tm.trackingTask)
	}
	if tm.catalogTask != nil {
		out = append(out, tm.catalogTask)
	}
	if tm.cleanupTask != nil {
		out = append(out, tm.cleanupTask)
	}
	return out
}

// ==================== manual triggers ====================

// TriggerTrackingRefresh runs a status sweep now. It returns a nil summary when one is already running.
func (tm *TaskManager) TriggerTrackingRefresh(ctx context.Context) (*RefreshSummary, error) {
	if tm.trackingTask == nil {
		return nil, ErrTaskDisabled
	}
	return tm.trackingTask.RefreshNow(ctx), nil
}

// TriggerCatalogSync re-imports every provider catalog now.
func (tm *TaskManager) TriggerCatalogSync(ctx context.Context) (*service.SyncReport, error) {
	if tm.catalogTask == nil {
		return nil, ErrTaskDisabled
	}
	return tm.catalogTask.SyncNow(ctx), nil
}

// ==================== status ====================

func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"tracking": tm.trackingTask != nil,
		"catalog":  tm.catalogTask != nil,
		"cleanup":  tm.cleanupTask != nil,
	}
}

// ==================== errors ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
)
