package task

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"pod_fulfillment_v1/internal/service"
)

// CatalogSyncer refreshes the normalized catalog of every provider.
type CatalogSyncer interface {
	SyncAll(ctx context.Context) *service.SyncReport
}

// ==================== CatalogSyncTask ====================

// CatalogSyncTask re-imports provider catalogs on a schedule.
type CatalogSyncTask struct {
	syncer  CatalogSyncer
	cron    *cron.Cron
	log     *zap.Logger
	spec    string
	timeout time.Duration
	running atomic.Bool
}

func NewCatalogSyncTask(syncer CatalogSyncer, spec string, timeout time.Duration, log *zap.Logger) *CatalogSyncTask {
	if spec == "" {
		spec = "0 0 3 * * *"
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &CatalogSyncTask{
		syncer:  syncer,
		cron:    cron.New(cron.WithSeconds()),
		log:     log.Named("catalog_task"),
		spec:    spec,
		timeout: timeout,
	}
}

func (t *CatalogSyncTask) Start() error {
	_, err := t.cron.AddFunc(t.spec, func() {
		t.SyncNow(context.Background())
	})
	if err != nil {
		return fmt.Errorf("schedule catalog sync %q: %w", t.spec, err)
	}
	t.cron.Start()
	t.log.Info("catalog sync scheduled", zap.String("cron", t.spec))
	return nil
}

func (t *CatalogSyncTask) Stop() {
	<-t.cron.Stop().Done()
	t.log.Info("catalog sync stopped")
}

// SyncNow syncs every provider with the task timeout. It returns nil when a sync is already running.
func (t *CatalogSyncTask) SyncNow(ctx context.Context) *service.SyncReport {
	if !t.running.CompareAndSwap(false, true) {
		t.log.Info("catalog sync already running, skipped")
		return nil
	}
	defer t.running.Store(false)

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	report := t.syncer.SyncAll(ctx)
	for _, r := range report.Results {
		if r.Error != "" {
			t.log.Warn("catalog sync failed", zap.String("provider", r.Provider), zap.String("error", r.Error))
			continue
		}
		t.log.Info("catalog synced",
			zap.String("provider", r.Provider),
			zap.Int("stored", r.Stored),
			zap.Int("skipped", r.Skipped),
			zap.Int("needs_review", r.NeedsReview),
			zap.Int64("discontinued", r.Discontinued),
		)
	}
	return report
}
