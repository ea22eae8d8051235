package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"pod_fulfillment_v1/internal/service"
)

// ==================== external dependencies ====================

// OrderRefresher refreshes batches of open orders.
type OrderRefresher interface {
	RefreshBatch(ctx context.Context, afterID int64, limit int) (*service.BatchResult, error)
}

// ==================== TrackingRefreshTask ====================

// TrackingRefreshTask polls providers for every open order on a schedule.
// Each run sweeps from the saved cursor to the end of the table; a run cut
// short by its timeout resumes from the cursor on the next tick.
type TrackingRefreshTask struct {
	refresher OrderRefresher
	cron      *cron.Cron
	log       *zap.Logger

	spec      string
	batchSize int
	timeout   time.Duration

	mu      sync.Mutex
	cursor  int64
	running atomic.Bool
}

// RefreshSummary is the outcome of one sweep.
type RefreshSummary struct {
	Batches  int   `json:"batches"`
	Orders   int   `json:"orders"`
	Failed   int   `json:"failed"`
	Resumed  bool  `json:"resumed"`
	Complete bool  `json:"complete"`
	Cursor   int64 `json:"cursor"`
}

func NewTrackingRefreshTask(refresher OrderRefresher, spec string, batchSize int, log *zap.Logger) *TrackingRefreshTask {
	if spec == "" {
		spec = "0 */15 * * * *"
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &TrackingRefreshTask{
		refresher: refresher,
		cron:      cron.New(cron.WithSeconds()),
		log:       log.Named("tracking_task"),
		spec:      spec,
		batchSize: batchSize,
		timeout:   10 * time.Minute,
	}
}

// Start schedules the sweep.
func (t *TrackingRefreshTask) Start() error {
	_, err := t.cron.AddFunc(t.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		t.refreshJob(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule tracking refresh %q: %w", t.spec, err)
	}
	t.cron.Start()
	t.log.Info("tracking refresh scheduled", zap.String("cron", t.spec), zap.Int("batch_size", t.batchSize))
	return nil
}

// Stop waits for a running sweep to finish.
func (t *TrackingRefreshTask) Stop() {
	<-t.cron.Stop().Done()
	t.log.Info("tracking refresh stopped")
}

// RefreshNow runs one sweep immediately. It returns nil when a sweep is already running.
func (t *TrackingRefreshTask) RefreshNow(ctx context.Context) *RefreshSummary {
	return t.refreshJob(ctx)
}

func (t *TrackingRefreshTask) refreshJob(ctx context.Context) *RefreshSummary {
	if !t.running.CompareAndSwap(false, true) {
		t.log.Info("tracking refresh already running, skipped")
		return nil
	}
	defer t.running.Store(false)

	t.mu.Lock()
	cursor := t.cursor
	t.mu.Unlock()

	sum := &RefreshSummary{Resumed: cursor > 0}
	start := time.Now()
	for {
		if ctx.Err() != nil {
			t.log.Warn("tracking refresh interrupted", zap.Int64("cursor", cursor), zap.Error(ctx.Err()))
			break
		}
		res, err := t.refresher.RefreshBatch(ctx, cursor, t.batchSize)
		if err != nil {
			t.log.Error("tracking refresh batch failed", zap.Int64("cursor", cursor), zap.Error(err))
			break
		}
		sum.Batches++
		sum.Orders += res.Orders
		sum.Failed += res.Failed
		cursor = res.LastID
		if cursor == 0 {
			sum.Complete = true
			break
		}
	}

	t.mu.Lock()
	t.cursor = cursor
	t.mu.Unlock()
	sum.Cursor = cursor

	t.log.Info("tracking refresh finished",
		zap.Int("orders", sum.Orders),
		zap.Int("failed", sum.Failed),
		zap.Int("batches", sum.Batches),
		zap.Bool("complete", sum.Complete),
		zap.Duration("took", time.Since(start)),
	)
	return sum
}
