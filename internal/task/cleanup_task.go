package task

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Purger drops expired in-memory entries and reports how many went.
type Purger interface {
	Purge() int
}

// ==================== CleanupTask ====================

// CleanupTask evicts expired carts and quotes.
type CleanupTask struct {
	purgers map[string]Purger
	cron    *cron.Cron
	log     *zap.Logger
	spec    string
}

func NewCleanupTask(purgers map[string]Purger, spec string, log *zap.Logger) *CleanupTask {
	if spec == "" {
		spec = "0 */10 * * * *"
	}
	return &CleanupTask{
		purgers: purgers,
		cron:    cron.New(cron.WithSeconds()),
		log:     log.Named("cleanup_task"),
		spec:    spec,
	}
}

func (t *CleanupTask) Start() error {
	if _, err := t.cron.AddFunc(t.spec, func() { t.Run() }); err != nil {
		return fmt.Errorf("schedule cleanup %q: %w", t.spec, err)
	}
	t.cron.Start()
	return nil
}

func (t *CleanupTask) Stop() {
	<-t.cron.Stop().Done()
}

// Run purges every cache once and returns the removed count per cache.
func (t *CleanupTask) Run() map[string]int {
	removed := make(map[string]int, len(t.purgers))
	for name, p := range t.purgers {
		n := p.Purge()
		removed[name] = n
		if n > 0 {
			t.log.Debug("expired entries purged", zap.String("cache", name), zap.Int("removed", n))
		}
	}
	return removed
}
