package workers

import (
	"context"
	"sync"
	"time"

	"poseidon/pkg/logger"
)

// Worker defines the interface for background workers. The scheduler calls
// Run once per interval; a run completes one full iteration of work.
type Worker interface {
	Name() string
	Run(ctx context.Context) error
	Interval() time.Duration
	Enabled() bool
}

// BaseWorker provides common bookkeeping for workers.
type BaseWorker struct {
	name     string
	interval time.Duration
	enabled  bool
	log      *logger.Logger

	mu        sync.RWMutex
	lastRun   time.Time
	lastError error
	runCount  int64
	errCount  int64
}

// NewBaseWorker creates a base worker.
func NewBaseWorker(name string, interval time.Duration, enabled bool) *BaseWorker {
	return &BaseWorker{
		name:     name,
		interval: interval,
		enabled:  enabled,
		log:      logger.Get().With("worker", name),
	}
}

func (w *BaseWorker) Name() string            { return w.name }
func (w *BaseWorker) Interval() time.Duration { return w.interval }

func (w *BaseWorker) Enabled() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.enabled
}

// Log returns the worker's logger.
func (w *BaseWorker) Log() *logger.Logger { return w.log }

// recordRun updates run bookkeeping.
func (w *BaseWorker) recordRun(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastRun = time.Now()
	w.lastError = err
	w.runCount++
	if err != nil {
		w.errCount++
	}
}

// Stats returns run counters for status reporting.
func (w *BaseWorker) Stats() (lastRun time.Time, runs, errs int64) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastRun, w.runCount, w.errCount
}
