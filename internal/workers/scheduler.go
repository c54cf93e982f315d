package workers

import (
	"context"
	"sync"
	"time"

	"poseidon/pkg/errors"
	"poseidon/pkg/logger"
)

// Scheduler runs registered workers on their intervals, each in its own
// goroutine with a single-threaded cooperative loop per worker.
type Scheduler struct {
	workers []Worker
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	log     *logger.Logger
}

// NewScheduler creates a worker scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{log: logger.Get().With("component", "scheduler")}
}

// RegisterWorker adds a worker before start.
func (s *Scheduler) RegisterWorker(w Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.log.Warnw("cannot register worker after start", "worker", w.Name())
		return
	}
	s.workers = append(s.workers, w)
	s.log.Infow("worker registered", "worker", w.Name(), "interval", w.Interval())
}

// Start launches all enabled workers. Each runs immediately, then on its
// interval.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.Wrap(errors.ErrInternal, "scheduler already started")
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	for _, w := range s.workers {
		if !w.Enabled() {
			s.log.Infow("skipping disabled worker", "worker", w.Name())
			continue
		}
		s.wg.Add(1)
		go s.runWorker(w)
	}

	s.log.Infow("scheduler started", "workers", len(s.workers))
	return nil
}

func (s *Scheduler) runWorker(w Worker) {
	defer s.wg.Done()

	run := func() {
		if err := w.Run(s.ctx); err != nil && s.ctx.Err() == nil {
			s.log.Errorw("worker run failed", "worker", w.Name(), "error", err)
		}
	}

	run()

	ticker := time.NewTicker(w.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

// Stop cancels all workers and waits for in-flight runs, bounded by a grace
// period.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return errors.Wrap(errors.ErrInternal, "scheduler not started")
	}
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("all workers stopped")
		return nil
	case <-time.After(time.Minute):
		return errors.Wrap(errors.ErrInternal, "worker shutdown timed out")
	}
}

// IsRunning reports whether the scheduler has started.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}
