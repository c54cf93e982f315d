package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockWorker struct {
	*BaseWorker
	runCount int32
	runFunc  func(ctx context.Context) error
}

func newMockWorker(name string, interval time.Duration, enabled bool) *mockWorker {
	return &mockWorker{
		BaseWorker: NewBaseWorker(name, interval, enabled),
		runFunc:    func(ctx context.Context) error { return nil },
	}
}

func (m *mockWorker) Run(ctx context.Context) error {
	atomic.AddInt32(&m.runCount, 1)
	return m.runFunc(ctx)
}

func (m *mockWorker) GetRunCount() int {
	return int(atomic.LoadInt32(&m.runCount))
}

func TestSchedulerStartStop(t *testing.T) {
	scheduler := NewScheduler()

	worker := newMockWorker("test-worker", 50*time.Millisecond, true)
	scheduler.RegisterWorker(worker)

	require.NoError(t, scheduler.Start(context.Background()))
	assert.True(t, scheduler.IsRunning())

	time.Sleep(150 * time.Millisecond)

	require.NoError(t, scheduler.Stop())

	// Immediate run plus at least one tick.
	assert.GreaterOrEqual(t, worker.GetRunCount(), 2)
}

func TestSchedulerSkipsDisabledWorkers(t *testing.T) {
	scheduler := NewScheduler()

	disabled := newMockWorker("disabled", 10*time.Millisecond, false)
	scheduler.RegisterWorker(disabled)

	require.NoError(t, scheduler.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, scheduler.Stop())

	assert.Zero(t, disabled.GetRunCount())
}

func TestSchedulerDoubleStart(t *testing.T) {
	scheduler := NewScheduler()
	scheduler.RegisterWorker(newMockWorker("w", time.Second, true))

	require.NoError(t, scheduler.Start(context.Background()))
	assert.Error(t, scheduler.Start(context.Background()))
	require.NoError(t, scheduler.Stop())
}

func TestSchedulerKeepsRunningAfterWorkerError(t *testing.T) {
	scheduler := NewScheduler()

	worker := newMockWorker("flaky", 30*time.Millisecond, true)
	worker.runFunc = func(ctx context.Context) error { return assert.AnError }
	scheduler.RegisterWorker(worker)

	require.NoError(t, scheduler.Start(context.Background()))
	time.Sleep(120 * time.Millisecond)
	require.NoError(t, scheduler.Stop())

	assert.GreaterOrEqual(t, worker.GetRunCount(), 2, "worker keeps its cadence despite errors")
}

func TestBaseWorkerStats(t *testing.T) {
	w := NewBaseWorker("stats", time.Minute, true)

	w.recordRun(nil)
	w.recordRun(assert.AnError)

	lastRun, runs, errs := w.Stats()
	assert.False(t, lastRun.IsZero())
	assert.EqualValues(t, 2, runs)
	assert.EqualValues(t, 1, errs)
}
