package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poseidon/internal/domain/lp"
	"poseidon/pkg/errors"
)

func newTestStore() *Store {
	return New(NewMemory())
}

func TestUserRoundTrip(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	profile := &lp.UserProfile{WalletID: "w1", Address: "addr", ChatID: 42, CreatedAt: time.Now()}
	require.NoError(t, s.SaveUser(ctx, profile))

	got, err := s.GetUser(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, "addr", got.Address)

	wallet, err := s.WalletForChat(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "w1", wallet)
}

func TestRecipientRequiresTransport(t *testing.T) {
	s := newTestStore()

	err := s.SaveRecipient(context.Background(), &lp.Recipient{Wallet: "w1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	err = s.SaveRecipient(context.Background(), &lp.Recipient{Wallet: "w1", ChatID: 7})
	assert.NoError(t, err)
}

func TestTrackedLifecycle(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	tracked := &lp.TrackedPosition{
		PositionID:  "pos1",
		Wallet:      "w1",
		Pool:        "pool1",
		Venue:       lp.VenueDLMM,
		Range:       lp.Range{Lower: 4950, Upper: 5050},
		LastInRange: true,
	}
	require.NoError(t, s.SaveTracked(ctx, tracked))

	list, err := s.ListTracked(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "pos1", list[0].PositionID)

	require.NoError(t, s.RemoveTracked(ctx, "w1", "pos1"))
	list, err = s.ListTracked(ctx, "w1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestScheduleActiveSetFollowsStatus(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	schedule := &lp.Schedule{
		ID:            "sched1",
		Wallet:        "w1",
		Pool:          "pool1",
		Venue:         lp.VenueDLMM,
		AmountPerTick: 100,
		Budget:        1000,
		Interval:      time.Hour,
		MaxExecutions: 10,
		Status:        lp.ScheduleActive,
	}
	require.NoError(t, s.SaveSchedule(ctx, schedule))

	active, err := s.ActiveSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	schedule.Status = lp.SchedulePaused
	require.NoError(t, s.SaveSchedule(ctx, schedule))

	active, err = s.ActiveSchedules(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	// Paused schedules stay listed for the wallet.
	byWallet, err := s.SchedulesByWallet(ctx, "w1")
	require.NoError(t, err)
	assert.Len(t, byWallet, 1)
}

func TestScheduleCancelRemovesExactlyOne(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.SaveSchedule(ctx, &lp.Schedule{
			ID:     fmt.Sprintf("sched%d", i),
			Wallet: "w1",
			Status: lp.ScheduleActive,
		}))
	}

	before, err := s.ActiveSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, before, 3)

	cancelled, err := s.GetSchedule(ctx, "sched1")
	require.NoError(t, err)
	cancelled.Status = lp.ScheduleCancelled
	require.NoError(t, s.SaveSchedule(ctx, cancelled))

	after, err := s.ActiveSchedules(ctx)
	require.NoError(t, err)
	assert.Len(t, after, 2)
	for _, sched := range after {
		assert.NotEqual(t, "sched1", sched.ID)
	}
}

func TestWorkerLogsCapped(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	for i := 0; i < workerLogCap+50; i++ {
		require.NoError(t, s.AppendWorkerLog(ctx, "info", fmt.Sprintf("entry %d", i)))
	}

	logs, err := s.WorkerLogs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, logs, workerLogCap)
	// Newest first.
	assert.Contains(t, logs[0].Message, fmt.Sprintf("entry %d", workerLogCap+49))
}

func TestScheduleHistoryCapped(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	for i := 0; i < dcaHistoryCap+10; i++ {
		require.NoError(t, s.AppendScheduleHistory(ctx, "sched1", &lp.ScheduleExecution{Amount: uint64(i)}))
	}

	history, err := s.ScheduleHistory(ctx, "sched1")
	require.NoError(t, err)
	assert.Len(t, history, dcaHistoryCap)
}

func TestWorkerStateDefault(t *testing.T) {
	s := newTestStore()

	state, err := s.GetWorkerState(context.Background())
	require.NoError(t, err)
	assert.False(t, state.Running)
	assert.Zero(t, state.ChecksCompleted)
}
