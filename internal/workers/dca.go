package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"poseidon/internal/domain/lp"
	"poseidon/internal/services/notify"
	"poseidon/internal/services/pipeline"
	"poseidon/internal/services/submit"
	"poseidon/pkg/errors"
)

// runDueSchedules executes every ACTIVE schedule whose next tick has passed.
// Failures push next-tick forward so the next cycle retries; only a repeated
// INSUFFICIENT_FUNDS failure fails the schedule.
func (m *Monitor) runDueSchedules(ctx context.Context) error {
	schedules, err := m.store.ActiveSchedules(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, schedule := range schedules {
		if !schedule.Due(now) {
			continue
		}
		if err := m.executeSchedule(ctx, schedule); err != nil {
			m.Log().Warnw("schedule execution failed", "schedule", schedule.ID, "error", err)
		}
	}
	return nil
}

func (m *Monitor) executeSchedule(ctx context.Context, schedule *lp.Schedule) error {
	// Never overshoot the budget on the last tick.
	amount := schedule.AmountPerTick
	if remaining := schedule.Budget - schedule.Spent; amount > remaining {
		amount = remaining
	}
	if amount == 0 {
		schedule.Status = lp.ScheduleComplete
		return m.store.SaveSchedule(ctx, schedule)
	}

	owner, err := m.wallets.OwnerKey(ctx, schedule.Wallet)
	if err != nil {
		return err
	}

	receipt, execErr := m.composer.ExecuteAtomicOpen(ctx, pipeline.OpenIntent{
		Wallet:           schedule.Wallet,
		Owner:            owner,
		Venue:            schedule.Venue,
		Pool:             schedule.Pool,
		CollateralMint:   solMint,
		CollateralAmount: amount,
		Shape:            schedule.Shape,
		Urgency:          lp.UrgencyFast,
		Mode:             submit.ModeBundle,
	})

	now := time.Now()
	schedule.NextTick = now.Add(schedule.Interval)

	execRecord := &lp.ScheduleExecution{At: now, Amount: amount}

	if execErr != nil {
		prevError := schedule.LastError
		schedule.LastError = errors.Code(execErr)
		execRecord.Error = schedule.LastError

		// A second consecutive INSUFFICIENT_FUNDS fails the schedule
		// permanently; every other error retries on the next cycle.
		if errors.Is(execErr, errors.ErrInsufficientFunds) && prevError == errors.Code(execErr) {
			schedule.Status = lp.ScheduleFailed
		}

		if err := m.store.SaveSchedule(ctx, schedule); err != nil {
			return err
		}
		_ = m.store.AppendScheduleHistory(ctx, schedule.ID, execRecord)

		_, _ = m.fanout.Deliver(ctx, &notify.Event{
			Kind:    notify.EventDCAFailed,
			Wallet:  schedule.Wallet,
			Pool:    schedule.Pool,
			Venue:   schedule.Venue,
			Message: fmt.Sprintf("Deposit of %s lamports failed: %s", humanize.Comma(int64(amount)), schedule.LastError),
		})
		return execErr
	}

	schedule.Spent += amount
	schedule.Executions++
	schedule.LastError = ""
	if schedule.Exhausted() {
		schedule.Status = lp.ScheduleComplete
	}

	if err := m.store.SaveSchedule(ctx, schedule); err != nil {
		return err
	}

	execRecord.Success = true
	if len(receipt.Result.LandedTxs) > 0 {
		execRecord.TxID = receipt.Result.LandedTxs[0]
	}
	_ = m.store.AppendScheduleHistory(ctx, schedule.ID, execRecord)

	_, _ = m.fanout.Deliver(ctx, &notify.Event{
		Kind:       notify.EventDCAExecuted,
		Wallet:     schedule.Wallet,
		Pool:       schedule.Pool,
		Venue:      schedule.Venue,
		PositionID: receipt.PositionID,
		Message: fmt.Sprintf("Deposited %s lamports (%d/%d executions, %s of %s spent)",
			humanize.Comma(int64(amount)), schedule.Executions, schedule.MaxExecutions,
			humanize.Comma(int64(schedule.Spent)), humanize.Comma(int64(schedule.Budget))),
	})
	return nil
}

// solMint is the native collateral DCA schedules deposit from.
const solMint = "So11111111111111111111111111111111111111112"
