package workers

import (
	"context"
	"fmt"
	"time"

	"poseidon/internal/domain/lp"
	"poseidon/internal/metrics"
	"poseidon/internal/services/notify"
	"poseidon/internal/services/pipeline"
	"poseidon/internal/services/wallet"
	"poseidon/internal/store"
	"poseidon/internal/venues"
)

// Monitor is the engine's periodic scan: range-drift detection on tracked
// positions, DCA schedule execution, and daily summaries. It processes
// sequentially within a tick; a slow venue delays the next tick, never
// concurrent intents.
type Monitor struct {
	*BaseWorker

	store    *store.Store
	registry *venues.Registry
	composer *pipeline.Composer
	fanout   *notify.Fanout
	wallets  *wallet.Service

	startedAt     time.Time
	lastSummaries map[string]time.Time
}

// NewMonitor creates the monitor worker.
func NewMonitor(
	st *store.Store,
	registry *venues.Registry,
	composer *pipeline.Composer,
	fanout *notify.Fanout,
	wallets *wallet.Service,
	interval time.Duration,
	enabled bool,
) *Monitor {
	return &Monitor{
		BaseWorker:    NewBaseWorker("monitor", interval, enabled),
		store:         st,
		registry:      registry,
		composer:      composer,
		fanout:        fanout,
		wallets:       wallets,
		startedAt:     time.Now(),
		lastSummaries: make(map[string]time.Time),
	}
}

// Run executes one monitor tick.
func (m *Monitor) Run(ctx context.Context) error {
	err := m.tick(ctx)
	m.recordRun(err)

	if stateErr := m.persistState(ctx); stateErr != nil {
		m.Log().Warnw("worker state write failed", "error", stateErr)
	}
	return err
}

func (m *Monitor) tick(ctx context.Context) error {
	defer metrics.MonitorTicks.Inc()

	if err := m.checkTrackedPositions(ctx); err != nil {
		return err
	}
	if err := m.runDueSchedules(ctx); err != nil {
		return err
	}
	m.sendDailySummaries(ctx)
	return nil
}

func (m *Monitor) persistState(ctx context.Context) error {
	_, runs, errs := m.Stats()
	return m.store.SaveWorkerState(ctx, &lp.WorkerState{
		Running:         true,
		StartedAt:       m.startedAt,
		LastCheck:       time.Now(),
		ChecksCompleted: runs,
		Errors:          errs,
	})
}

// checkTrackedPositions re-reads each tracked position's pool index and
// classifies transitions.
func (m *Monitor) checkTrackedPositions(ctx context.Context) error {
	wallets, err := m.store.TrackedWallets(ctx)
	if err != nil {
		return err
	}

	for _, walletID := range wallets {
		tracked, err := m.store.ListTracked(ctx, walletID)
		if err != nil {
			m.Log().Warnw("tracked list failed", "wallet", walletID, "error", err)
			continue
		}
		for _, tp := range tracked {
			if err := m.checkOne(ctx, tp); err != nil {
				m.Log().Warnw("tracked check failed", "position", tp.PositionID, "error", err)
				_ = m.store.AppendWorkerLog(ctx, "warn",
					fmt.Sprintf("check failed for %s: %v", tp.PositionID, err))
			}
		}
	}
	return nil
}

func (m *Monitor) checkOne(ctx context.Context, tp *lp.TrackedPosition) error {
	adapter, err := m.registry.ForVenue(tp.Venue)
	if err != nil {
		return err
	}

	pool, err := adapter.DescribePool(ctx, tp.Pool)
	if err != nil {
		return err
	}

	now := time.Now()
	inRange := tp.Range.Contains(pool.CurrentIndex)
	wasInRange := tp.LastInRange

	tp.LastChecked = now
	tp.LastInRange = inRange

	switch {
	case wasInRange && !inRange:
		tp.OutOfRangeSince = now
		m.onWentOut(ctx, tp, pool)
	case !wasInRange && inRange:
		tp.OutOfRangeSince = time.Time{}
		m.onCameBack(ctx, tp)
	}

	return m.store.SaveTracked(ctx, tp)
}

// onWentOut emits the OUT_OF_RANGE event and, when the recipient opted into
// auto-rebalance and the drift exceeds their threshold, enqueues a rebalance.
func (m *Monitor) onWentOut(ctx context.Context, tp *lp.TrackedPosition, pool *lp.Pool) {
	drift := tp.Range.Drift(pool.CurrentIndex, pool.GridUnit())

	event := &notify.Event{
		Kind:       notify.EventOutOfRange,
		Wallet:     tp.Wallet,
		PositionID: tp.PositionID,
		Pool:       tp.Pool,
		Venue:      tp.Venue,
		Range:      &tp.Range,
		DriftUnits: drift,
		Action: &notify.SuggestedAction{
			Endpoint: "/api/lp/rebalance",
			Params:   map[string]string{"position": tp.PositionID, "pool": tp.Pool},
		},
	}
	if _, err := m.fanout.Deliver(ctx, event); err != nil {
		m.Log().Warnw("out-of-range delivery failed", "position", tp.PositionID, "error", err)
	}

	recipient, err := m.store.GetRecipient(ctx, tp.Wallet)
	if err != nil || !recipient.Preferences.AutoRebalance {
		return
	}
	if drift <= recipient.Preferences.RebalanceDriftBps {
		return
	}

	owner, err := m.wallets.OwnerKey(ctx, tp.Wallet)
	if err != nil {
		m.Log().Warnw("auto-rebalance owner lookup failed", "wallet", tp.Wallet, "error", err)
		return
	}

	receipt, err := m.composer.ExecuteRebalance(ctx, pipeline.RebalanceIntent{
		Wallet:     tp.Wallet,
		Owner:      owner,
		Venue:      tp.Venue,
		PositionID: tp.PositionID,
		Pool:       tp.Pool,
		Urgency:    lp.UrgencyFast,
	})
	if err != nil {
		m.Log().Warnw("auto-rebalance failed", "position", tp.PositionID, "error", err)
		_ = m.store.AppendWorkerLog(ctx, "error",
			fmt.Sprintf("auto-rebalance failed for %s: %v", tp.PositionID, err))
		return
	}

	// The old tracked entry is superseded by the new position.
	_ = m.store.RemoveTracked(ctx, tp.Wallet, tp.PositionID)
	_ = m.store.SaveTracked(ctx, &lp.TrackedPosition{
		PositionID:  receipt.PositionID,
		Wallet:      tp.Wallet,
		Pool:        tp.Pool,
		Venue:       tp.Venue,
		Range:       *receipt.Range,
		LastChecked: time.Now(),
		LastInRange: true,
	})

	_, _ = m.fanout.Deliver(ctx, &notify.Event{
		Kind:       notify.EventRebalanced,
		Wallet:     tp.Wallet,
		PositionID: receipt.PositionID,
		Pool:       tp.Pool,
		Venue:      tp.Venue,
		Range:      receipt.Range,
	})
}

func (m *Monitor) onCameBack(ctx context.Context, tp *lp.TrackedPosition) {
	// The fan-out applies the recipient's back-in-range opt-in.
	if _, err := m.fanout.Deliver(ctx, &notify.Event{
		Kind:       notify.EventBackInRange,
		Wallet:     tp.Wallet,
		PositionID: tp.PositionID,
		Pool:       tp.Pool,
		Venue:      tp.Venue,
		Range:      &tp.Range,
	}); err != nil {
		m.Log().Warnw("back-in-range delivery failed", "position", tp.PositionID, "error", err)
	}
}

// sendDailySummaries emits one digest per wallet per 24h window for
// recipients that opted in.
func (m *Monitor) sendDailySummaries(ctx context.Context) {
	wallets, err := m.store.TrackedWallets(ctx)
	if err != nil {
		return
	}

	for _, walletID := range wallets {
		if last, ok := m.lastSummaries[walletID]; ok && time.Since(last) < 24*time.Hour {
			continue
		}

		tracked, err := m.store.ListTracked(ctx, walletID)
		if err != nil || len(tracked) == 0 {
			continue
		}

		inRange := 0
		for _, tp := range tracked {
			if tp.LastInRange {
				inRange++
			}
		}

		delivered, _ := m.fanout.Deliver(ctx, &notify.Event{
			Kind:   notify.EventDailyDigest,
			Wallet: walletID,
			Message: fmt.Sprintf("%d tracked positions, %d in range, %d out of range",
				len(tracked), inRange, len(tracked)-inRange),
		})
		if delivered {
			m.lastSummaries[walletID] = time.Now()
		}
	}
}

// TriggerCheck forces a tick out of band (the worker status endpoint uses
// it).
func (m *Monitor) TriggerCheck(ctx context.Context) error {
	err := m.tick(ctx)
	m.recordRun(err)
	if stateErr := m.persistState(ctx); stateErr != nil {
		return stateErr
	}
	return err
}
