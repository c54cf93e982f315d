package pipeline

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"poseidon/internal/domain/lp"
	"poseidon/internal/services/submit"
	"poseidon/internal/venues"
	"poseidon/pkg/errors"
)

// RebalanceIntent closes a drifted position and reopens at a range centered
// on the current index, atomically under bundle semantics.
type RebalanceIntent struct {
	Wallet     string
	Owner      solana.PublicKey
	Venue      lp.Venue
	PositionID string
	Pool       string
	// NewRange overrides the recentered range; when nil the old width is
	// preserved around the current index.
	NewRange    *lp.Range
	SlippageBps uint16
	Urgency     lp.Urgency
}

// ExecuteRebalance composes decrease+close of the old position and open at
// the new range in a single bundle. The new position account is generated
// here so its secret can travel to the custody oracle for co-signing.
func (c *Composer) ExecuteRebalance(ctx context.Context, intent RebalanceIntent) (*Receipt, error) {
	adapter, err := c.registry.ForVenue(intent.Venue)
	if err != nil {
		return nil, err
	}

	requestID := newRequestID()

	return c.withEscalation(ctx, intent.SlippageBps, func(bps uint16) (*Receipt, error) {
		pool, err := adapter.DescribePool(ctx, intent.Pool)
		if err != nil {
			return nil, err
		}

		if err := c.gatePrices(ctx, pool); err != nil {
			return nil, err
		}

		old, err := c.findPosition(ctx, WithdrawIntent{
			Owner:      intent.Owner,
			Venue:      intent.Venue,
			PositionID: intent.PositionID,
		})
		if err != nil {
			return nil, err
		}

		newRange, err := recenteredRange(pool, old.Range, intent.NewRange)
		if err != nil {
			return nil, err
		}

		closePlan, err := adapter.BuildDecrease(ctx, venues.DecreaseRequest{
			Position:    old,
			Pool:        pool,
			Bps:         10000,
			CloseIfFull: true,
			Owner:       intent.Owner,
		})
		if err != nil {
			return nil, err
		}

		amountA := uint64(old.AmountA.Add(old.FeesA).IntPart())
		amountB := uint64(old.AmountB.Add(old.FeesB).IntPart())

		quote, err := adapter.QuoteLiquidity(pool, newRange, amountA, amountB, bps)
		if err != nil {
			return nil, err
		}

		positionKeypair, err := solana.NewRandomPrivateKey()
		if err != nil {
			return nil, errors.Wrap(err, "generate position keypair")
		}

		openPlan, err := adapter.BuildOpen(ctx, venues.OpenRequest{
			Pool:            pool,
			Range:           newRange,
			AmountA:         amountA,
			AmountB:         amountB,
			Quote:           quote,
			Owner:           intent.Owner,
			PositionKeypair: &positionKeypair,
		})
		if err != nil {
			return nil, err
		}

		drafts := []txDraft{
			{label: "close_old", instructions: closePlan.Instructions, signers: closePlan.Signers},
			{label: "open_new", instructions: openPlan.Instructions, signers: openPlan.Signers},
		}
		if tip := c.tipDraft(intent.Owner, intent.Urgency); tip != nil {
			drafts = append(drafts, *tip)
		}

		prepared, err := c.finalize(ctx, intent.Owner, drafts, intent.Urgency)
		if err != nil {
			return nil, err
		}

		// Rebalances are only atomic under bundle semantics.
		result, err := c.driver.Submit(ctx, intent.Wallet, prepared, submit.ModeBundle)
		if err != nil {
			return nil, err
		}

		return &Receipt{
			RequestID:  requestID,
			Kind:       "rebalance",
			Wallet:     intent.Wallet,
			Pool:       intent.Pool,
			Range:      &newRange,
			Result:     result,
			PositionID: positionKeypair.PublicKey().String(),
		}, nil
	})
}

// recenteredRange keeps the old width by default, centered on the current
// index and snapped to the grid.
func recenteredRange(pool *lp.Pool, old lp.Range, override *lp.Range) (lp.Range, error) {
	if override != nil {
		if err := venues.ValidateCustomRange(pool, *override); err != nil {
			return lp.Range{}, err
		}
		return *override, nil
	}

	halfWidth := old.Width() / (2 * pool.GridUnit())
	if halfWidth < 1 {
		halfWidth = 1
	}

	if pool.Venue.TickBased() {
		return venues.SnapTickRange(pool.CurrentIndex, pool.TickSpacing, halfWidth), nil
	}
	return venues.SnapBinRange(pool.CurrentIndex, pool.BinStep, halfWidth), nil
}
