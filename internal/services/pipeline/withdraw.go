package pipeline

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"poseidon/internal/domain/lp"
	"poseidon/internal/services/submit"
	"poseidon/internal/venues"
	"poseidon/pkg/errors"
)

// WithdrawIntent is the withdraw-and-convert request: decrease+close the
// position, optionally swap the proceeds back to the collateral mint, take
// the protocol fee, tip.
type WithdrawIntent struct {
	Wallet     string
	Owner      solana.PublicKey
	Venue      lp.Venue
	PositionID string
	Pool       string
	// ConvertTo, when set, is the mint the proceeds are swapped back to.
	ConvertTo   string
	SlippageBps uint16
	Urgency     lp.Urgency
	Mode        submit.Mode
}

// ExecuteWithdraw drives the withdraw pipeline. When building the swap legs
// fails with VENUE_UNAVAILABLE the pipeline falls back to returning the pool
// tokens to the owner with no protocol fee; any other swap-leg error fails
// the withdraw.
func (c *Composer) ExecuteWithdraw(ctx context.Context, intent WithdrawIntent) (*Receipt, error) {
	adapter, err := c.registry.ForVenue(intent.Venue)
	if err != nil {
		return nil, err
	}

	pool, err := adapter.DescribePool(ctx, intent.Pool)
	if err != nil {
		return nil, err
	}

	position := &lp.Position{ID: intent.PositionID, Pool: intent.Pool, Venue: intent.Venue, Wallet: intent.Wallet}

	plan, err := adapter.BuildDecrease(ctx, venues.DecreaseRequest{
		Position:    position,
		Pool:        pool,
		Bps:         10000,
		CloseIfFull: true,
		Owner:       intent.Owner,
	})
	if err != nil {
		return nil, err
	}

	drafts := []txDraft{{label: "withdraw", instructions: plan.Instructions, signers: plan.Signers}}

	converted := false
	reason := ""

	if intent.ConvertTo != "" {
		swapDrafts, netOut, swapErr := c.convertLegs(ctx, intent, pool)
		if swapErr != nil {
			// Swap unavailability is not fatal to the withdrawal itself:
			// leave the pool tokens with the owner and skip the fee.
			if errors.Is(swapErr, errors.ErrVenueUnavailable) {
				c.log.Warnw("swap-back unavailable, returning pool tokens", "position", intent.PositionID, "error", swapErr)
				reason = "swap_unavailable"
			} else {
				return nil, swapErr
			}
		} else {
			drafts = append(drafts, swapDrafts...)
			converted = true

			// Protocol fee on the converted amount, computed against the
			// swap's worst case so the transfer cannot overdraw.
			if fee := netOut * c.feeBps / 10000; fee > 0 && !c.treasury.IsZero() {
				feeIx := system.NewTransferInstruction(fee, intent.Owner, c.treasury).Build()
				drafts = append(drafts, txDraft{label: "protocol_fee", instructions: []solana.Instruction{feeIx}})
			}
		}
	}

	if intent.Mode != submit.ModeSequential {
		if tip := c.tipDraft(intent.Owner, intent.Urgency); tip != nil {
			drafts = append(drafts, *tip)
		}
	}

	prepared, err := c.finalize(ctx, intent.Owner, drafts, intent.Urgency)
	if err != nil {
		return nil, err
	}

	result, err := c.driver.Submit(ctx, intent.Wallet, prepared, intent.Mode)
	if err != nil {
		return nil, err
	}

	return &Receipt{
		RequestID:  newRequestID(),
		Kind:       "withdraw",
		Wallet:     intent.Wallet,
		Pool:       intent.Pool,
		PositionID: intent.PositionID,
		Result:     result,
		Converted:  converted,
		Reason:     reason,
	}, nil
}

// convertLegs builds the swap-back legs for both pool sides that differ from
// the target mint and returns the worst-case converted amount in target
// units.
func (c *Composer) convertLegs(ctx context.Context, intent WithdrawIntent, pool *lp.Pool) ([]txDraft, uint64, error) {
	slippage := intent.SlippageBps
	if slippage == 0 {
		slippage = slippageLadder[0]
	}

	// Withdrawal proceeds are estimated from the position's recorded
	// amounts; the swap router prices the actual balances at execution.
	position, err := c.findPosition(ctx, intent)
	if err != nil {
		return nil, 0, err
	}

	var drafts []txDraft
	var netOut uint64

	legs := []struct {
		mint   string
		amount uint64
	}{
		{pool.TokenA.Mint, uint64(position.AmountA.Add(position.FeesA).IntPart())},
		{pool.TokenB.Mint, uint64(position.AmountB.Add(position.FeesB).IntPart())},
	}

	for _, leg := range legs {
		if leg.mint == intent.ConvertTo {
			netOut += leg.amount
			continue
		}
		if leg.amount == 0 {
			continue
		}

		draft, quote, err := c.swapDraft(ctx, intent.Owner, leg.mint, intent.ConvertTo, leg.amount, slippage)
		if err != nil {
			return nil, 0, err
		}
		drafts = append(drafts, *draft)
		netOut += parseAmount(quote.OtherAmountThreshold)
	}

	return drafts, netOut, nil
}

// findPosition re-reads the position so the convert legs price current
// amounts rather than stale caller input.
func (c *Composer) findPosition(ctx context.Context, intent WithdrawIntent) (*lp.Position, error) {
	adapter, err := c.registry.ForVenue(intent.Venue)
	if err != nil {
		return nil, err
	}

	positions, err := adapter.EnumeratePositions(ctx, intent.Owner)
	if err != nil {
		return nil, err
	}

	for _, pos := range positions {
		if pos.ID == intent.PositionID {
			return pos, nil
		}
	}
	return nil, errors.Wrapf(errors.ErrNotFound, "position %s", intent.PositionID)
}
