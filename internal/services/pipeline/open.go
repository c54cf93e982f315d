package pipeline

import (
	"context"
	"strconv"

	"github.com/gagliardetto/solana-go"

	"poseidon/internal/domain/lp"
	"poseidon/internal/services/submit"
	"poseidon/internal/venues"
	"poseidon/pkg/errors"
)

// OpenIntent is the "atomic LP of N collateral into pool P" request.
type OpenIntent struct {
	Wallet           string
	Owner            solana.PublicKey
	Venue            lp.Venue
	Pool             string
	CollateralMint   string
	CollateralAmount uint64
	Shape            lp.RangeShape
	CustomRange      *lp.Range
	Distribution     lp.Distribution
	SlippageBps      uint16
	Urgency          lp.Urgency
	Mode             submit.Mode
}

// ExecuteAtomicOpen converts a single collateral into a priced concentrated
// position: seal, oracle gate, swap legs, liquidity quote, venue open, tip.
// Slippage escalates across the ladder until the bundle lands or exhausts.
func (c *Composer) ExecuteAtomicOpen(ctx context.Context, intent OpenIntent) (*Receipt, error) {
	if intent.CollateralAmount == 0 {
		return nil, errors.Wrap(errors.ErrValidation, "collateral amount must be positive")
	}

	adapter, err := c.registry.ForVenue(intent.Venue)
	if err != nil {
		return nil, err
	}

	// The sealed strategy is attached to the receipt for audit; it never
	// influences instruction bytes.
	sealed, err := c.sealer.Seal(&lp.Strategy{
		Venue:            intent.Venue,
		Pool:             intent.Pool,
		CollateralMint:   intent.CollateralMint,
		CollateralAmount: intent.CollateralAmount,
		Shape:            intent.Shape,
		CustomRange:      intent.CustomRange,
		Distribution:     intent.Distribution,
		SlippageBps:      intent.SlippageBps,
		Urgency:          intent.Urgency,
	})
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

		rng, err := adapter.ComputeRange(pool, intent.Shape, intent.CustomRange)
		if err != nil {
			return nil, err
		}

		drafts, amountA, amountB, err := c.swapLegs(ctx, intent, pool, bps)
		if err != nil {
			return nil, err
		}

		quote, err := adapter.QuoteLiquidity(pool, rng, amountA, amountB, bps)
		if err != nil {
			return nil, err
		}

		plan, err := adapter.BuildOpen(ctx, venues.OpenRequest{
			Pool:         pool,
			Range:        rng,
			AmountA:      amountA,
			AmountB:      amountB,
			Quote:        quote,
			Owner:        intent.Owner,
			Distribution: intent.Distribution,
		})
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, txDraft{label: "open", instructions: plan.Instructions, signers: plan.Signers})

		// Sequential mode omits the tip transaction.
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

		positionID := ""
		if len(plan.Signers) > 0 {
			positionID = plan.Signers[0].PublicKey().String()
		}

		return &Receipt{
			RequestID:  requestID,
			Kind:       "atomic_open",
			Wallet:     intent.Wallet,
			Pool:       intent.Pool,
			Range:      &rng,
			Sealed:     sealed,
			Result:     result,
			PositionID: positionID,
		}, nil
	})
}

// ExecuteOpen opens a position from already-balanced token amounts, skipping
// the swap legs (the pre-swapped entry point).
func (c *Composer) ExecuteOpen(ctx context.Context, intent OpenIntent, amountA, amountB uint64) (*Receipt, error) {
	if amountA == 0 && amountB == 0 {
		return nil, errors.Wrap(errors.ErrValidation, "at least one token amount must be positive")
	}

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

		rng, err := adapter.ComputeRange(pool, intent.Shape, intent.CustomRange)
		if err != nil {
			return nil, err
		}

		quote, err := adapter.QuoteLiquidity(pool, rng, amountA, amountB, bps)
		if err != nil {
			return nil, err
		}

		plan, err := adapter.BuildOpen(ctx, venues.OpenRequest{
			Pool:         pool,
			Range:        rng,
			AmountA:      amountA,
			AmountB:      amountB,
			Quote:        quote,
			Owner:        intent.Owner,
			Distribution: intent.Distribution,
		})
		if err != nil {
			return nil, err
		}

		drafts := []txDraft{{label: "open", instructions: plan.Instructions, signers: plan.Signers}}
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

		positionID := ""
		if len(plan.Signers) > 0 {
			positionID = plan.Signers[0].PublicKey().String()
		}

		return &Receipt{
			RequestID:  requestID,
			Kind:       "execute_open",
			Wallet:     intent.Wallet,
			Pool:       intent.Pool,
			Range:      &rng,
			Result:     result,
			PositionID: positionID,
		}, nil
	})
}

// swapLegs synthesizes balanced two-sided amounts from the single collateral:
// one leg when the collateral is a pool side, two legs otherwise.
func (c *Composer) swapLegs(ctx context.Context, intent OpenIntent, pool *lp.Pool, bps uint16) ([]txDraft, uint64, uint64, error) {
	half := intent.CollateralAmount / 2

	var drafts []txDraft
	var amountA, amountB uint64

	switch intent.CollateralMint {
	case pool.TokenA.Mint:
		amountA = intent.CollateralAmount - half

		draft, quote, err := c.swapDraft(ctx, intent.Owner, intent.CollateralMint, pool.TokenB.Mint, half, bps)
		if err != nil {
			return nil, 0, 0, err
		}
		drafts = append(drafts, *draft)
		amountB = parseAmount(quote.OutAmount)

	case pool.TokenB.Mint:
		amountB = intent.CollateralAmount - half

		draft, quote, err := c.swapDraft(ctx, intent.Owner, intent.CollateralMint, pool.TokenA.Mint, half, bps)
		if err != nil {
			return nil, 0, 0, err
		}
		drafts = append(drafts, *draft)
		amountA = parseAmount(quote.OutAmount)

	default:
		draftA, quoteA, err := c.swapDraft(ctx, intent.Owner, intent.CollateralMint, pool.TokenA.Mint, half, bps)
		if err != nil {
			return nil, 0, 0, err
		}
		draftB, quoteB, err := c.swapDraft(ctx, intent.Owner, intent.CollateralMint, pool.TokenB.Mint, intent.CollateralAmount-half, bps)
		if err != nil {
			return nil, 0, 0, err
		}
		drafts = append(drafts, *draftA, *draftB)
		amountA = parseAmount(quoteA.OutAmount)
		amountB = parseAmount(quoteB.OutAmount)
	}

	return drafts, amountA, amountB, nil
}

func parseAmount(raw string) uint64 {
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
