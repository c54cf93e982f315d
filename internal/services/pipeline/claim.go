package pipeline

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"poseidon/internal/domain/lp"
	"poseidon/internal/services/submit"
)

// ClaimIntent harvests accrued fees from a position.
type ClaimIntent struct {
	Wallet     string
	Owner      solana.PublicKey
	Venue      lp.Venue
	PositionID string
	Pool       string
	Urgency    lp.Urgency
	Mode       submit.Mode
}

// ExecuteClaim builds and submits the venue's fee-collection instructions.
func (c *Composer) ExecuteClaim(ctx context.Context, intent ClaimIntent) (*Receipt, error) {
	adapter, err := c.registry.ForVenue(intent.Venue)
	if err != nil {
		return nil, err
	}

	pool, err := adapter.DescribePool(ctx, intent.Pool)
	if err != nil {
		return nil, err
	}

	position := &lp.Position{ID: intent.PositionID, Pool: intent.Pool, Venue: intent.Venue, Wallet: intent.Wallet}

	plan, err := adapter.BuildCollectFees(ctx, position, pool, intent.Owner)
	if err != nil {
		return nil, err
	}

	drafts := []txDraft{{label: "collect_fees", instructions: plan.Instructions, signers: plan.Signers}}

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
		Kind:       "collect_fees",
		Wallet:     intent.Wallet,
		Pool:       intent.Pool,
		PositionID: intent.PositionID,
		Result:     result,
	}, nil
}
