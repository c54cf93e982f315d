package pipeline

import (
	"context"

	"poseidon/pkg/errors"
)

// The escalation loop is a small state machine: TRYING(bps) either lands,
// escalates to the next rung on SLIPPAGE_EXCEEDED, or exhausts after the
// ladder's last rung. No other transitions exist; any non-slippage error
// exits the machine immediately.

// withEscalation runs attempt over the slippage ladder starting at the first
// rung at or above startBps. Every retry is a full rebuild: fresh oracle
// checks, fresh simulation, fresh blockhash.
func (c *Composer) withEscalation(ctx context.Context, startBps uint16, attempt func(bps uint16) (*Receipt, error)) (*Receipt, error) {
	ladder := ladderFrom(startBps)

	var lastBps uint16
	for _, bps := range ladder {
		lastBps = bps

		receipt, err := attempt(bps)
		if err == nil {
			receipt.SlippageUsed = bps
			return receipt, nil
		}

		if !errors.Is(err, errors.ErrSlippageExceeded) {
			return nil, err
		}

		c.log.Infow("slippage exceeded, escalating", "bps", bps)

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, errors.WithHint(
		errors.Wrapf(errors.ErrSlippageExhausted, "escalation exhausted at %d bps", lastBps),
		map[string]any{"lastTriedBps": lastBps},
	)
}

// ladderFrom returns the ladder rungs at or above start; a start above the
// ladder gets a single attempt at its own value.
func ladderFrom(start uint16) []uint16 {
	if start == 0 {
		return slippageLadder
	}

	out := make([]uint16, 0, len(slippageLadder))
	for _, bps := range slippageLadder {
		if bps >= start {
			out = append(out, bps)
		}
	}
	if len(out) == 0 {
		out = append(out, start)
	}
	return out
}
