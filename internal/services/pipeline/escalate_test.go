package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poseidon/pkg/errors"
	"poseidon/pkg/logger"
)

func testComposer() *Composer {
	return &Composer{log: logger.Get()}
}

func TestWithEscalationLandsOnLaterRung(t *testing.T) {
	c := testComposer()

	var tried []uint16
	receipt, err := c.withEscalation(context.Background(), 300, func(bps uint16) (*Receipt, error) {
		tried = append(tried, bps)
		if bps < 750 {
			return nil, errors.Wrap(errors.ErrSlippageExceeded, "simulated")
		}
		return &Receipt{Kind: "atomic_open"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []uint16{300, 500, 750}, tried)
	assert.Equal(t, uint16(750), receipt.SlippageUsed)
}

func TestWithEscalationExhausts(t *testing.T) {
	c := testComposer()

	attempts := 0
	_, err := c.withEscalation(context.Background(), 0, func(bps uint16) (*Receipt, error) {
		attempts++
		return nil, errors.Wrap(errors.ErrSlippageExceeded, "simulated")
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSlippageExhausted))
	assert.Equal(t, 4, attempts, "exhausts after the fourth attempt, not infinite retry")

	hint := errors.HintOf(err)
	require.NotNil(t, hint)
	assert.Equal(t, uint16(1000), hint["lastTriedBps"])
}

func TestWithEscalationStopsOnOtherErrors(t *testing.T) {
	c := testComposer()

	attempts := 0
	_, err := c.withEscalation(context.Background(), 300, func(bps uint16) (*Receipt, error) {
		attempts++
		return nil, errors.Wrap(errors.ErrInsufficientFunds, "simulated")
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientFunds))
	assert.Equal(t, 1, attempts)
}

func TestLadderFrom(t *testing.T) {
	assert.Equal(t, []uint16{300, 500, 750, 1000}, ladderFrom(0))
	assert.Equal(t, []uint16{300, 500, 750, 1000}, ladderFrom(300))
	assert.Equal(t, []uint16{500, 750, 1000}, ladderFrom(400))
	assert.Equal(t, []uint16{1000}, ladderFrom(1000))
	assert.Equal(t, []uint16{2000}, ladderFrom(2000))
}
