package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrValidation, "VALIDATION"},
		{Wrap(ErrOracleUnreliable, "mint X"), "ORACLE_UNRELIABLE"},
		{Wrapf(ErrSlippageExhausted, "at %d bps", 1000), "SLIPPAGE_EXHAUSTED"},
		{New("mystery"), "INTERNAL"},
		{Wrap(Wrap(ErrWalletBusy, "inner"), "outer"), "WALLET_BUSY"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Code(tt.err))
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(ErrVenueUnavailable))
	assert.True(t, IsTransient(Wrap(ErrRPCUnavailable, "node down")))
	assert.True(t, IsTransient(ErrBundleDropped))
	assert.True(t, IsTransient(ErrBundleTimeout))

	assert.False(t, IsTransient(ErrInsufficientFunds))
	assert.False(t, IsTransient(ErrSlippageExceeded))
	assert.False(t, IsTransient(ErrPoolPaused))
}

func TestHints(t *testing.T) {
	err := WithHint(ErrSlippageExhausted, map[string]any{"lastTriedBps": 750})

	assert.True(t, Is(err, ErrSlippageExhausted))
	assert.Equal(t, "SLIPPAGE_EXHAUSTED", Code(err))

	hint := HintOf(err)
	assert.Equal(t, 750, hint["lastTriedBps"])

	assert.Nil(t, HintOf(ErrValidation))
	assert.Nil(t, WithHint(nil, map[string]any{"x": 1}))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, Wrapf(nil, "context %d", 1))
}
