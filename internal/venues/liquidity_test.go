package venues

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poseidon/internal/domain/lp"
)

func TestQuoteTickLiquidity(t *testing.T) {
	pool := &lp.Pool{Venue: lp.VenueWhirlpool, TickSpacing: 10, CurrentIndex: 0}
	rng := lp.Range{Lower: -100, Upper: 100}

	quote, err := QuoteTickLiquidity(pool, rng, 1_000_000, 1_000_000, 300)
	require.NoError(t, err)

	assert.True(t, quote.Liquidity.IsPositive())
	assert.LessOrEqual(t, quote.ExpectedA, uint64(1_000_000))
	assert.LessOrEqual(t, quote.ExpectedB, uint64(1_000_000))

	// Worst case reflects the slippage-shifted sqrt-price, so it bounds the
	// expected amounts from above.
	assert.GreaterOrEqual(t, quote.WorstA, quote.ExpectedA)
	assert.GreaterOrEqual(t, quote.WorstB, quote.ExpectedB)
}

func TestQuoteTickLiquidityOneSided(t *testing.T) {
	pool := &lp.Pool{Venue: lp.VenueWhirlpool, TickSpacing: 10, CurrentIndex: 200}
	rng := lp.Range{Lower: -100, Upper: 100}

	// Current tick above the range: the deposit is all token B.
	quote, err := QuoteTickLiquidity(pool, rng, 0, 1_000_000, 300)
	require.NoError(t, err)
	assert.Zero(t, quote.ExpectedA)
	assert.Positive(t, quote.ExpectedB)
}

func TestQuoteTickLiquidityNoAmounts(t *testing.T) {
	pool := &lp.Pool{Venue: lp.VenueWhirlpool, TickSpacing: 10, CurrentIndex: 0}
	_, err := QuoteTickLiquidity(pool, lp.Range{Lower: -100, Upper: 100}, 0, 0, 300)
	assert.Error(t, err)
}

func TestQuoteBinLiquidity(t *testing.T) {
	pool := &lp.Pool{Venue: lp.VenueDLMM, BinStep: 10, CurrentIndex: 5000}
	rng := lp.Range{Lower: 4995, Upper: 5005}

	quote, err := QuoteBinLiquidity(pool, rng, 500_000, 500_000, 300)
	require.NoError(t, err)

	// DLMM deposits are exact-in.
	assert.Equal(t, uint64(500_000), quote.ExpectedA)
	assert.Equal(t, uint64(500_000), quote.ExpectedB)
	assert.Equal(t, uint64(515_000), quote.WorstA)
	assert.True(t, quote.Liquidity.IsPositive())
}

func TestBinPrice(t *testing.T) {
	// price(0) = 1 for any step; one step of 10 bps moves price by 0.1%.
	assert.InDelta(t, 1.0, BinPrice(0, 10), 1e-12)
	assert.InDelta(t, 1.001, BinPrice(1, 10), 1e-9)
}

func TestSqrtPriceFromTick(t *testing.T) {
	assert.InDelta(t, 1.0, SqrtPriceFromTick(0), 1e-12)

	// sqrtP(t)^2 == price(t)
	tick := int32(1000)
	sq := SqrtPriceFromTick(tick)
	assert.InDelta(t, PriceFromTick(tick), sq*sq, 1e-9)
}
