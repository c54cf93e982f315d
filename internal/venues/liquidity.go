package venues

import (
	"math"

	"github.com/shopspring/decimal"

	"poseidon/internal/domain/lp"
	"poseidon/pkg/errors"
)

// SqrtPriceFromTick returns 1.0001^(tick/2), the sqrt-price at a tick.
func SqrtPriceFromTick(tick int32) float64 {
	return math.Pow(1.0001, float64(tick)/2)
}

// PriceFromTick returns 1.0001^tick.
func PriceFromTick(tick int32) float64 {
	return math.Pow(1.0001, float64(tick))
}

// BinPrice returns the price at a DLMM bin id for a given bin step in basis
// points: (1 + step/10000)^id.
func BinPrice(binID int32, binStep uint16) float64 {
	return math.Pow(1+float64(binStep)/10000, float64(binID))
}

// QuoteTickLiquidity sizes a deposit on a sqrt-price-grid venue using the
// canonical amount-from-L formulas:
//
//	amountA = L * (sqrtPu - sqrtP) / (sqrtP * sqrtPu)
//	amountB = L * (sqrtP - sqrtPl)
//
// The worst-case amounts are evaluated at the slippage-shifted sqrt-price
// rather than by scaling the amounts, to match the on-chain token-max checks.
func QuoteTickLiquidity(pool *lp.Pool, rng lp.Range, amountA, amountB uint64, slippageBps uint16) (*LiquidityQuote, error) {
	sqrtP := SqrtPriceFromTick(pool.CurrentIndex)
	sqrtPl := SqrtPriceFromTick(rng.Lower)
	sqrtPu := SqrtPriceFromTick(rng.Upper)

	if sqrtP <= sqrtPl {
		sqrtP = sqrtPl
	}
	if sqrtP >= sqrtPu {
		sqrtP = sqrtPu
	}

	// L implied by each side; the deposit is bounded by the scarcer one.
	liquidity := math.MaxFloat64
	if sqrtP < sqrtPu && amountA > 0 {
		la := float64(amountA) * sqrtP * sqrtPu / (sqrtPu - sqrtP)
		liquidity = math.Min(liquidity, la)
	}
	if sqrtP > sqrtPl && amountB > 0 {
		lb := float64(amountB) / (sqrtP - sqrtPl)
		liquidity = math.Min(liquidity, lb)
	}
	if liquidity == math.MaxFloat64 || liquidity <= 0 {
		return nil, errors.Wrap(errors.ErrValidation, "no liquidity derivable from amounts")
	}

	expectedA := tickAmountA(liquidity, sqrtP, sqrtPu)
	expectedB := tickAmountB(liquidity, sqrtPl, sqrtP)

	// The on-chain slippage bound shifts sqrt-price by sqrt(1 ± s).
	s := float64(slippageBps) / 10000
	sqrtLo := sqrtP * math.Sqrt(1-s)
	sqrtHi := sqrtP * math.Sqrt(1+s)
	if sqrtLo < sqrtPl {
		sqrtLo = sqrtPl
	}
	if sqrtHi > sqrtPu {
		sqrtHi = sqrtPu
	}

	worstA := tickAmountA(liquidity, sqrtLo, sqrtPu)
	worstB := tickAmountB(liquidity, sqrtPl, sqrtHi)

	return &LiquidityQuote{
		Liquidity: decimal.NewFromFloat(liquidity),
		ExpectedA: expectedA,
		ExpectedB: expectedB,
		WorstA:    worstA,
		WorstB:    worstB,
	}, nil
}

func tickAmountA(l, sqrtP, sqrtPu float64) uint64 {
	if sqrtP >= sqrtPu {
		return 0
	}
	return uint64(l * (sqrtPu - sqrtP) / (sqrtP * sqrtPu))
}

func tickAmountB(l, sqrtPl, sqrtP float64) uint64 {
	if sqrtP <= sqrtPl {
		return 0
	}
	return uint64(l * (sqrtP - sqrtPl))
}

// QuoteBinLiquidity sizes a DLMM deposit. DLMM deposits are exact-in, so the
// expected amounts equal the inputs; the liquidity scalar sums per-bin
// contributions priced at each bin's geometric mean:
//
//	p(i) = sqrt(price(i) * price(i+1))
//
// Worst-case amounts are the input amounts scaled up by the slippage bound.
func QuoteBinLiquidity(pool *lp.Pool, rng lp.Range, amountA, amountB uint64, slippageBps uint16) (*LiquidityQuote, error) {
	if pool.BinStep == 0 {
		return nil, errors.Wrapf(errors.ErrValidation, "pool %s has no bin step", pool.Address)
	}

	bins := rng.Upper - rng.Lower + 1
	if bins <= 0 {
		return nil, errors.Wrap(errors.ErrValidation, "empty bin range")
	}

	// Token A (X) sits in bins at and above the active bin, token B (Y)
	// below it. Per-bin shares are uniform here; the on-chain distribution
	// shape only reweights within the same totals.
	liquidity := 0.0
	active := pool.CurrentIndex

	aBins := rng.Upper - max32(active, rng.Lower) + 1
	bBins := min32(active, rng.Upper) - rng.Lower + 1

	if aBins > 0 && amountA > 0 {
		perBin := float64(amountA) / float64(aBins)
		for i := max32(active, rng.Lower); i <= rng.Upper; i++ {
			gm := math.Sqrt(BinPrice(i, pool.BinStep) * BinPrice(i+1, pool.BinStep))
			liquidity += perBin * gm
		}
	}
	if bBins > 0 && amountB > 0 {
		liquidity += float64(amountB) * float64(bBins) / float64(bins)
	}

	s := float64(slippageBps) / 10000

	return &LiquidityQuote{
		Liquidity: decimal.NewFromFloat(liquidity),
		ExpectedA: amountA,
		ExpectedB: amountB,
		WorstA:    uint64(float64(amountA) * (1 + s)),
		WorstB:    uint64(float64(amountB) * (1 + s)),
	}, nil
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

// PriceBounds converts a range to price bounds for display.
func PriceBounds(pool *lp.Pool, rng lp.Range) (decimal.Decimal, decimal.Decimal) {
	if pool.Venue.TickBased() {
		return decimal.NewFromFloat(PriceFromTick(rng.Lower)), decimal.NewFromFloat(PriceFromTick(rng.Upper))
	}
	return decimal.NewFromFloat(BinPrice(rng.Lower, pool.BinStep)), decimal.NewFromFloat(BinPrice(rng.Upper, pool.BinStep))
}
