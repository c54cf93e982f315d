package pools

import (
	"strings"

	"poseidon/internal/domain/lp"
)

// Static volatility classification. Anything unknown lands in the most
// volatile tier.
var stableSymbols = map[string]bool{
	"USDC": true, "USDT": true, "USDH": true, "PYUSD": true, "USDS": true, "UXD": true,
}

var volatilityTiers = map[string]int{
	// Majors
	"SOL": 1, "BTC": 1, "WBTC": 1, "ETH": 1, "WETH": 1,
	// Liquid staking derivatives track their underlying
	"MSOL": 1, "JITOSOL": 1, "BSOL": 1, "INF": 1,
	// Established ecosystem tokens
	"JUP": 2, "RAY": 2, "ORCA": 2, "PYTH": 2, "JTO": 2,
	// Mid caps
	"WIF": 3, "BONK": 3, "RENDER": 3, "HNT": 3,
}

func isStable(symbol string) bool {
	return stableSymbols[strings.ToUpper(symbol)]
}

func volatilityTier(symbol string) int {
	if isStable(symbol) {
		return 0
	}
	if tier, ok := volatilityTiers[strings.ToUpper(symbol)]; ok {
		return tier
	}
	return 4
}

// RiskScore derives a [1,10] score without external data: base volatility of
// the more volatile side, a TVL penalty, a thin-volume penalty, and a stable
// discount.
func RiskScore(pool *lp.Pool) int {
	a, b := pool.TokenA.Symbol, pool.TokenB.Symbol

	if isStable(a) && isStable(b) {
		return 1
	}

	score := 1

	tier := volatilityTier(a)
	if t := volatilityTier(b); t > tier {
		tier = t
	}
	score += tier

	switch {
	case pool.TVL < 50_000:
		score += 3
	case pool.TVL < 200_000:
		score += 2
	case pool.TVL < 1_000_000:
		score += 1
	}

	if pool.TVL > 0 && pool.Volume24h/pool.TVL < 0.01 {
		score++
	}

	if isStable(a) || isStable(b) {
		score--
	}

	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}
	return score
}
