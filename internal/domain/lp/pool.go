package lp

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Token describes one side of a pool's pair.
type Token struct {
	Mint     string `json:"mint"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// Pool is the canonical cross-venue pool representation.
// Exactly one of BinStep / TickSpacing is non-zero, matching the venue:
// DLMM pools carry a bin step in basis points, tick venues a tick spacing.
type Pool struct {
	Address string `json:"address"`
	Venue   Venue  `json:"venue"`
	TokenA  Token  `json:"tokenA"`
	TokenB  Token  `json:"tokenB"`

	Price decimal.Decimal `json:"price"` // B per A

	BinStep     uint16 `json:"binStep,omitempty"`
	TickSpacing uint16 `json:"tickSpacing,omitempty"`

	// CurrentIndex is the active bin id (DLMM) or current tick (tick venues).
	CurrentIndex int32 `json:"currentIndex"`

	TVL       float64 `json:"tvl"`
	Volume24h float64 `json:"volume24h"`
	FeeBps    uint16  `json:"feeBps"`
	APR       float64 `json:"apr"`

	RiskScore int `json:"riskScore"` // [1,10]
}

// GridUnit returns the pool's granularity step as an index delta: the bin
// step for DLMM, the tick spacing for tick venues. Drift is measured in
// these units so it is venue-agnostic.
func (p *Pool) GridUnit() int32 {
	if p.Venue == VenueDLMM {
		if p.BinStep == 0 {
			return 1
		}
		return int32(p.BinStep)
	}
	if p.TickSpacing == 0 {
		return 1
	}
	return int32(p.TickSpacing)
}

// PairKey returns the unordered token-symbol pair key used for dedup.
func (p *Pool) PairKey() string {
	a, b := strings.ToUpper(p.TokenA.Symbol), strings.ToUpper(p.TokenB.Symbol)
	if a > b {
		a, b = b, a
	}
	return a + "/" + b
}

// RiskAdjustedYield is APR discounted by the pool's risk score.
func (p *Pool) RiskAdjustedYield() float64 {
	if p.RiskScore <= 0 {
		return p.APR
	}
	return p.APR / float64(p.RiskScore)
}
