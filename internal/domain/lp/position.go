package lp

import (
	"time"

	"github.com/shopspring/decimal"
)

// Range is a position's active interval in venue-native indices.
type Range struct {
	Lower int32 `json:"lower"`
	Upper int32 `json:"upper"`
}

// Contains reports whether idx falls inside the range, bounds inclusive.
func (r Range) Contains(idx int32) bool {
	return idx >= r.Lower && idx <= r.Upper
}

// Width returns the range width in raw index units.
func (r Range) Width() int32 {
	return r.Upper - r.Lower
}

// Drift returns the distance of idx from the nearest range edge, in grid
// units, when idx is outside the range. Inside the range drift is zero.
func (r Range) Drift(idx, gridUnit int32) int32 {
	if gridUnit <= 0 {
		gridUnit = 1
	}
	switch {
	case idx < r.Lower:
		return (r.Lower - idx) / gridUnit
	case idx > r.Upper:
		return (idx - r.Upper) / gridUnit
	default:
		return 0
	}
}

// Position is a user's concentrated-liquidity claim.
// ID is the stable identifier: DLMM uses the position account address,
// tick venues the position-NFT mint.
type Position struct {
	ID     string `json:"id"`
	Wallet string `json:"wallet"`
	Pool   string `json:"pool"`
	Venue  Venue  `json:"venue"`

	Range Range `json:"range"`

	PriceLower decimal.Decimal `json:"priceLower"`
	PriceUpper decimal.Decimal `json:"priceUpper"`

	Liquidity decimal.Decimal `json:"liquidity"`

	AmountA decimal.Decimal `json:"amountA"`
	AmountB decimal.Decimal `json:"amountB"`

	FeesA decimal.Decimal `json:"feesA"`
	FeesB decimal.Decimal `json:"feesB"`

	InRange bool `json:"inRange"`
}

// TrackedPosition is the monitoring shadow of a position.
type TrackedPosition struct {
	PositionID      string    `json:"positionId"`
	Wallet          string    `json:"wallet"`
	Pool            string    `json:"pool"`
	Venue           Venue     `json:"venue"`
	Range           Range     `json:"range"`
	LastChecked     time.Time `json:"lastChecked"`
	LastInRange     bool      `json:"lastInRange"`
	OutOfRangeSince time.Time `json:"outOfRangeSince,omitempty"`
}

// WorkerState is the process-wide monitor state singleton.
// Only the monitor worker mutates it.
type WorkerState struct {
	Running         bool      `json:"running"`
	StartedAt       time.Time `json:"startedAt"`
	LastCheck       time.Time `json:"lastCheck"`
	ChecksCompleted int64     `json:"checksCompleted"`
	Errors          int64     `json:"errors"`
}
