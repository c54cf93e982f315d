package lp

// Venue identifies a concentrated-liquidity venue.
type Venue string

const (
	VenueDLMM      Venue = "DLMM"      // Meteora Dynamic Liquidity Market Maker
	VenueWhirlpool Venue = "WHIRLPOOL" // Orca Whirlpools
	VenueCLMM      Venue = "CLMM"      // Raydium CLMM
)

// Valid reports whether v is a known venue tag.
func (v Venue) Valid() bool {
	switch v {
	case VenueDLMM, VenueWhirlpool, VenueCLMM:
		return true
	}
	return false
}

// TickBased reports whether the venue indexes price by ticks on the sqrt-price
// grid (base 1.0001). DLMM uses geometric bins instead.
func (v Venue) TickBased() bool {
	return v == VenueWhirlpool || v == VenueCLMM
}

// RangeShape selects how wide a position's range is around the current index.
type RangeShape string

const (
	ShapeConcentrated RangeShape = "CONCENTRATED" // ±5 grid units
	ShapeWide         RangeShape = "WIDE"         // ±20 grid units
	ShapeCustom       RangeShape = "CUSTOM"       // caller-provided indices
)

// HalfWidth returns the range half-width in grid units for the built-in shapes.
func (s RangeShape) HalfWidth() int32 {
	switch s {
	case ShapeWide:
		return 20
	default:
		return 5
	}
}

// Distribution selects how DLMM liquidity is spread across bins in the range.
type Distribution string

const (
	DistributionSpot   Distribution = "SPOT"
	DistributionCurve  Distribution = "CURVE"
	DistributionBidAsk Distribution = "BIDASK"
)

// Urgency controls relay tipping and priority-fee selection.
type Urgency string

const (
	UrgencyFast  Urgency = "FAST"
	UrgencyTurbo Urgency = "TURBO"
	UrgencySkip  Urgency = "SKIP" // no tip transaction
)

// FeeUrgency maps intent urgency onto the priority-fee percentile tiers.
type FeeUrgency string

const (
	FeeLow      FeeUrgency = "LOW"      // p25
	FeeMedium   FeeUrgency = "MEDIUM"   // p50
	FeeHigh     FeeUrgency = "HIGH"     // p75
	FeeCritical FeeUrgency = "CRITICAL" // p90
)
