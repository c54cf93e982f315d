package venues

import (
	"poseidon/internal/domain/lp"
	"poseidon/pkg/errors"
)

// Program-level index bounds.
const (
	// MinTick / MaxTick bound the sqrt-price grid on tick venues.
	MinTick int32 = -443636
	MaxTick int32 = 443636

	// MinBinID / MaxBinID bound the DLMM bin space.
	MinBinID int32 = -443636
	MaxBinID int32 = 443636
)

// SnapTickRange computes a ±k range around the current tick, snapped to the
// legal grid by flooring both bounds to a multiple of the spacing. The range
// keeps its width of 2k spacings; for an unaligned current tick it sits up to
// one spacing below the exact ±k window.
func SnapTickRange(currentTick int32, spacing uint16, halfWidth int32) lp.Range {
	s := int32(spacing)
	if s <= 0 {
		s = 1
	}

	lower := floorDiv(currentTick-halfWidth*s, s) * s
	upper := floorDiv(currentTick+halfWidth*s, s) * s

	if lower < MinTick {
		lower = floorDiv(MinTick+s-1, s) * s
	}
	if upper > MaxTick {
		upper = floorDiv(MaxTick, s) * s
	}

	return lp.Range{Lower: lower, Upper: upper}
}

// SnapBinRange computes a ±k·step range around the active bin, clamped to
// the legal bin space. The bin step is the DLMM granularity unit, so a
// CONCENTRATED range on a step-10 pair spans 50 bin ids each side.
func SnapBinRange(activeBin int32, binStep uint16, halfWidth int32) lp.Range {
	step := int32(binStep)
	if step <= 0 {
		step = 1
	}

	lower := activeBin - halfWidth*step
	upper := activeBin + halfWidth*step

	if lower < MinBinID {
		lower = MinBinID
	}
	if upper > MaxBinID {
		upper = MaxBinID
	}

	return lp.Range{Lower: lower, Upper: upper}
}

// ValidateCustomRange rejects crossing, zero-width, and grid-unaligned
// ranges.
func ValidateCustomRange(pool *lp.Pool, rng lp.Range) error {
	if rng.Lower >= rng.Upper {
		return errors.Wrapf(errors.ErrValidation, "range [%d, %d] is crossing or zero-width", rng.Lower, rng.Upper)
	}

	if pool.Venue.TickBased() {
		s := int32(pool.TickSpacing)
		if s <= 0 {
			return errors.Wrapf(errors.ErrValidation, "pool %s has no tick spacing", pool.Address)
		}
		if rng.Lower%s != 0 || rng.Upper%s != 0 {
			return errors.Wrapf(errors.ErrValidation, "range [%d, %d] not aligned to tick spacing %d", rng.Lower, rng.Upper, s)
		}
		if rng.Lower < MinTick || rng.Upper > MaxTick {
			return errors.Wrapf(errors.ErrValidation, "range [%d, %d] outside tick bounds", rng.Lower, rng.Upper)
		}
		return nil
	}

	if rng.Lower < MinBinID || rng.Upper > MaxBinID {
		return errors.Wrapf(errors.ErrValidation, "range [%d, %d] outside bin bounds", rng.Lower, rng.Upper)
	}
	return nil
}

// ComputeRange is the shared shape-to-range derivation used by all adapters.
func ComputeRange(pool *lp.Pool, shape lp.RangeShape, custom *lp.Range) (lp.Range, error) {
	if shape == lp.ShapeCustom {
		if custom == nil {
			return lp.Range{}, errors.Wrap(errors.ErrValidation, "custom shape requires explicit range")
		}
		if err := ValidateCustomRange(pool, *custom); err != nil {
			return lp.Range{}, err
		}
		return *custom, nil
	}

	k := shape.HalfWidth()
	if pool.Venue.TickBased() {
		return SnapTickRange(pool.CurrentIndex, pool.TickSpacing, k), nil
	}
	return SnapBinRange(pool.CurrentIndex, pool.BinStep, k), nil
}

// floorDiv divides rounding toward negative infinity, so snapping floors
// negative ticks the same way as positive ones.
func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
