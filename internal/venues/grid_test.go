package venues

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poseidon/internal/domain/lp"
	"poseidon/pkg/errors"
)

func TestSnapTickRange(t *testing.T) {
	tests := []struct {
		name      string
		current   int32
		spacing   uint16
		halfWidth int32
		wantLower int32
		wantUpper int32
	}{
		{"aligned current", 5000, 10, 5, 4950, 5050},
		{"unaligned current floors both bounds", 103, 10, 5, 50, 150},
		{"spacing of one", 103, 1, 5, 98, 108},
		{"wide shape", 5000, 10, 20, 4800, 5200},
		{"negative ticks floor toward negative infinity", -105, 10, 5, -160, -60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := SnapTickRange(tt.current, tt.spacing, tt.halfWidth)
			assert.Equal(t, tt.wantLower, rng.Lower)
			assert.Equal(t, tt.wantUpper, rng.Upper)
			assert.Zero(t, rng.Lower%int32(tt.spacing))
			assert.Zero(t, rng.Upper%int32(tt.spacing))
		})
	}
}

func TestSnapBinRange(t *testing.T) {
	// ±5 granularity units on a step-10 pair spans 50 bin ids each side.
	rng := SnapBinRange(5000, 10, 5)
	assert.Equal(t, int32(4950), rng.Lower)
	assert.Equal(t, int32(5050), rng.Upper)

	rng = SnapBinRange(5000, 10, 20)
	assert.Equal(t, int32(4800), rng.Lower)
	assert.Equal(t, int32(5200), rng.Upper)

	// Bin step of 1 gives ±5 indices.
	rng = SnapBinRange(5000, 1, 5)
	assert.Equal(t, int32(4995), rng.Lower)
	assert.Equal(t, int32(5005), rng.Upper)

	// Clamped at the edge of the legal bin space.
	rng = SnapBinRange(MinBinID+1, 1, 5)
	assert.Equal(t, MinBinID, rng.Lower)
}

func TestValidateCustomRange(t *testing.T) {
	tickPool := &lp.Pool{Venue: lp.VenueWhirlpool, TickSpacing: 10}
	binPool := &lp.Pool{Venue: lp.VenueDLMM, BinStep: 10}

	tests := []struct {
		name    string
		pool    *lp.Pool
		rng     lp.Range
		wantErr bool
	}{
		{"valid tick range", tickPool, lp.Range{Lower: -100, Upper: 100}, false},
		{"zero-width", tickPool, lp.Range{Lower: 100, Upper: 100}, true},
		{"crossing", tickPool, lp.Range{Lower: 200, Upper: 100}, true},
		{"unaligned lower", tickPool, lp.Range{Lower: 105, Upper: 200}, true},
		{"unaligned upper", tickPool, lp.Range{Lower: 100, Upper: 205}, true},
		{"bin range needs no alignment", binPool, lp.Range{Lower: 4999, Upper: 5001}, false},
		{"bin range crossing", binPool, lp.Range{Lower: 5001, Upper: 4999}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCustomRange(tt.pool, tt.rng)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestComputeRange(t *testing.T) {
	pool := &lp.Pool{Venue: lp.VenueDLMM, BinStep: 10, CurrentIndex: 5000}

	rng, err := ComputeRange(pool, lp.ShapeConcentrated, nil)
	require.NoError(t, err)
	assert.Equal(t, lp.Range{Lower: 4950, Upper: 5050}, rng)

	_, err = ComputeRange(pool, lp.ShapeCustom, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	custom := &lp.Range{Lower: 4990, Upper: 5010}
	rng, err = ComputeRange(pool, lp.ShapeCustom, custom)
	require.NoError(t, err)
	assert.Equal(t, *custom, rng)
}
