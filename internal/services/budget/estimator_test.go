package budget

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poseidon/internal/domain/lp"
)

func TestPercentileFor(t *testing.T) {
	assert.Equal(t, 25, percentileFor(lp.FeeLow))
	assert.Equal(t, 50, percentileFor(lp.FeeMedium))
	assert.Equal(t, 75, percentileFor(lp.FeeHigh))
	assert.Equal(t, 90, percentileFor(lp.FeeCritical))
	assert.Equal(t, 50, percentileFor(lp.FeeUrgency("unknown")))
}

func TestPercentileIndex(t *testing.T) {
	assert.Equal(t, 2, percentileIndex(10, 25))
	assert.Equal(t, 5, percentileIndex(10, 50))
	assert.Equal(t, 9, percentileIndex(10, 90))
	assert.Equal(t, 0, percentileIndex(1, 90))
	// Never out of bounds.
	assert.Equal(t, 9, percentileIndex(10, 100))
}

func TestApplyPrependsBudgetPair(t *testing.T) {
	from := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	to := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	transfer := system.NewTransferInstruction(1, from, to).Build()

	out := Apply([]solana.Instruction{transfer}, &Budget{UnitLimit: 200_000, UnitPrice: 5_000})

	require.Len(t, out, 3)
	assert.True(t, out[0].ProgramID().Equals(computebudget.ProgramID))
	assert.True(t, out[1].ProgramID().Equals(computebudget.ProgramID))
	assert.False(t, out[2].ProgramID().Equals(computebudget.ProgramID))
}

func TestApplyFiltersExistingBudgetInstructions(t *testing.T) {
	from := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	to := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")

	stale := computebudget.NewSetComputeUnitLimitInstruction(999_999).Build()
	transfer := system.NewTransferInstruction(1, from, to).Build()

	out := Apply([]solana.Instruction{stale, transfer}, &Budget{UnitLimit: 200_000, UnitPrice: 5_000})

	// Exactly one limit and one price instruction remain, both prepended.
	require.Len(t, out, 3)
	count := 0
	for _, ix := range out {
		if ix.ProgramID().Equals(computebudget.ProgramID) {
			count++
		}
	}
	assert.Equal(t, 2, count)
}
