package whirlpool

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poseidon/pkg/errors"
)

func putU64(buf []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(buf[off:], v)
}

func putI32(buf []byte, off int, v int32) {
	binary.LittleEndian.PutUint32(buf[off:], uint32(v))
}

func TestDecodeWhirlpool(t *testing.T) {
	mintA := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	mintB := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")

	buf := make([]byte, whirlpoolAccountLen)
	binary.LittleEndian.PutUint16(buf[offTickSpacing:], 64)
	binary.LittleEndian.PutUint16(buf[offFeeRate:], 3000)
	// sqrtPrice = 2^64 => price 1.0
	putU64(buf, offSqrtPrice+8, 1)
	putI32(buf, offTickCurrentIndex, -128)
	copy(buf[offTokenMintA:], mintA.Bytes())
	copy(buf[offTokenMintB:], mintB.Bytes())

	state, err := decodeWhirlpool(buf)
	require.NoError(t, err)

	assert.Equal(t, uint16(64), state.TickSpacing)
	assert.Equal(t, uint16(3000), state.FeeRate)
	assert.Equal(t, int32(-128), state.TickCurrent)
	assert.Equal(t, mintA, state.TokenMintA)
	assert.Equal(t, mintB, state.TokenMintB)
}

func TestDecodeWhirlpoolRejectsWrongSize(t *testing.T) {
	_, err := decodeWhirlpool(make([]byte, 100))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedPoolType))
}

func TestDecodePosition(t *testing.T) {
	pool := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	mint := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")

	buf := make([]byte, positionAccountLen)
	copy(buf[posOffWhirlpool:], pool.Bytes())
	copy(buf[posOffMint:], mint.Bytes())
	putU64(buf, posOffLiquidity, 987654321)
	putI32(buf, posOffTickLower, -100)
	putI32(buf, posOffTickUpper, 100)
	putU64(buf, posOffFeeOwedA, 55)
	putU64(buf, posOffFeeOwedB, 66)

	state, err := decodePosition(buf)
	require.NoError(t, err)

	assert.Equal(t, pool, state.Whirlpool)
	assert.Equal(t, mint, state.Mint)
	assert.Equal(t, int32(-100), state.TickLower)
	assert.Equal(t, int32(100), state.TickUpper)
	assert.EqualValues(t, 987654321, state.Liquidity.BigInt().Int64())
	assert.Equal(t, uint64(55), state.FeeOwedA)
	assert.Equal(t, uint64(66), state.FeeOwedB)
}

func TestTickArrayStart(t *testing.T) {
	// span = 64 * 88 = 5632
	assert.Equal(t, int32(0), tickArrayStart(0, 64))
	assert.Equal(t, int32(0), tickArrayStart(5000, 64))
	assert.Equal(t, int32(5632), tickArrayStart(5632, 64))
	assert.Equal(t, int32(-5632), tickArrayStart(-1, 64))
	assert.Equal(t, int32(-5632), tickArrayStart(-5632, 64))
}

func TestClassifyProgramError(t *testing.T) {
	a := &Adapter{}

	assert.True(t, errors.Is(a.ClassifyProgramError(errTokenMaxExceeded), errors.ErrSlippageExceeded))
	assert.True(t, errors.Is(a.ClassifyProgramError(errPoolPausedCode), errors.ErrPoolPaused))
	assert.True(t, errors.Is(a.ClassifyProgramError(errInsufficientFundsC), errors.ErrInsufficientFunds))
	assert.True(t, errors.Is(a.ClassifyProgramError(424242), errors.ErrInternal))
}
