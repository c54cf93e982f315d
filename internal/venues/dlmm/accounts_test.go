package dlmm

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poseidon/pkg/errors"
)

func TestDecodeLbPair(t *testing.T) {
	mintX := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	mintY := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")

	buf := make([]byte, lbPairAccountLen)
	binary.LittleEndian.PutUint32(buf[offActiveID:], uint32(5000))
	binary.LittleEndian.PutUint16(buf[offBinStep:], 10)
	copy(buf[offTokenXMint:], mintX.Bytes())
	copy(buf[offTokenYMint:], mintY.Bytes())

	state, err := decodeLbPair(buf)
	require.NoError(t, err)

	assert.Equal(t, int32(5000), state.ActiveID)
	assert.Equal(t, uint16(10), state.BinStep)
	assert.Equal(t, uint8(0), state.Status)
	assert.Equal(t, mintX, state.TokenXMint)
	assert.Equal(t, mintY, state.TokenYMint)
}

func TestDecodeLbPairRejectsWrongSize(t *testing.T) {
	_, err := decodeLbPair(make([]byte, 64))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedPoolType))
}

func TestDecodePositionSumsPendingFees(t *testing.T) {
	pair := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	owner := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")

	buf := make([]byte, positionAccountLen)
	copy(buf[posOffLbPair:], pair.Bytes())
	copy(buf[posOffOwner:], owner.Bytes())
	binary.LittleEndian.PutUint32(buf[posOffLowerBin:], uint32(4950))
	binary.LittleEndian.PutUint32(buf[posOffUpperBin:], uint32(5050))

	// Pending fees spread over two bin slots.
	binary.LittleEndian.PutUint64(buf[posOffFeeInfos+feeInfoPendingXOff:], 7)
	binary.LittleEndian.PutUint64(buf[posOffFeeInfos+feeInfoLen+feeInfoPendingXOff:], 3)
	binary.LittleEndian.PutUint64(buf[posOffFeeInfos+feeInfoPendingYOff:], 9)

	state, err := decodePosition(buf)
	require.NoError(t, err)

	assert.Equal(t, pair, state.LbPair)
	assert.Equal(t, owner, state.Owner)
	assert.Equal(t, int32(4950), state.LowerBinID)
	assert.Equal(t, int32(5050), state.UpperBinID)
	assert.Equal(t, uint64(10), state.FeeXPending)
	assert.Equal(t, uint64(9), state.FeeYPending)
}

func TestBinArrayIndex(t *testing.T) {
	assert.Equal(t, int64(0), binArrayIndex(0))
	assert.Equal(t, int64(0), binArrayIndex(69))
	assert.Equal(t, int64(1), binArrayIndex(70))
	assert.Equal(t, int64(-1), binArrayIndex(-1))
	assert.Equal(t, int64(-1), binArrayIndex(-70))
	assert.Equal(t, int64(-2), binArrayIndex(-71))
}

func TestClassifyProgramError(t *testing.T) {
	a := &Adapter{}

	assert.True(t, errors.Is(a.ClassifyProgramError(errExceededAmountSlippage), errors.ErrSlippageExceeded))
	assert.True(t, errors.Is(a.ClassifyProgramError(errExceededBinSlippage), errors.ErrSlippageExceeded))
	assert.True(t, errors.Is(a.ClassifyProgramError(errPairDisabled), errors.ErrPoolPaused))
	assert.True(t, errors.Is(a.ClassifyProgramError(999999), errors.ErrInternal))
}
