package dlmm

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"poseidon/pkg/errors"
)

// lbPairState is the subset of the LbPair account the adapter reads.
// The account mixes packed sub-structs, so fields are read at fixed offsets.
type lbPairState struct {
	PairType   uint8
	ActiveID   int32
	BinStep    uint16
	Status     uint8
	TokenXMint solana.PublicKey
	TokenYMint solana.PublicKey
	ReserveX   solana.PublicKey
	ReserveY   solana.PublicKey
}

func decodeLbPair(data []byte) (*lbPairState, error) {
	if len(data) < lbPairAccountLen {
		return nil, errors.Wrapf(errors.ErrUnsupportedPoolType, "account size %d is not an lb pair", len(data))
	}

	return &lbPairState{
		PairType:   data[offPairType],
		ActiveID:   int32(binary.LittleEndian.Uint32(data[offActiveID:])),
		BinStep:    binary.LittleEndian.Uint16(data[offBinStep:]),
		Status:     data[offStatus],
		TokenXMint: solana.PublicKeyFromBytes(data[offTokenXMint : offTokenXMint+32]),
		TokenYMint: solana.PublicKeyFromBytes(data[offTokenYMint : offTokenYMint+32]),
		ReserveX:   solana.PublicKeyFromBytes(data[offReserveX : offReserveX+32]),
		ReserveY:   solana.PublicKeyFromBytes(data[offReserveY : offReserveY+32]),
	}, nil
}

// positionState is the subset of the PositionV2 account the adapter reads.
type positionState struct {
	LbPair      solana.PublicKey
	Owner       solana.PublicKey
	LowerBinID  int32
	UpperBinID  int32
	FeeXPending uint64
	FeeYPending uint64
}

func decodePosition(data []byte) (*positionState, error) {
	if len(data) < positionAccountLen {
		return nil, errors.Wrapf(errors.ErrNotFound, "account size %d is not a dlmm position", len(data))
	}

	s := &positionState{
		LbPair:     solana.PublicKeyFromBytes(data[posOffLbPair : posOffLbPair+32]),
		Owner:      solana.PublicKeyFromBytes(data[posOffOwner : posOffOwner+32]),
		LowerBinID: int32(binary.LittleEndian.Uint32(data[posOffLowerBin:])),
		UpperBinID: int32(binary.LittleEndian.Uint32(data[posOffUpperBin:])),
	}

	// Pending fees are per-bin; sum them across the position's slots.
	for i := 0; i < BinsPerArray; i++ {
		base := posOffFeeInfos + i*feeInfoLen
		s.FeeXPending += binary.LittleEndian.Uint64(data[base+feeInfoPendingXOff:])
		s.FeeYPending += binary.LittleEndian.Uint64(data[base+feeInfoPendingYOff:])
	}

	return s, nil
}
