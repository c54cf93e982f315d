package clmm

import (
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"poseidon/pkg/errors"
)

// poolState is the subset of the CLMM PoolState account the adapter reads.
type poolState struct {
	MintA         solana.PublicKey
	MintB         solana.PublicKey
	VaultA        solana.PublicKey
	VaultB        solana.PublicKey
	MintDecimalsA uint8
	MintDecimalsB uint8
	TickSpacing   uint16
	Liquidity     bin.Uint128
	SqrtPriceX64  bin.Uint128
	TickCurrent   int32
	Status        uint8
}

func decodePoolState(data []byte) (*poolState, error) {
	if len(data) < poolStateLen {
		return nil, errors.Wrapf(errors.ErrUnsupportedPoolType, "account size %d is not a clmm pool", len(data))
	}

	var s poolState
	var err error

	dec := bin.NewBinDecoder(data)
	if err = dec.SkipBytes(offMintA); err != nil {
		return nil, err
	}
	if s.MintA, err = readPublicKey(dec); err != nil {
		return nil, err
	}
	if s.MintB, err = readPublicKey(dec); err != nil {
		return nil, err
	}
	if s.VaultA, err = readPublicKey(dec); err != nil {
		return nil, err
	}
	if s.VaultB, err = readPublicKey(dec); err != nil {
		return nil, err
	}
	if err = dec.SkipBytes(offMintDecimA - offVaultB - 32); err != nil {
		return nil, err
	}
	if s.MintDecimalsA, err = dec.ReadUint8(); err != nil {
		return nil, err
	}
	if s.MintDecimalsB, err = dec.ReadUint8(); err != nil {
		return nil, err
	}
	if s.TickSpacing, err = dec.ReadUint16(bin.LE); err != nil {
		return nil, err
	}
	if s.Liquidity, err = dec.ReadUint128(bin.LE); err != nil {
		return nil, err
	}
	if s.SqrtPriceX64, err = dec.ReadUint128(bin.LE); err != nil {
		return nil, err
	}
	if s.TickCurrent, err = dec.ReadInt32(bin.LE); err != nil {
		return nil, err
	}
	if err = dec.SkipBytes(offStatus - offTickCurrent - 4); err != nil {
		return nil, err
	}
	if s.Status, err = dec.ReadUint8(); err != nil {
		return nil, err
	}

	return &s, nil
}

// personalPosition is the decoded PersonalPositionState account.
type personalPosition struct {
	NftMint   solana.PublicKey
	PoolID    solana.PublicKey
	TickLower int32
	TickUpper int32
	Liquidity bin.Uint128
	FeesOwedA uint64
	FeesOwedB uint64
}

func decodePersonalPosition(data []byte) (*personalPosition, error) {
	if len(data) < personalPositionLen {
		return nil, errors.Wrapf(errors.ErrNotFound, "account size %d is not a clmm position", len(data))
	}

	var s personalPosition
	var err error

	dec := bin.NewBinDecoder(data)
	if err = dec.SkipBytes(posOffNftMint); err != nil {
		return nil, err
	}
	if s.NftMint, err = readPublicKey(dec); err != nil {
		return nil, err
	}
	if s.PoolID, err = readPublicKey(dec); err != nil {
		return nil, err
	}
	if s.TickLower, err = dec.ReadInt32(bin.LE); err != nil {
		return nil, err
	}
	if s.TickUpper, err = dec.ReadInt32(bin.LE); err != nil {
		return nil, err
	}
	if s.Liquidity, err = dec.ReadUint128(bin.LE); err != nil {
		return nil, err
	}
	if err = dec.SkipBytes(posOffFeesOwedA - posOffLiquidity - 16); err != nil {
		return nil, err
	}
	if s.FeesOwedA, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, err
	}
	if s.FeesOwedB, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, err
	}

	return &s, nil
}

func readPublicKey(dec *bin.Decoder) (solana.PublicKey, error) {
	raw, err := dec.ReadNBytes(32)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(raw), nil
}
