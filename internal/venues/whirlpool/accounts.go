package whirlpool

import (
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"poseidon/pkg/errors"
)

// whirlpoolState is the subset of the Whirlpool account the adapter reads.
type whirlpoolState struct {
	TickSpacing uint16
	FeeRate     uint16
	Liquidity   bin.Uint128
	SqrtPrice   bin.Uint128
	TickCurrent int32
	TokenMintA  solana.PublicKey
	TokenVaultA solana.PublicKey
	TokenMintB  solana.PublicKey
	TokenVaultB solana.PublicKey
}

func decodeWhirlpool(data []byte) (*whirlpoolState, error) {
	if len(data) < whirlpoolAccountLen {
		return nil, errors.Wrapf(errors.ErrUnsupportedPoolType, "account size %d is not a whirlpool", len(data))
	}

	var s whirlpoolState
	var err error

	dec := bin.NewBinDecoder(data)
	if err = dec.SkipBytes(offTickSpacing); err != nil {
		return nil, err
	}
	if s.TickSpacing, err = dec.ReadUint16(bin.LE); err != nil {
		return nil, err
	}
	if err = dec.SkipBytes(offFeeRate - offTickSpacing - 2); err != nil {
		return nil, err
	}
	if s.FeeRate, err = dec.ReadUint16(bin.LE); err != nil {
		return nil, err
	}
	if err = dec.SkipBytes(offLiquidity - offFeeRate - 2); err != nil {
		return nil, err
	}
	if s.Liquidity, err = dec.ReadUint128(bin.LE); err != nil {
		return nil, err
	}
	if s.SqrtPrice, err = dec.ReadUint128(bin.LE); err != nil {
		return nil, err
	}
	if s.TickCurrent, err = dec.ReadInt32(bin.LE); err != nil {
		return nil, err
	}
	if err = dec.SkipBytes(offTokenMintA - offTickCurrentIndex - 4); err != nil {
		return nil, err
	}
	if s.TokenMintA, err = readPublicKey(dec); err != nil {
		return nil, err
	}
	if s.TokenVaultA, err = readPublicKey(dec); err != nil {
		return nil, err
	}
	if err = dec.SkipBytes(offTokenMintB - offTokenVaultA - 32); err != nil {
		return nil, err
	}
	if s.TokenMintB, err = readPublicKey(dec); err != nil {
		return nil, err
	}
	if s.TokenVaultB, err = readPublicKey(dec); err != nil {
		return nil, err
	}

	return &s, nil
}

// positionState is the decoded Position account.
type positionState struct {
	Whirlpool solana.PublicKey
	Mint      solana.PublicKey
	Liquidity bin.Uint128
	TickLower int32
	TickUpper int32
	FeeOwedA  uint64
	FeeOwedB  uint64
}

func decodePosition(data []byte) (*positionState, error) {
	if len(data) < positionAccountLen {
		return nil, errors.Wrapf(errors.ErrNotFound, "account size %d is not a whirlpool position", len(data))
	}

	var s positionState
	var err error

	dec := bin.NewBinDecoder(data)
	if err = dec.SkipBytes(posOffWhirlpool); err != nil {
		return nil, err
	}
	if s.Whirlpool, err = readPublicKey(dec); err != nil {
		return nil, err
	}
	if s.Mint, err = readPublicKey(dec); err != nil {
		return nil, err
	}
	if s.Liquidity, err = dec.ReadUint128(bin.LE); err != nil {
		return nil, err
	}
	if s.TickLower, err = dec.ReadInt32(bin.LE); err != nil {
		return nil, err
	}
	if s.TickUpper, err = dec.ReadInt32(bin.LE); err != nil {
		return nil, err
	}
	if err = dec.SkipBytes(posOffFeeOwedA - posOffTickUpper - 4); err != nil {
		return nil, err
	}
	if s.FeeOwedA, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, err
	}
	if err = dec.SkipBytes(posOffFeeOwedB - posOffFeeOwedA - 8); err != nil {
		return nil, err
	}
	if s.FeeOwedB, err = dec.ReadUint64(bin.LE); err != nil {
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
