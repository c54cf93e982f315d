package clmm

import (
	"encoding/binary"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"poseidon/internal/venues"
)

func personalPositionPDA(nftMint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("position"), nftMint.Bytes()}, ProgramID)
	return addr, err
}

func protocolPositionPDA(pool solana.PublicKey, tickLower, tickUpper int32) (solana.PublicKey, error) {
	lower := make([]byte, 4)
	upper := make([]byte, 4)
	binary.BigEndian.PutUint32(lower, uint32(tickLower))
	binary.BigEndian.PutUint32(upper, uint32(tickUpper))
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("position"), pool.Bytes(), lower, upper}, ProgramID)
	return addr, err
}

func tickArrayStart(tick int32, spacing uint16) int32 {
	span := int32(spacing) * TickArraySize
	q := tick / span
	if tick%span != 0 && tick < 0 {
		q--
	}
	return q * span
}

func tickArrayPDA(pool solana.PublicKey, startTick int32) (solana.PublicKey, error) {
	start := make([]byte, 4)
	binary.BigEndian.PutUint32(start, uint32(startTick))
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("tick_array"), pool.Bytes(), start}, ProgramID)
	return addr, err
}

type bytesBuffer struct{ data []byte }

func (b *bytesBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func encodeArgs(name string, write func(enc *bin.Encoder) error) ([]byte, error) {
	buf := new(bytesBuffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(venues.AnchorDiscriminator(name), false); err != nil {
		return nil, err
	}
	if write != nil {
		if err := write(enc); err != nil {
			return nil, err
		}
	}
	return buf.data, nil
}

func writeU128LE(enc *bin.Encoder, v *big.Int) error {
	var raw [16]byte
	v.FillBytes(raw[:])
	for i, j := 0, 15; i < j; i, j = i+1, j-1 {
		raw[i], raw[j] = raw[j], raw[i]
	}
	return enc.WriteBytes(raw[:], false)
}

type openPositionAccounts struct {
	payer            solana.PublicKey
	owner            solana.PublicKey
	pool             solana.PublicKey
	nftMint          solana.PublicKey
	nftAccount       solana.PublicKey
	protocolPosition solana.PublicKey
	personalPosition solana.PublicKey
	tickArrayLower   solana.PublicKey
	tickArrayUpper   solana.PublicKey
	tokenAccountA    solana.PublicKey
	tokenAccountB    solana.PublicKey
	vaultA           solana.PublicKey
	vaultB           solana.PublicKey
}

func newOpenPositionIx(accts openPositionAccounts, tickLower, tickUpper, arrayLowerStart, arrayUpperStart int32, liquidity *big.Int, maxA, maxB uint64) (solana.Instruction, error) {
	data, err := encodeArgs("open_position_v2", func(enc *bin.Encoder) error {
		if err := enc.WriteInt32(tickLower, bin.LE); err != nil {
			return err
		}
		if err := enc.WriteInt32(tickUpper, bin.LE); err != nil {
			return err
		}
		if err := enc.WriteInt32(arrayLowerStart, bin.LE); err != nil {
			return err
		}
		if err := enc.WriteInt32(arrayUpperStart, bin.LE); err != nil {
			return err
		}
		if err := writeU128LE(enc, liquidity); err != nil {
			return err
		}
		if err := enc.WriteUint64(maxA, bin.LE); err != nil {
			return err
		}
		if err := enc.WriteUint64(maxB, bin.LE); err != nil {
			return err
		}
		// with_metadata, base_flag option
		if err := enc.WriteBool(false); err != nil {
			return err
		}
		return enc.WriteUint8(0)
	})
	if err != nil {
		return nil, err
	}

	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{
		solana.Meta(accts.payer).WRITE().SIGNER(),
		solana.Meta(accts.owner),
		solana.Meta(accts.nftMint).WRITE().SIGNER(),
		solana.Meta(accts.nftAccount).WRITE(),
		solana.Meta(accts.pool).WRITE(),
		solana.Meta(accts.protocolPosition).WRITE(),
		solana.Meta(accts.tickArrayLower).WRITE(),
		solana.Meta(accts.tickArrayUpper).WRITE(),
		solana.Meta(accts.personalPosition).WRITE(),
		solana.Meta(accts.tokenAccountA).WRITE(),
		solana.Meta(accts.tokenAccountB).WRITE(),
		solana.Meta(accts.vaultA).WRITE(),
		solana.Meta(accts.vaultB).WRITE(),
		solana.Meta(solana.SysVarRentPubkey),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SPLAssociatedTokenAccountProgramID),
	}, data), nil
}

type liquidityAccounts struct {
	owner            solana.PublicKey
	pool             solana.PublicKey
	nftAccount       solana.PublicKey
	protocolPosition solana.PublicKey
	personalPosition solana.PublicKey
	tickArrayLower   solana.PublicKey
	tickArrayUpper   solana.PublicKey
	tokenAccountA    solana.PublicKey
	tokenAccountB    solana.PublicKey
	vaultA           solana.PublicKey
	vaultB           solana.PublicKey
}

func (a liquidityAccounts) metas() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		solana.Meta(a.owner).SIGNER(),
		solana.Meta(a.nftAccount),
		solana.Meta(a.pool).WRITE(),
		solana.Meta(a.protocolPosition).WRITE(),
		solana.Meta(a.personalPosition).WRITE(),
		solana.Meta(a.tickArrayLower).WRITE(),
		solana.Meta(a.tickArrayUpper).WRITE(),
		solana.Meta(a.tokenAccountA).WRITE(),
		solana.Meta(a.tokenAccountB).WRITE(),
		solana.Meta(a.vaultA).WRITE(),
		solana.Meta(a.vaultB).WRITE(),
		solana.Meta(solana.TokenProgramID),
	}
}

func newDecreaseLiquidityIx(accts liquidityAccounts, liquidity *big.Int, minA, minB uint64) (solana.Instruction, error) {
	data, err := encodeArgs("decrease_liquidity_v2", func(enc *bin.Encoder) error {
		if err := writeU128LE(enc, liquidity); err != nil {
			return err
		}
		if err := enc.WriteUint64(minA, bin.LE); err != nil {
			return err
		}
		return enc.WriteUint64(minB, bin.LE)
	})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(ProgramID, accts.metas(), data), nil
}

func newClosePositionIx(owner, nftMint, nftAccount, personalPosition solana.PublicKey) (solana.Instruction, error) {
	data, err := encodeArgs("close_position", nil)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{
		solana.Meta(owner).WRITE().SIGNER(),
		solana.Meta(nftMint).WRITE(),
		solana.Meta(nftAccount).WRITE(),
		solana.Meta(personalPosition).WRITE(),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.TokenProgramID),
	}, data), nil
}
