package whirlpool

import (
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"poseidon/internal/venues"
)

// positionPDA derives the position account from the position mint.
func positionPDA(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("position"), mint.Bytes()}, ProgramID)
	return addr, err
}

// tickArrayStart returns the first tick of the array covering tick.
func tickArrayStart(tick int32, spacing uint16) int32 {
	span := int32(spacing) * TickArraySize
	q := tick / span
	if tick%span != 0 && tick < 0 {
		q--
	}
	return q * span
}

// tickArrayPDA derives a tick array account from its start tick.
func tickArrayPDA(pool solana.PublicKey, startTick int32) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("tick_array"), pool.Bytes(), []byte(fmt.Sprintf("%d", startTick))},
		ProgramID,
	)
	return addr, err
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

type bytesBuffer struct{ data []byte }

func (b *bytesBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func writeU128LE(enc *bin.Encoder, v *big.Int) error {
	var raw [16]byte
	v.FillBytes(raw[:])
	// big.Int fills big-endian; the program expects little-endian.
	for i, j := 0, 15; i < j; i, j = i+1, j-1 {
		raw[i], raw[j] = raw[j], raw[i]
	}
	return enc.WriteBytes(raw[:], false)
}

func newOpenPositionIx(funder, owner, position, positionMint, positionTokenAccount solana.PublicKey, tickLower, tickUpper int32) (solana.Instruction, error) {
	data, err := encodeArgs("open_position", func(enc *bin.Encoder) error {
		// position_bump is recomputed on chain; clients pass the canonical bump.
		if err := enc.WriteUint8(255); err != nil {
			return err
		}
		if err := enc.WriteInt32(tickLower, bin.LE); err != nil {
			return err
		}
		return enc.WriteInt32(tickUpper, bin.LE)
	})
	if err != nil {
		return nil, err
	}

	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{
		solana.Meta(funder).WRITE().SIGNER(),
		solana.Meta(owner),
		solana.Meta(position).WRITE(),
		solana.Meta(positionMint).WRITE().SIGNER(),
		solana.Meta(positionTokenAccount).WRITE(),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.SysVarRentPubkey),
		solana.Meta(solana.SPLAssociatedTokenAccountProgramID),
	}, data), nil
}

func newInitTickArrayIx(pool, funder, tickArray solana.PublicKey, startTick int32) (solana.Instruction, error) {
	data, err := encodeArgs("initialize_tick_array", func(enc *bin.Encoder) error {
		return enc.WriteInt32(startTick, bin.LE)
	})
	if err != nil {
		return nil, err
	}

	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{
		solana.Meta(pool),
		solana.Meta(funder).WRITE().SIGNER(),
		solana.Meta(tickArray).WRITE(),
		solana.Meta(solana.SystemProgramID),
	}, data), nil
}

type liquidityAccounts struct {
	pool                 solana.PublicKey
	owner                solana.PublicKey
	position             solana.PublicKey
	positionTokenAccount solana.PublicKey
	ownerAccountA        solana.PublicKey
	ownerAccountB        solana.PublicKey
	vaultA               solana.PublicKey
	vaultB               solana.PublicKey
	tickArrayLower       solana.PublicKey
	tickArrayUpper       solana.PublicKey
}

func (a liquidityAccounts) metas() solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		solana.Meta(a.pool).WRITE(),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(a.owner).SIGNER(),
		solana.Meta(a.position).WRITE(),
		solana.Meta(a.positionTokenAccount),
		solana.Meta(a.ownerAccountA).WRITE(),
		solana.Meta(a.ownerAccountB).WRITE(),
		solana.Meta(a.vaultA).WRITE(),
		solana.Meta(a.vaultB).WRITE(),
		solana.Meta(a.tickArrayLower).WRITE(),
		solana.Meta(a.tickArrayUpper).WRITE(),
	}
}

func newIncreaseLiquidityIx(accts liquidityAccounts, liquidity *big.Int, tokenMaxA, tokenMaxB uint64) (solana.Instruction, error) {
	data, err := encodeArgs("increase_liquidity", func(enc *bin.Encoder) error {
		if err := writeU128LE(enc, liquidity); err != nil {
			return err
		}
		if err := enc.WriteUint64(tokenMaxA, bin.LE); err != nil {
			return err
		}
		return enc.WriteUint64(tokenMaxB, bin.LE)
	})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(ProgramID, accts.metas(), data), nil
}

func newDecreaseLiquidityIx(accts liquidityAccounts, liquidity *big.Int, tokenMinA, tokenMinB uint64) (solana.Instruction, error) {
	data, err := encodeArgs("decrease_liquidity", func(enc *bin.Encoder) error {
		if err := writeU128LE(enc, liquidity); err != nil {
			return err
		}
		if err := enc.WriteUint64(tokenMinA, bin.LE); err != nil {
			return err
		}
		return enc.WriteUint64(tokenMinB, bin.LE)
	})
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(ProgramID, accts.metas(), data), nil
}

func newUpdateFeesAndRewardsIx(pool, position, tickArrayLower, tickArrayUpper solana.PublicKey) (solana.Instruction, error) {
	data, err := encodeArgs("update_fees_and_rewards", nil)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{
		solana.Meta(pool).WRITE(),
		solana.Meta(position).WRITE(),
		solana.Meta(tickArrayLower),
		solana.Meta(tickArrayUpper),
	}, data), nil
}

func newCollectFeesIx(pool, owner, position, positionTokenAccount, ownerAccountA, vaultA, ownerAccountB, vaultB solana.PublicKey) (solana.Instruction, error) {
	data, err := encodeArgs("collect_fees", nil)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{
		solana.Meta(pool),
		solana.Meta(owner).SIGNER(),
		solana.Meta(position).WRITE(),
		solana.Meta(positionTokenAccount),
		solana.Meta(ownerAccountA).WRITE(),
		solana.Meta(vaultA).WRITE(),
		solana.Meta(ownerAccountB).WRITE(),
		solana.Meta(vaultB).WRITE(),
		solana.Meta(solana.TokenProgramID),
	}, data), nil
}

func newClosePositionIx(owner, receiver, position, positionMint, positionTokenAccount solana.PublicKey) (solana.Instruction, error) {
	data, err := encodeArgs("close_position", nil)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{
		solana.Meta(owner).SIGNER(),
		solana.Meta(receiver).WRITE(),
		solana.Meta(position).WRITE(),
		solana.Meta(positionMint).WRITE(),
		solana.Meta(positionTokenAccount).WRITE(),
		solana.Meta(solana.TokenProgramID),
	}, data), nil
}
