package dlmm

import (
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"poseidon/internal/domain/lp"
	"poseidon/internal/venues"
)

// binArrayIndex returns the index of the array holding binID.
func binArrayIndex(binID int32) int64 {
	idx := binID / BinsPerArray
	if binID%BinsPerArray != 0 && binID < 0 {
		idx--
	}
	return int64(idx)
}

func binArrayPDA(pair solana.PublicKey, index int64) (solana.PublicKey, error) {
	idx := make([]byte, 8)
	binary.LittleEndian.PutUint64(idx, uint64(index))
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("bin_array"), pair.Bytes(), idx}, ProgramID)
	return addr, err
}

// eventAuthorityPDA is the anchor CPI-event signer the program requires on
// every liquidity instruction.
func eventAuthorityPDA() (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("__event_authority")}, ProgramID)
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

func strategyType(d lp.Distribution) uint8 {
	switch d {
	case lp.DistributionCurve:
		return strategyCurveBalanced
	case lp.DistributionBidAsk:
		return strategyBidAskBalanced
	default:
		return strategySpotBalanced
	}
}

func newInitializePositionIx(payer, position, pair, owner solana.PublicKey, lowerBinID, width int32) (solana.Instruction, error) {
	data, err := encodeArgs("initialize_position", func(enc *bin.Encoder) error {
		if err := enc.WriteInt32(lowerBinID, bin.LE); err != nil {
			return err
		}
		return enc.WriteInt32(width, bin.LE)
	})
	if err != nil {
		return nil, err
	}

	eventAuthority, err := eventAuthorityPDA()
	if err != nil {
		return nil, err
	}

	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{
		solana.Meta(payer).WRITE().SIGNER(),
		solana.Meta(position).WRITE().SIGNER(),
		solana.Meta(pair),
		solana.Meta(owner).SIGNER(),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.SysVarRentPubkey),
		solana.Meta(eventAuthority),
		solana.Meta(ProgramID),
	}, data), nil
}

func newInitializeBinArrayIx(payer, pair, binArray solana.PublicKey, index int64) (solana.Instruction, error) {
	data, err := encodeArgs("initialize_bin_array", func(enc *bin.Encoder) error {
		return enc.WriteInt64(index, bin.LE)
	})
	if err != nil {
		return nil, err
	}

	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{
		solana.Meta(pair),
		solana.Meta(binArray).WRITE(),
		solana.Meta(payer).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
	}, data), nil
}

type liquidityAccounts struct {
	position      solana.PublicKey
	pair          solana.PublicKey
	userTokenX    solana.PublicKey
	userTokenY    solana.PublicKey
	reserveX      solana.PublicKey
	reserveY      solana.PublicKey
	tokenXMint    solana.PublicKey
	tokenYMint    solana.PublicKey
	binArrayLower solana.PublicKey
	binArrayUpper solana.PublicKey
	owner         solana.PublicKey
}

func (a liquidityAccounts) metas(eventAuthority solana.PublicKey) solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		solana.Meta(a.position).WRITE(),
		solana.Meta(a.pair).WRITE(),
		solana.Meta(a.userTokenX).WRITE(),
		solana.Meta(a.userTokenY).WRITE(),
		solana.Meta(a.reserveX).WRITE(),
		solana.Meta(a.reserveY).WRITE(),
		solana.Meta(a.tokenXMint),
		solana.Meta(a.tokenYMint),
		solana.Meta(a.binArrayLower).WRITE(),
		solana.Meta(a.binArrayUpper).WRITE(),
		solana.Meta(a.owner).SIGNER(),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(eventAuthority),
		solana.Meta(ProgramID),
	}
}

// newAddLiquidityByStrategyIx encodes the LiquidityParameterByStrategy args:
// amounts, the active bin with its slippage allowance, and the strategy
// parameters spreading liquidity across [min, max].
func newAddLiquidityByStrategyIx(accts liquidityAccounts, amountX, amountY uint64, activeID int32, maxActiveBinSlippage int32, rng lp.Range, strategy uint8) (solana.Instruction, error) {
	data, err := encodeArgs("add_liquidity_by_strategy", func(enc *bin.Encoder) error {
		if err := enc.WriteUint64(amountX, bin.LE); err != nil {
			return err
		}
		if err := enc.WriteUint64(amountY, bin.LE); err != nil {
			return err
		}
		if err := enc.WriteInt32(activeID, bin.LE); err != nil {
			return err
		}
		if err := enc.WriteInt32(maxActiveBinSlippage, bin.LE); err != nil {
			return err
		}
		if err := enc.WriteInt32(rng.Lower, bin.LE); err != nil {
			return err
		}
		if err := enc.WriteInt32(rng.Upper, bin.LE); err != nil {
			return err
		}
		if err := enc.WriteUint8(strategy); err != nil {
			return err
		}
		var padding [64]byte
		return enc.WriteBytes(padding[:], false)
	})
	if err != nil {
		return nil, err
	}

	eventAuthority, err := eventAuthorityPDA()
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(ProgramID, accts.metas(eventAuthority), data), nil
}

func newRemoveLiquidityByRangeIx(accts liquidityAccounts, fromBinID, toBinID int32, bps uint16) (solana.Instruction, error) {
	data, err := encodeArgs("remove_liquidity_by_range", func(enc *bin.Encoder) error {
		if err := enc.WriteInt32(fromBinID, bin.LE); err != nil {
			return err
		}
		if err := enc.WriteInt32(toBinID, bin.LE); err != nil {
			return err
		}
		return enc.WriteUint16(bps, bin.LE)
	})
	if err != nil {
		return nil, err
	}

	eventAuthority, err := eventAuthorityPDA()
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(ProgramID, accts.metas(eventAuthority), data), nil
}

func newClaimFeeIx(pair, position, owner, binArrayLower, binArrayUpper, reserveX, reserveY, userTokenX, userTokenY, tokenXMint, tokenYMint solana.PublicKey) (solana.Instruction, error) {
	data, err := encodeArgs("claim_fee", nil)
	if err != nil {
		return nil, err
	}

	eventAuthority, err := eventAuthorityPDA()
	if err != nil {
		return nil, err
	}

	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{
		solana.Meta(pair).WRITE(),
		solana.Meta(position).WRITE(),
		solana.Meta(binArrayLower).WRITE(),
		solana.Meta(binArrayUpper).WRITE(),
		solana.Meta(owner).SIGNER(),
		solana.Meta(reserveX).WRITE(),
		solana.Meta(reserveY).WRITE(),
		solana.Meta(userTokenX).WRITE(),
		solana.Meta(userTokenY).WRITE(),
		solana.Meta(tokenXMint),
		solana.Meta(tokenYMint),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(eventAuthority),
		solana.Meta(ProgramID),
	}, data), nil
}

func newClosePositionIx(position, pair, binArrayLower, binArrayUpper, owner, rentReceiver solana.PublicKey) (solana.Instruction, error) {
	data, err := encodeArgs("close_position", nil)
	if err != nil {
		return nil, err
	}

	eventAuthority, err := eventAuthorityPDA()
	if err != nil {
		return nil, err
	}

	return solana.NewInstruction(ProgramID, solana.AccountMetaSlice{
		solana.Meta(position).WRITE(),
		solana.Meta(pair).WRITE(),
		solana.Meta(binArrayLower).WRITE(),
		solana.Meta(binArrayUpper).WRITE(),
		solana.Meta(owner).SIGNER(),
		solana.Meta(rentReceiver).WRITE(),
		solana.Meta(eventAuthority),
		solana.Meta(ProgramID),
	}, data), nil
}
