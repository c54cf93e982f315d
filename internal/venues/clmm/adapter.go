package clmm

import (
	"context"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"poseidon/internal/domain/lp"
	"poseidon/internal/venues"
	"poseidon/pkg/errors"
	"poseidon/pkg/logger"
)

// Adapter implements the venue operation set for Raydium CLMM.
type Adapter struct {
	chain venues.ChainReader
	log   *logger.Logger
}

// New creates the CLMM adapter.
func New(chain venues.ChainReader) *Adapter {
	return &Adapter{
		chain: chain,
		log:   logger.Get().With("component", "venue_clmm"),
	}
}

func (a *Adapter) Venue() lp.Venue { return lp.VenueCLMM }

// DescribePool reads the PoolState account. Raydium runs several product
// lines under different programs; a size mismatch means the address is not a
// concentrated pool.
func (a *Adapter) DescribePool(ctx context.Context, address string) (*lp.Pool, error) {
	addr, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrValidation, "bad pool address %q", address)
	}

	data, err := a.chain.AccountData(ctx, addr)
	if err != nil {
		return nil, err
	}

	state, err := decodePoolState(data)
	if err != nil {
		return nil, err
	}
	if state.Status != 0 {
		return nil, errors.Wrapf(errors.ErrPoolPaused, "pool %s status %d", address, state.Status)
	}

	sqrtPrice := new(big.Float).SetInt(state.SqrtPriceX64.BigInt())
	sqrtPrice.Quo(sqrtPrice, new(big.Float).SetFloat64(1<<64))
	priceF, _ := new(big.Float).Mul(sqrtPrice, sqrtPrice).Float64()

	return &lp.Pool{
		Address:      address,
		Venue:        lp.VenueCLMM,
		TokenA:       lp.Token{Mint: state.MintA.String(), Decimals: state.MintDecimalsA},
		TokenB:       lp.Token{Mint: state.MintB.String(), Decimals: state.MintDecimalsB},
		Price:        decimal.NewFromFloat(priceF),
		TickSpacing:  state.TickSpacing,
		CurrentIndex: state.TickCurrent,
	}, nil
}

func (a *Adapter) ComputeRange(pool *lp.Pool, shape lp.RangeShape, custom *lp.Range) (lp.Range, error) {
	return venues.ComputeRange(pool, shape, custom)
}

func (a *Adapter) QuoteLiquidity(pool *lp.Pool, rng lp.Range, amountA, amountB uint64, slippageBps uint16) (*venues.LiquidityQuote, error) {
	return venues.QuoteTickLiquidity(pool, rng, amountA, amountB, slippageBps)
}

// BuildOpen builds the combined open_position_v2, which mints the position
// NFT and deposits both sides in one instruction.
func (a *Adapter) BuildOpen(ctx context.Context, req venues.OpenRequest) (*venues.TxPlan, error) {
	poolAddr, err := solana.PublicKeyFromBase58(req.Pool.Address)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrValidation, "bad pool address %q", req.Pool.Address)
	}

	data, err := a.chain.AccountData(ctx, poolAddr)
	if err != nil {
		return nil, err
	}
	state, err := decodePoolState(data)
	if err != nil {
		return nil, err
	}

	var nftMint solana.PrivateKey
	if req.PositionKeypair != nil {
		nftMint = *req.PositionKeypair
	} else {
		nftMint, err = solana.NewRandomPrivateKey()
		if err != nil {
			return nil, errors.Wrap(err, "generate position nft mint")
		}
	}
	mintPub := nftMint.PublicKey()

	nftAccount, _, err := solana.FindAssociatedTokenAddress(req.Owner, mintPub)
	if err != nil {
		return nil, err
	}
	personalPosition, err := personalPositionPDA(mintPub)
	if err != nil {
		return nil, err
	}
	protocolPosition, err := protocolPositionPDA(poolAddr, req.Range.Lower, req.Range.Upper)
	if err != nil {
		return nil, err
	}

	lowerStart := tickArrayStart(req.Range.Lower, state.TickSpacing)
	upperStart := tickArrayStart(req.Range.Upper, state.TickSpacing)
	lowerArray, err := tickArrayPDA(poolAddr, lowerStart)
	if err != nil {
		return nil, err
	}
	upperArray, err := tickArrayPDA(poolAddr, upperStart)
	if err != nil {
		return nil, err
	}

	tokenAccountA, _, err := solana.FindAssociatedTokenAddress(req.Owner, state.MintA)
	if err != nil {
		return nil, err
	}
	tokenAccountB, _, err := solana.FindAssociatedTokenAddress(req.Owner, state.MintB)
	if err != nil {
		return nil, err
	}

	openIx, err := newOpenPositionIx(openPositionAccounts{
		payer:            req.Owner,
		owner:            req.Owner,
		pool:             poolAddr,
		nftMint:          mintPub,
		nftAccount:       nftAccount,
		protocolPosition: protocolPosition,
		personalPosition: personalPosition,
		tickArrayLower:   lowerArray,
		tickArrayUpper:   upperArray,
		tokenAccountA:    tokenAccountA,
		tokenAccountB:    tokenAccountB,
		vaultA:           state.VaultA,
		vaultB:           state.VaultB,
	}, req.Range.Lower, req.Range.Upper, lowerStart, upperStart,
		req.Quote.Liquidity.BigInt(), req.Quote.WorstA, req.Quote.WorstB)
	if err != nil {
		return nil, err
	}

	return &venues.TxPlan{
		Instructions: []solana.Instruction{openIx},
		Signers:      []solana.PrivateKey{nftMint},
	}, nil
}

// BuildDecrease builds decrease_liquidity_v2, which also settles pending
// fees, plus close_position for a full exit.
func (a *Adapter) BuildDecrease(ctx context.Context, req venues.DecreaseRequest) (*venues.TxPlan, error) {
	if req.Bps == 0 || req.Bps > 10000 {
		return nil, errors.Wrapf(errors.ErrValidation, "decrease bps %d out of range", req.Bps)
	}

	accts, pos, err := a.loadPositionContext(ctx, req.Position, req.Pool, req.Owner)
	if err != nil {
		return nil, err
	}

	share := new(big.Int).Mul(pos.Liquidity.BigInt(), big.NewInt(int64(req.Bps)))
	share.Div(share, big.NewInt(10000))

	decIx, err := newDecreaseLiquidityIx(*accts, share, 0, 0)
	if err != nil {
		return nil, err
	}

	plan := &venues.TxPlan{Instructions: []solana.Instruction{decIx}}

	if req.Bps == 10000 && req.CloseIfFull {
		closeIx, err := newClosePositionIx(req.Owner, pos.NftMint, accts.nftAccount, accts.personalPosition)
		if err != nil {
			return nil, err
		}
		plan.Instructions = append(plan.Instructions, closeIx)
	}

	return plan, nil
}

// BuildCollectFees settles fees via a zero-liquidity decrease, which is the
// venue's fee-collection primitive.
func (a *Adapter) BuildCollectFees(ctx context.Context, pos *lp.Position, pool *lp.Pool, owner solana.PublicKey) (*venues.TxPlan, error) {
	accts, _, err := a.loadPositionContext(ctx, pos, pool, owner)
	if err != nil {
		return nil, err
	}

	decIx, err := newDecreaseLiquidityIx(*accts, big.NewInt(0), 0, 0)
	if err != nil {
		return nil, err
	}
	return &venues.TxPlan{Instructions: []solana.Instruction{decIx}}, nil
}

func (a *Adapter) loadPositionContext(ctx context.Context, pos *lp.Position, pool *lp.Pool, owner solana.PublicKey) (*liquidityAccounts, *personalPosition, error) {
	nftMint, err := solana.PublicKeyFromBase58(pos.ID)
	if err != nil {
		return nil, nil, errors.Wrapf(errors.ErrValidation, "bad position nft mint %q", pos.ID)
	}
	poolAddr, err := solana.PublicKeyFromBase58(pool.Address)
	if err != nil {
		return nil, nil, errors.Wrapf(errors.ErrValidation, "bad pool address %q", pool.Address)
	}

	personalPDA, err := personalPositionPDA(nftMint)
	if err != nil {
		return nil, nil, err
	}
	posData, err := a.chain.AccountData(ctx, personalPDA)
	if err != nil {
		return nil, nil, err
	}
	posState, err := decodePersonalPosition(posData)
	if err != nil {
		return nil, nil, err
	}

	poolData, err := a.chain.AccountData(ctx, poolAddr)
	if err != nil {
		return nil, nil, err
	}
	state, err := decodePoolState(poolData)
	if err != nil {
		return nil, nil, err
	}

	protocolPosition, err := protocolPositionPDA(poolAddr, posState.TickLower, posState.TickUpper)
	if err != nil {
		return nil, nil, err
	}
	lowerArray, err := tickArrayPDA(poolAddr, tickArrayStart(posState.TickLower, state.TickSpacing))
	if err != nil {
		return nil, nil, err
	}
	upperArray, err := tickArrayPDA(poolAddr, tickArrayStart(posState.TickUpper, state.TickSpacing))
	if err != nil {
		return nil, nil, err
	}
	nftAccount, _, err := solana.FindAssociatedTokenAddress(owner, nftMint)
	if err != nil {
		return nil, nil, err
	}
	tokenAccountA, _, err := solana.FindAssociatedTokenAddress(owner, state.MintA)
	if err != nil {
		return nil, nil, err
	}
	tokenAccountB, _, err := solana.FindAssociatedTokenAddress(owner, state.MintB)
	if err != nil {
		return nil, nil, err
	}

	return &liquidityAccounts{
		owner:            owner,
		pool:             poolAddr,
		nftAccount:       nftAccount,
		protocolPosition: protocolPosition,
		personalPosition: personalPDA,
		tickArrayLower:   lowerArray,
		tickArrayUpper:   upperArray,
		tokenAccountA:    tokenAccountA,
		tokenAccountB:    tokenAccountB,
		vaultA:           state.VaultA,
		vaultB:           state.VaultB,
	}, posState, nil
}

// EnumeratePositions scans the wallet's token accounts for position-NFT mints
// and reads the derived personal position accounts.
func (a *Adapter) EnumeratePositions(ctx context.Context, wallet solana.PublicKey) ([]*lp.Position, error) {
	tokenAccounts, err := a.chain.TokenAccountsByOwner(ctx, wallet)
	if err != nil {
		return nil, err
	}

	var positions []*lp.Position
	for _, ta := range tokenAccounts {
		if ta.Amount != 1 {
			continue
		}

		pda, err := personalPositionPDA(ta.Mint)
		if err != nil {
			continue
		}

		data, err := a.chain.AccountData(ctx, pda)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				continue
			}
			return nil, err
		}

		state, err := decodePersonalPosition(data)
		if err != nil {
			continue
		}

		poolData, err := a.chain.AccountData(ctx, state.PoolID)
		if err != nil {
			continue
		}
		poolState, err := decodePoolState(poolData)
		if err != nil {
			continue
		}

		rng := lp.Range{Lower: state.TickLower, Upper: state.TickUpper}

		positions = append(positions, &lp.Position{
			ID:         ta.Mint.String(),
			Wallet:     wallet.String(),
			Pool:       state.PoolID.String(),
			Venue:      lp.VenueCLMM,
			Range:      rng,
			PriceLower: decimal.NewFromFloat(venues.PriceFromTick(rng.Lower)),
			PriceUpper: decimal.NewFromFloat(venues.PriceFromTick(rng.Upper)),
			Liquidity:  decimal.NewFromBigInt(state.Liquidity.BigInt(), 0),
			FeesA:      decimal.NewFromUint64(state.FeesOwedA),
			FeesB:      decimal.NewFromUint64(state.FeesOwedB),
			InRange:    rng.Contains(poolState.TickCurrent),
		})
	}

	return positions, nil
}

// ClassifyProgramError maps CLMM custom error codes onto the engine taxonomy.
func (a *Adapter) ClassifyProgramError(code uint32) error {
	switch code {
	case errPriceSlippage, errTooLittleOutput:
		return errors.Wrapf(errors.ErrSlippageExceeded, "clmm error %d", code)
	case errPoolDisabled:
		return errors.Wrapf(errors.ErrPoolPaused, "clmm error %d", code)
	case errInvalidTickRange:
		return errors.Wrapf(errors.ErrValidation, "clmm error %d", code)
	case errNotApproved:
		return errors.Wrapf(errors.ErrSignRefused, "clmm error %d", code)
	case 1:
		return errors.Wrapf(errors.ErrInsufficientFunds, "clmm error %d", code)
	default:
		return errors.Wrapf(errors.ErrInternal, "clmm program error %d", code)
	}
}
