package dlmm

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"poseidon/internal/domain/lp"
	"poseidon/internal/venues"
	"poseidon/pkg/errors"
	"poseidon/pkg/logger"
)

// Adapter implements the venue operation set for Meteora DLMM. Positions are
// plain program accounts owned by the wallet, not NFTs.
type Adapter struct {
	chain venues.ChainReader
	log   *logger.Logger
}

// New creates the DLMM adapter.
func New(chain venues.ChainReader) *Adapter {
	return &Adapter{
		chain: chain,
		log:   logger.Get().With("component", "venue_dlmm"),
	}
}

func (a *Adapter) Venue() lp.Venue { return lp.VenueDLMM }

// DescribePool reads the LbPair account.
func (a *Adapter) DescribePool(ctx context.Context, address string) (*lp.Pool, error) {
	addr, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrValidation, "bad pool address %q", address)
	}

	data, err := a.chain.AccountData(ctx, addr)
	if err != nil {
		return nil, err
	}

	state, err := decodeLbPair(data)
	if err != nil {
		return nil, err
	}
	if state.Status != 0 {
		return nil, errors.Wrapf(errors.ErrPoolPaused, "pair %s status %d", address, state.Status)
	}

	return &lp.Pool{
		Address:      address,
		Venue:        lp.VenueDLMM,
		TokenA:       lp.Token{Mint: state.TokenXMint.String()},
		TokenB:       lp.Token{Mint: state.TokenYMint.String()},
		Price:        decimal.NewFromFloat(venues.BinPrice(state.ActiveID, state.BinStep)),
		BinStep:      state.BinStep,
		CurrentIndex: state.ActiveID,
	}, nil
}

func (a *Adapter) ComputeRange(pool *lp.Pool, shape lp.RangeShape, custom *lp.Range) (lp.Range, error) {
	return venues.ComputeRange(pool, shape, custom)
}

func (a *Adapter) QuoteLiquidity(pool *lp.Pool, rng lp.Range, amountA, amountB uint64, slippageBps uint16) (*venues.LiquidityQuote, error) {
	return venues.QuoteBinLiquidity(pool, rng, amountA, amountB, slippageBps)
}

// BuildOpen builds initialize_position, bin-array initialization where
// missing, and add_liquidity_by_strategy with the requested distribution.
func (a *Adapter) BuildOpen(ctx context.Context, req venues.OpenRequest) (*venues.TxPlan, error) {
	pairAddr, err := solana.PublicKeyFromBase58(req.Pool.Address)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrValidation, "bad pool address %q", req.Pool.Address)
	}

	data, err := a.chain.AccountData(ctx, pairAddr)
	if err != nil {
		return nil, err
	}
	state, err := decodeLbPair(data)
	if err != nil {
		return nil, err
	}

	var position solana.PrivateKey
	if req.PositionKeypair != nil {
		position = *req.PositionKeypair
	} else {
		position, err = solana.NewRandomPrivateKey()
		if err != nil {
			return nil, errors.Wrap(err, "generate position account")
		}
	}
	positionPub := position.PublicKey()

	plan := &venues.TxPlan{Signers: []solana.PrivateKey{position}}

	initIx, err := newInitializePositionIx(req.Owner, positionPub, pairAddr, req.Owner, req.Range.Lower, req.Range.Width()+1)
	if err != nil {
		return nil, err
	}
	plan.Instructions = append(plan.Instructions, initIx)

	lowerIdx := binArrayIndex(req.Range.Lower)
	upperIdx := binArrayIndex(req.Range.Upper)
	lowerArray, err := binArrayPDA(pairAddr, lowerIdx)
	if err != nil {
		return nil, err
	}
	upperArray, err := binArrayPDA(pairAddr, upperIdx)
	if err != nil {
		return nil, err
	}

	initialized := map[int64]solana.PublicKey{lowerIdx: lowerArray, upperIdx: upperArray}
	for idx, arr := range initialized {
		if _, err := a.chain.AccountData(ctx, arr); errors.Is(err, errors.ErrNotFound) {
			arrIx, err := newInitializeBinArrayIx(req.Owner, pairAddr, arr, idx)
			if err != nil {
				return nil, err
			}
			plan.Instructions = append(plan.Instructions, arrIx)
		}
	}

	userTokenX, _, err := solana.FindAssociatedTokenAddress(req.Owner, state.TokenXMint)
	if err != nil {
		return nil, err
	}
	userTokenY, _, err := solana.FindAssociatedTokenAddress(req.Owner, state.TokenYMint)
	if err != nil {
		return nil, err
	}

	accts := liquidityAccounts{
		position:      positionPub,
		pair:          pairAddr,
		userTokenX:    userTokenX,
		userTokenY:    userTokenY,
		reserveX:      state.ReserveX,
		reserveY:      state.ReserveY,
		tokenXMint:    state.TokenXMint,
		tokenYMint:    state.TokenYMint,
		binArrayLower: lowerArray,
		binArrayUpper: upperArray,
		owner:         req.Owner,
	}

	// The active bin may drift between quote and execution; the allowance is
	// a fixed 3 bins, independent of the slippage bound.
	maxSlippageBins := int32(3)

	addIx, err := newAddLiquidityByStrategyIx(accts, req.AmountA, req.AmountB, state.ActiveID, maxSlippageBins, req.Range, strategyType(req.Distribution))
	if err != nil {
		return nil, err
	}
	plan.Instructions = append(plan.Instructions, addIx)

	return plan, nil
}

// BuildDecrease builds remove_liquidity_by_range; a full removal with
// CloseIfFull appends claim_fee and close_position.
func (a *Adapter) BuildDecrease(ctx context.Context, req venues.DecreaseRequest) (*venues.TxPlan, error) {
	if req.Bps == 0 || req.Bps > 10000 {
		return nil, errors.Wrapf(errors.ErrValidation, "decrease bps %d out of range", req.Bps)
	}

	accts, state, err := a.loadPositionContext(ctx, req.Position, req.Owner)
	if err != nil {
		return nil, err
	}

	removeIx, err := newRemoveLiquidityByRangeIx(*accts, state.LowerBinID, state.UpperBinID, req.Bps)
	if err != nil {
		return nil, err
	}

	plan := &venues.TxPlan{Instructions: []solana.Instruction{removeIx}}

	if req.Bps == 10000 && req.CloseIfFull {
		claimIx, err := newClaimFeeIx(accts.pair, accts.position, req.Owner, accts.binArrayLower, accts.binArrayUpper,
			accts.reserveX, accts.reserveY, accts.userTokenX, accts.userTokenY, accts.tokenXMint, accts.tokenYMint)
		if err != nil {
			return nil, err
		}
		closeIx, err := newClosePositionIx(accts.position, accts.pair, accts.binArrayLower, accts.binArrayUpper, req.Owner, req.Owner)
		if err != nil {
			return nil, err
		}
		plan.Instructions = append(plan.Instructions, claimIx, closeIx)
	}

	return plan, nil
}

// BuildCollectFees builds claim_fee. DLMM settles fees on claim, so no
// separate update step is required.
func (a *Adapter) BuildCollectFees(ctx context.Context, pos *lp.Position, pool *lp.Pool, owner solana.PublicKey) (*venues.TxPlan, error) {
	accts, _, err := a.loadPositionContext(ctx, pos, owner)
	if err != nil {
		return nil, err
	}

	claimIx, err := newClaimFeeIx(accts.pair, accts.position, owner, accts.binArrayLower, accts.binArrayUpper,
		accts.reserveX, accts.reserveY, accts.userTokenX, accts.userTokenY, accts.tokenXMint, accts.tokenYMint)
	if err != nil {
		return nil, err
	}
	return &venues.TxPlan{Instructions: []solana.Instruction{claimIx}}, nil
}

func (a *Adapter) loadPositionContext(ctx context.Context, pos *lp.Position, owner solana.PublicKey) (*liquidityAccounts, *positionState, error) {
	positionAddr, err := solana.PublicKeyFromBase58(pos.ID)
	if err != nil {
		return nil, nil, errors.Wrapf(errors.ErrValidation, "bad position address %q", pos.ID)
	}

	posData, err := a.chain.AccountData(ctx, positionAddr)
	if err != nil {
		return nil, nil, err
	}
	state, err := decodePosition(posData)
	if err != nil {
		return nil, nil, err
	}

	pairData, err := a.chain.AccountData(ctx, state.LbPair)
	if err != nil {
		return nil, nil, err
	}
	pair, err := decodeLbPair(pairData)
	if err != nil {
		return nil, nil, err
	}

	lowerArray, err := binArrayPDA(state.LbPair, binArrayIndex(state.LowerBinID))
	if err != nil {
		return nil, nil, err
	}
	upperArray, err := binArrayPDA(state.LbPair, binArrayIndex(state.UpperBinID))
	if err != nil {
		return nil, nil, err
	}

	userTokenX, _, err := solana.FindAssociatedTokenAddress(owner, pair.TokenXMint)
	if err != nil {
		return nil, nil, err
	}
	userTokenY, _, err := solana.FindAssociatedTokenAddress(owner, pair.TokenYMint)
	if err != nil {
		return nil, nil, err
	}

	return &liquidityAccounts{
		position:      positionAddr,
		pair:          state.LbPair,
		userTokenX:    userTokenX,
		userTokenY:    userTokenY,
		reserveX:      pair.ReserveX,
		reserveY:      pair.ReserveY,
		tokenXMint:    pair.TokenXMint,
		tokenYMint:    pair.TokenYMint,
		binArrayLower: lowerArray,
		binArrayUpper: upperArray,
		owner:         owner,
	}, state, nil
}

// EnumeratePositions reads the wallet's PositionV2 accounts by owner under
// the program.
func (a *Adapter) EnumeratePositions(ctx context.Context, wallet solana.PublicKey) ([]*lp.Position, error) {
	accounts, err := a.chain.ProgramAccounts(ctx, ProgramID, positionAccountLen, posOffOwner, wallet)
	if err != nil {
		return nil, err
	}

	var positions []*lp.Position
	for _, acct := range accounts {
		state, err := decodePosition(acct.Data)
		if err != nil {
			continue
		}

		pairData, err := a.chain.AccountData(ctx, state.LbPair)
		if err != nil {
			continue
		}
		pair, err := decodeLbPair(pairData)
		if err != nil {
			continue
		}

		rng := lp.Range{Lower: state.LowerBinID, Upper: state.UpperBinID}

		positions = append(positions, &lp.Position{
			ID:         acct.Address.String(),
			Wallet:     wallet.String(),
			Pool:       state.LbPair.String(),
			Venue:      lp.VenueDLMM,
			Range:      rng,
			PriceLower: decimal.NewFromFloat(venues.BinPrice(rng.Lower, pair.BinStep)),
			PriceUpper: decimal.NewFromFloat(venues.BinPrice(rng.Upper, pair.BinStep)),
			FeesA:      decimal.NewFromUint64(state.FeeXPending),
			FeesB:      decimal.NewFromUint64(state.FeeYPending),
			InRange:    rng.Contains(pair.ActiveID),
		})
	}

	return positions, nil
}

// ClassifyProgramError maps DLMM custom error codes onto the engine taxonomy.
func (a *Adapter) ClassifyProgramError(code uint32) error {
	switch code {
	case errExceededAmountSlippage, errExceededBinSlippage:
		return errors.Wrapf(errors.ErrSlippageExceeded, "dlmm error %d", code)
	case errPairDisabled:
		return errors.Wrapf(errors.ErrPoolPaused, "dlmm error %d", code)
	case errInvalidPosition:
		return errors.Wrapf(errors.ErrValidation, "dlmm error %d", code)
	case 1:
		return errors.Wrapf(errors.ErrInsufficientFunds, "dlmm error %d", code)
	default:
		return errors.Wrapf(errors.ErrInternal, "dlmm program error %d", code)
	}
}
