package whirlpool

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

// Adapter implements the venue operation set for Orca Whirlpools.
type Adapter struct {
	chain venues.ChainReader
	log   *logger.Logger
}

// New creates the Whirlpool adapter.
func New(chain venues.ChainReader) *Adapter {
	return &Adapter{
		chain: chain,
		log:   logger.Get().With("component", "venue_whirlpool"),
	}
}

func (a *Adapter) Venue() lp.Venue { return lp.VenueWhirlpool }

// DescribePool reads the whirlpool account. Price is reported in raw native
// units (B per A); the aggregator layers symbols and decimals from the index.
func (a *Adapter) DescribePool(ctx context.Context, address string) (*lp.Pool, error) {
	addr, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrValidation, "bad pool address %q", address)
	}

	data, err := a.chain.AccountData(ctx, addr)
	if err != nil {
		return nil, err
	}

	state, err := decodeWhirlpool(data)
	if err != nil {
		return nil, err
	}

	sqrtPrice := new(big.Float).SetInt(state.SqrtPrice.BigInt())
	sqrtPrice.Quo(sqrtPrice, new(big.Float).SetFloat64(1<<64))
	priceF, _ := new(big.Float).Mul(sqrtPrice, sqrtPrice).Float64()

	return &lp.Pool{
		Address:      address,
		Venue:        lp.VenueWhirlpool,
		TokenA:       lp.Token{Mint: state.TokenMintA.String()},
		TokenB:       lp.Token{Mint: state.TokenMintB.String()},
		Price:        decimal.NewFromFloat(priceF),
		TickSpacing:  state.TickSpacing,
		CurrentIndex: state.TickCurrent,
		FeeBps:       state.FeeRate / 100, // fee rate is in hundredths of a bp
	}, nil
}

func (a *Adapter) ComputeRange(pool *lp.Pool, shape lp.RangeShape, custom *lp.Range) (lp.Range, error) {
	return venues.ComputeRange(pool, shape, custom)
}

func (a *Adapter) QuoteLiquidity(pool *lp.Pool, rng lp.Range, amountA, amountB uint64, slippageBps uint16) (*venues.LiquidityQuote, error) {
	return venues.QuoteTickLiquidity(pool, rng, amountA, amountB, slippageBps)
}

// BuildOpen builds open_position, tick-array initialization where missing,
// and increase_liquidity.
func (a *Adapter) BuildOpen(ctx context.Context, req venues.OpenRequest) (*venues.TxPlan, error) {
	poolAddr, err := solana.PublicKeyFromBase58(req.Pool.Address)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrValidation, "bad pool address %q", req.Pool.Address)
	}

	data, err := a.chain.AccountData(ctx, poolAddr)
	if err != nil {
		return nil, err
	}
	state, err := decodeWhirlpool(data)
	if err != nil {
		return nil, err
	}

	var positionMint solana.PrivateKey
	if req.PositionKeypair != nil {
		positionMint = *req.PositionKeypair
	} else {
		positionMint, err = solana.NewRandomPrivateKey()
		if err != nil {
			return nil, errors.Wrap(err, "generate position mint")
		}
	}
	mintPub := positionMint.PublicKey()

	position, err := positionPDA(mintPub)
	if err != nil {
		return nil, errors.Wrap(err, "derive position pda")
	}
	positionTokenAccount, _, err := solana.FindAssociatedTokenAddress(req.Owner, mintPub)
	if err != nil {
		return nil, errors.Wrap(err, "derive position token account")
	}

	plan := &venues.TxPlan{Signers: []solana.PrivateKey{positionMint}}

	openIx, err := newOpenPositionIx(req.Owner, req.Owner, position, mintPub, positionTokenAccount, req.Range.Lower, req.Range.Upper)
	if err != nil {
		return nil, err
	}
	plan.Instructions = append(plan.Instructions, openIx)

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

	for _, arr := range a.missingTickArrays(ctx, poolAddr, []tickArrayRef{
		{addr: lowerArray, start: lowerStart},
		{addr: upperArray, start: upperStart},
	}) {
		initIx, err := newInitTickArrayIx(poolAddr, req.Owner, arr.addr, arr.start)
		if err != nil {
			return nil, err
		}
		plan.Instructions = append(plan.Instructions, initIx)
	}

	ownerA, _, err := solana.FindAssociatedTokenAddress(req.Owner, state.TokenMintA)
	if err != nil {
		return nil, err
	}
	ownerB, _, err := solana.FindAssociatedTokenAddress(req.Owner, state.TokenMintB)
	if err != nil {
		return nil, err
	}

	liquidity := req.Quote.Liquidity.BigInt()
	incIx, err := newIncreaseLiquidityIx(liquidityAccounts{
		pool:                 poolAddr,
		owner:                req.Owner,
		position:             position,
		positionTokenAccount: positionTokenAccount,
		ownerAccountA:        ownerA,
		ownerAccountB:        ownerB,
		vaultA:               state.TokenVaultA,
		vaultB:               state.TokenVaultB,
		tickArrayLower:       lowerArray,
		tickArrayUpper:       upperArray,
	}, liquidity, req.Quote.WorstA, req.Quote.WorstB)
	if err != nil {
		return nil, err
	}
	plan.Instructions = append(plan.Instructions, incIx)

	return plan, nil
}

type tickArrayRef struct {
	addr  solana.PublicKey
	start int32
}

// missingTickArrays returns the refs whose accounts do not exist yet.
func (a *Adapter) missingTickArrays(ctx context.Context, pool solana.PublicKey, refs []tickArrayRef) []tickArrayRef {
	missing := make([]tickArrayRef, 0, len(refs))
	seen := map[solana.PublicKey]bool{}
	for _, ref := range refs {
		if seen[ref.addr] {
			continue
		}
		seen[ref.addr] = true
		if _, err := a.chain.AccountData(ctx, ref.addr); errors.Is(err, errors.ErrNotFound) {
			missing = append(missing, ref)
		}
	}
	return missing
}

// BuildDecrease builds update_fees_and_rewards, decrease_liquidity, and, for a
// full close, collect_fees + close_position.
func (a *Adapter) BuildDecrease(ctx context.Context, req venues.DecreaseRequest) (*venues.TxPlan, error) {
	if req.Bps == 0 || req.Bps > 10000 {
		return nil, errors.Wrapf(errors.ErrValidation, "decrease bps %d out of range", req.Bps)
	}

	ctxData, err := a.loadPositionContext(ctx, req.Position, req.Pool, req.Owner)
	if err != nil {
		return nil, err
	}

	plan := &venues.TxPlan{}

	updIx, err := newUpdateFeesAndRewardsIx(ctxData.pool, ctxData.position, ctxData.tickArrayLower, ctxData.tickArrayUpper)
	if err != nil {
		return nil, err
	}
	plan.Instructions = append(plan.Instructions, updIx)

	share := new(big.Int).Mul(ctxData.liquidity, big.NewInt(int64(req.Bps)))
	share.Div(share, big.NewInt(10000))

	decIx, err := newDecreaseLiquidityIx(ctxData.accounts, share, 0, 0)
	if err != nil {
		return nil, err
	}
	plan.Instructions = append(plan.Instructions, decIx)

	if req.Bps == 10000 && req.CloseIfFull {
		collectIx, err := newCollectFeesIx(ctxData.pool, req.Owner, ctxData.position, ctxData.accounts.positionTokenAccount,
			ctxData.accounts.ownerAccountA, ctxData.accounts.vaultA, ctxData.accounts.ownerAccountB, ctxData.accounts.vaultB)
		if err != nil {
			return nil, err
		}
		closeIx, err := newClosePositionIx(req.Owner, req.Owner, ctxData.position, ctxData.mint, ctxData.accounts.positionTokenAccount)
		if err != nil {
			return nil, err
		}
		plan.Instructions = append(plan.Instructions, collectIx, closeIx)
	}

	return plan, nil
}

// BuildCollectFees emits the required update_fees_and_rewards first.
func (a *Adapter) BuildCollectFees(ctx context.Context, pos *lp.Position, pool *lp.Pool, owner solana.PublicKey) (*venues.TxPlan, error) {
	ctxData, err := a.loadPositionContext(ctx, pos, pool, owner)
	if err != nil {
		return nil, err
	}

	updIx, err := newUpdateFeesAndRewardsIx(ctxData.pool, ctxData.position, ctxData.tickArrayLower, ctxData.tickArrayUpper)
	if err != nil {
		return nil, err
	}
	collectIx, err := newCollectFeesIx(ctxData.pool, owner, ctxData.position, ctxData.accounts.positionTokenAccount,
		ctxData.accounts.ownerAccountA, ctxData.accounts.vaultA, ctxData.accounts.ownerAccountB, ctxData.accounts.vaultB)
	if err != nil {
		return nil, err
	}

	return &venues.TxPlan{Instructions: []solana.Instruction{updIx, collectIx}}, nil
}

type positionContext struct {
	pool           solana.PublicKey
	position       solana.PublicKey
	mint           solana.PublicKey
	liquidity      *big.Int
	tickArrayLower solana.PublicKey
	tickArrayUpper solana.PublicKey
	accounts       liquidityAccounts
}

func (a *Adapter) loadPositionContext(ctx context.Context, pos *lp.Position, pool *lp.Pool, owner solana.PublicKey) (*positionContext, error) {
	mint, err := solana.PublicKeyFromBase58(pos.ID)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrValidation, "bad position mint %q", pos.ID)
	}
	poolAddr, err := solana.PublicKeyFromBase58(pool.Address)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrValidation, "bad pool address %q", pool.Address)
	}

	position, err := positionPDA(mint)
	if err != nil {
		return nil, err
	}

	posData, err := a.chain.AccountData(ctx, position)
	if err != nil {
		return nil, err
	}
	posState, err := decodePosition(posData)
	if err != nil {
		return nil, err
	}

	poolData, err := a.chain.AccountData(ctx, poolAddr)
	if err != nil {
		return nil, err
	}
	poolState, err := decodeWhirlpool(poolData)
	if err != nil {
		return nil, err
	}

	lowerArray, err := tickArrayPDA(poolAddr, tickArrayStart(posState.TickLower, poolState.TickSpacing))
	if err != nil {
		return nil, err
	}
	upperArray, err := tickArrayPDA(poolAddr, tickArrayStart(posState.TickUpper, poolState.TickSpacing))
	if err != nil {
		return nil, err
	}

	positionTokenAccount, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, err
	}
	ownerA, _, err := solana.FindAssociatedTokenAddress(owner, poolState.TokenMintA)
	if err != nil {
		return nil, err
	}
	ownerB, _, err := solana.FindAssociatedTokenAddress(owner, poolState.TokenMintB)
	if err != nil {
		return nil, err
	}

	return &positionContext{
		pool:           poolAddr,
		position:       position,
		mint:           mint,
		liquidity:      posState.Liquidity.BigInt(),
		tickArrayLower: lowerArray,
		tickArrayUpper: upperArray,
		accounts: liquidityAccounts{
			pool:                 poolAddr,
			owner:                owner,
			position:             position,
			positionTokenAccount: positionTokenAccount,
			ownerAccountA:        ownerA,
			ownerAccountB:        ownerB,
			vaultA:               poolState.TokenVaultA,
			vaultB:               poolState.TokenVaultB,
			tickArrayLower:       lowerArray,
			tickArrayUpper:       upperArray,
		},
	}, nil
}

// EnumeratePositions scans the wallet's token accounts for position-NFT mints
// and reads the derived position accounts.
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

		pda, err := positionPDA(ta.Mint)
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

		state, err := decodePosition(data)
		if err != nil {
			continue
		}

		poolData, err := a.chain.AccountData(ctx, state.Whirlpool)
		if err != nil {
			continue
		}
		poolState, err := decodeWhirlpool(poolData)
		if err != nil {
			continue
		}

		rng := lp.Range{Lower: state.TickLower, Upper: state.TickUpper}
		priceLower := decimal.NewFromFloat(venues.PriceFromTick(rng.Lower))
		priceUpper := decimal.NewFromFloat(venues.PriceFromTick(rng.Upper))

		positions = append(positions, &lp.Position{
			ID:         ta.Mint.String(),
			Wallet:     wallet.String(),
			Pool:       state.Whirlpool.String(),
			Venue:      lp.VenueWhirlpool,
			Range:      rng,
			PriceLower: priceLower,
			PriceUpper: priceUpper,
			Liquidity:  decimal.NewFromBigInt(state.Liquidity.BigInt(), 0),
			FeesA:      decimal.NewFromUint64(state.FeeOwedA),
			FeesB:      decimal.NewFromUint64(state.FeeOwedB),
			InRange:    rng.Contains(poolState.TickCurrent),
		})
	}

	return positions, nil
}

// ClassifyProgramError maps whirlpool custom error codes onto the engine
// taxonomy.
func (a *Adapter) ClassifyProgramError(code uint32) error {
	switch code {
	case errTokenMaxExceeded, errTokenMinSubceeded:
		return errors.Wrapf(errors.ErrSlippageExceeded, "whirlpool error %d", code)
	case errPoolPausedCode:
		return errors.Wrapf(errors.ErrPoolPaused, "whirlpool error %d", code)
	case errInsufficientFundsC:
		return errors.Wrapf(errors.ErrInsufficientFunds, "whirlpool error %d", code)
	case errLiquidityZero, errInvalidTickIndex:
		return errors.Wrapf(errors.ErrValidation, "whirlpool error %d", code)
	default:
		return errors.Wrapf(errors.ErrInternal, "whirlpool program error %d", code)
	}
}
