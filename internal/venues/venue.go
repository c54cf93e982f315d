package venues

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"poseidon/internal/domain/lp"
	"poseidon/pkg/errors"
)

// LiquidityQuote is the result of sizing a deposit against a range.
// Worst-case amounts reflect the slippage bound: on tick venues it is applied
// on the sqrt-price, matching how the on-chain checks are evaluated; on DLMM
// the input amounts are scaled up by it.
type LiquidityQuote struct {
	Liquidity decimal.Decimal

	ExpectedA uint64
	ExpectedB uint64
	WorstA    uint64
	WorstB    uint64
}

// OpenRequest describes an open+add-liquidity build.
type OpenRequest struct {
	Pool         *lp.Pool
	Range        lp.Range
	AmountA      uint64
	AmountB      uint64
	Quote        *LiquidityQuote
	Owner        solana.PublicKey
	Distribution lp.Distribution // DLMM only

	// PositionKeypair, when set, is used for the new position account/mint
	// instead of generating one (the rebalance pipeline pre-generates it so
	// the secret can be handed to the custody oracle).
	PositionKeypair *solana.PrivateKey
}

// DecreaseRequest describes a decrease-liquidity build.
type DecreaseRequest struct {
	Position    *lp.Position
	Pool        *lp.Pool
	Bps         uint16 // share of liquidity to remove, 10000 = all
	CloseIfFull bool
	Owner       solana.PublicKey
}

// TxPlan is an ordered instruction list plus any auxiliary keypairs the
// instructions require (e.g. a freshly generated position account).
type TxPlan struct {
	Instructions []solana.Instruction
	Signers      []solana.PrivateKey
}

// Adapter is the per-venue operation set. The composer selects the
// implementation by venue tag.
type Adapter interface {
	Venue() lp.Venue

	// DescribePool reads the pool account and returns the canonical Pool.
	DescribePool(ctx context.Context, address string) (*lp.Pool, error)

	// ComputeRange derives the venue-native index bounds for a shape.
	// CUSTOM ranges are validated against the pool's grid.
	ComputeRange(pool *lp.Pool, shape lp.RangeShape, custom *lp.Range) (lp.Range, error)

	// QuoteLiquidity sizes a deposit for the range and input amounts.
	QuoteLiquidity(pool *lp.Pool, rng lp.Range, amountA, amountB uint64, slippageBps uint16) (*LiquidityQuote, error)

	// BuildOpen builds the open+add-liquidity instructions, including any
	// tick/bin-array initialization the venue requires.
	BuildOpen(ctx context.Context, req OpenRequest) (*TxPlan, error)

	// BuildDecrease builds decrease instructions; removing 10000 bps with
	// CloseIfFull also closes the position account/NFT.
	BuildDecrease(ctx context.Context, req DecreaseRequest) (*TxPlan, error)

	// BuildCollectFees builds fee-collection instructions, preceded by an
	// on-chain fee update where the venue requires one.
	BuildCollectFees(ctx context.Context, pos *lp.Position, pool *lp.Pool, owner solana.PublicKey) (*TxPlan, error)

	// EnumeratePositions lists the wallet's open positions on this venue.
	EnumeratePositions(ctx context.Context, wallet solana.PublicKey) ([]*lp.Position, error)

	// ClassifyProgramError maps a custom program error code from a failed
	// simulation onto the engine error taxonomy.
	ClassifyProgramError(code uint32) error
}

// Registry resolves adapters by venue tag.
type Registry struct {
	adapters map[lp.Venue]Adapter
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[lp.Venue]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Venue()] = a
	}
	return &Registry{adapters: m}
}

// ForVenue returns the adapter for the tag.
func (r *Registry) ForVenue(v lp.Venue) (Adapter, error) {
	a, ok := r.adapters[v]
	if !ok {
		return nil, errors.Wrapf(errors.ErrValidation, "unknown venue %q", v)
	}
	return a, nil
}

// All returns every registered adapter.
func (r *Registry) All() []Adapter {
	out := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	return out
}
