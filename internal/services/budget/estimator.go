package budget

import (
	"context"
	"math"
	"sort"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"

	"poseidon/internal/adapters/solanarpc"
	"poseidon/internal/domain/lp"
	"poseidon/pkg/logger"
)

const (
	// Compute-unit sizing: simulated consumption padded by 30%, clamped.
	unitHeadroom = 1.3
	minUnitLimit = 50_000
	maxUnitLimit = 1_400_000

	// DefaultUnitLimit is used when simulation fails or reports zero.
	DefaultUnitLimit = 400_000

	// Priority-fee floor in micro-lamports.
	minUnitPrice = 1_000
)

// Budget is the compute sizing for one transaction.
type Budget struct {
	UnitLimit uint32
	UnitPrice uint64 // micro-lamports per unit
}

// Estimator simulates transactions to size their compute budget and derives
// priority fees from recent network activity on the writable accounts.
type Estimator struct {
	rpc *solanarpc.Client
	log *logger.Logger
}

// NewEstimator creates the estimator.
func NewEstimator(rpc *solanarpc.Client) *Estimator {
	return &Estimator{
		rpc: rpc,
		log: logger.Get().With("component", "budget_estimator"),
	}
}

// Estimate simulates the transaction and sizes its budget. Simulation
// failures fall back to the default unit limit rather than failing the
// pipeline. A simulation that returns a program error also gets the default
// limit; the error code is not classified or returned.
func (e *Estimator) Estimate(ctx context.Context, tx *solana.Transaction, urgency lp.FeeUrgency) (*Budget, error) {
	limit := uint32(DefaultUnitLimit)

	sim, err := e.rpc.Simulate(ctx, tx)
	if err != nil {
		e.log.Warnw("simulation unavailable, using default unit limit", "error", err)
	} else if sim.Err == nil && sim.UnitsConsumed > 0 {
		padded := uint64(math.Ceil(float64(sim.UnitsConsumed) * unitHeadroom))
		if padded < minUnitLimit {
			padded = minUnitLimit
		}
		if padded > maxUnitLimit {
			padded = maxUnitLimit
		}
		limit = uint32(padded)
	}

	price, err := e.priorityFee(ctx, tx, urgency)
	if err != nil {
		e.log.Warnw("priority fee lookup failed, using floor", "error", err)
		price = minUnitPrice
	}

	return &Budget{UnitLimit: limit, UnitPrice: price}, nil
}

// priorityFee takes the urgency percentile of recent prioritization fees
// restricted to the transaction's writable accounts.
func (e *Estimator) priorityFee(ctx context.Context, tx *solana.Transaction, urgency lp.FeeUrgency) (uint64, error) {
	writable := writableAccounts(tx)

	fees, err := e.rpc.RecentPrioritizationFees(ctx, writable)
	if err != nil {
		return 0, err
	}
	if len(fees) == 0 {
		return minUnitPrice, nil
	}

	sort.Slice(fees, func(i, j int) bool { return fees[i] < fees[j] })

	fee := fees[percentileIndex(len(fees), percentileFor(urgency))]
	if fee < minUnitPrice {
		fee = minUnitPrice
	}
	return fee, nil
}

func percentileFor(urgency lp.FeeUrgency) int {
	switch urgency {
	case lp.FeeLow:
		return 25
	case lp.FeeHigh:
		return 75
	case lp.FeeCritical:
		return 90
	default:
		return 50
	}
}

func percentileIndex(n, pct int) int {
	idx := n * pct / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

func writableAccounts(tx *solana.Transaction) []solana.PublicKey {
	msg := tx.Message
	var out []solana.PublicKey
	for i, key := range msg.AccountKeys {
		writable, err := msg.IsWritable(key)
		if err != nil {
			continue
		}
		if writable && !key.Equals(computebudget.ProgramID) {
			out = append(out, msg.AccountKeys[i])
		}
	}
	return out
}

// Apply rebuilds the transaction's instruction list with the two
// compute-budget instructions prepended, dropping any pre-existing
// compute-budget instructions.
func Apply(instructions []solana.Instruction, b *Budget) []solana.Instruction {
	filtered := make([]solana.Instruction, 0, len(instructions)+2)
	for _, ix := range instructions {
		if ix.ProgramID().Equals(computebudget.ProgramID) {
			continue
		}
		filtered = append(filtered, ix)
	}

	out := make([]solana.Instruction, 0, len(filtered)+2)
	out = append(out,
		computebudget.NewSetComputeUnitLimitInstruction(b.UnitLimit).Build(),
		computebudget.NewSetComputeUnitPriceInstruction(b.UnitPrice).Build(),
	)
	out = append(out, filtered...)
	return out
}
