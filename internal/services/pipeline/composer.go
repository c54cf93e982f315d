package pipeline

import (
	"context"
	"encoding/base64"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/google/uuid"

	"poseidon/internal/adapters/relay"
	"poseidon/internal/adapters/solanarpc"
	"poseidon/internal/adapters/swaprouter"
	"poseidon/internal/domain/lp"
	"poseidon/internal/services/budget"
	"poseidon/internal/services/oracle"
	"poseidon/internal/services/sealer"
	"poseidon/internal/services/submit"
	"poseidon/internal/venues"
	"poseidon/pkg/errors"
	"poseidon/pkg/logger"
)

// slippageLadder is the composer-level escalation sequence in bps. The loop
// exhausts after the last step.
var slippageLadder = []uint16{300, 500, 750, 1000}

// tipSchedule maps urgency onto the relay tip in lamports.
var tipSchedule = map[lp.Urgency]uint64{
	lp.UrgencyFast:  200_000,
	lp.UrgencyTurbo: 1_000_000,
}

// Receipt is the terminal record of one executed intent.
type Receipt struct {
	RequestID    string             `json:"requestId"`
	Kind         string             `json:"kind"`
	Wallet       string             `json:"wallet"`
	Pool         string             `json:"pool,omitempty"`
	Range        *lp.Range          `json:"range,omitempty"`
	SlippageUsed uint16             `json:"slippageUsed,omitempty"`
	Sealed       *lp.SealedStrategy `json:"sealed,omitempty"`
	Result       *submit.Result     `json:"result"`
	Converted    bool               `json:"converted,omitempty"`
	Reason       string             `json:"reason,omitempty"`
	PositionID   string             `json:"positionId,omitempty"`
}

// Composer assembles ordered transaction lists for high-level intents and
// drives them through the submission driver, owning the slippage-escalation
// loop.
type Composer struct {
	registry *venues.Registry
	oracle   *oracle.Aggregator
	budget   *budget.Estimator
	router   *swaprouter.Client
	relay    *relay.Client
	rpc      *solanarpc.Client
	driver   *submit.Driver
	sealer   *sealer.Sealer

	treasury solana.PublicKey
	feeBps   uint64

	log *logger.Logger
}

// NewComposer wires the composer.
func NewComposer(
	registry *venues.Registry,
	oracleAgg *oracle.Aggregator,
	estimator *budget.Estimator,
	router *swaprouter.Client,
	relayClient *relay.Client,
	rpc *solanarpc.Client,
	driver *submit.Driver,
	seal *sealer.Sealer,
	treasury solana.PublicKey,
	feeBps uint64,
) *Composer {
	return &Composer{
		registry: registry,
		oracle:   oracleAgg,
		budget:   estimator,
		router:   router,
		relay:    relayClient,
		rpc:      rpc,
		driver:   driver,
		sealer:   seal,
		treasury: treasury,
		feeBps:   feeBps,
		log:      logger.Get().With("component", "pipeline"),
	}
}

// gatePrices aborts the pipeline when either pool token's aggregate is
// unreliable.
func (c *Composer) gatePrices(ctx context.Context, pool *lp.Pool) error {
	for _, mint := range []string{pool.TokenA.Mint, pool.TokenB.Mint} {
		price, err := c.oracle.Price(ctx, mint)
		if err != nil {
			return err
		}
		if price.Unreliable {
			return errors.Wrapf(errors.ErrOracleUnreliable, "mint %s", mint)
		}
	}
	return nil
}

// feeUrgency maps tip urgency onto the priority-fee percentile tier.
func feeUrgency(u lp.Urgency) lp.FeeUrgency {
	switch u {
	case lp.UrgencyTurbo:
		return lp.FeeCritical
	case lp.UrgencySkip:
		return lp.FeeMedium
	default:
		return lp.FeeHigh
	}
}

// finalize sizes the compute budget for each transaction, replaces the
// blockhash with a freshly fetched one, and serializes the list for
// submission. The compute-budget pair is always the first two instructions.
func (c *Composer) finalize(ctx context.Context, owner solana.PublicKey, lists []txDraft, urgency lp.Urgency) ([]submit.PreparedTx, error) {
	blockhash, err := c.rpc.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	prepared := make([]submit.PreparedTx, 0, len(lists))
	for _, draft := range lists {
		tx, err := solana.NewTransaction(draft.instructions, blockhash, solana.TransactionPayer(owner))
		if err != nil {
			return nil, errors.Wrap(err, "build transaction")
		}

		b, err := c.budget.Estimate(ctx, tx, feeUrgency(urgency))
		if err != nil {
			return nil, err
		}

		budgeted := budget.Apply(draft.instructions, b)
		tx, err = solana.NewTransaction(budgeted, blockhash, solana.TransactionPayer(owner))
		if err != nil {
			return nil, errors.Wrap(err, "rebuild budgeted transaction")
		}

		prepared = append(prepared, submit.PreparedTx{
			Tx:           tx,
			ExtraSigners: draft.signers,
			Label:        draft.label,
		})
	}
	return prepared, nil
}

// txDraft is an instruction list not yet bound to a blockhash.
type txDraft struct {
	label        string
	instructions []solana.Instruction
	signers      []solana.PrivateKey
}

// swapDraft asks the router for a quote and unsigned swap transaction, then
// decompiles it into a draft so the budget pass can own the compute budget.
func (c *Composer) swapDraft(ctx context.Context, owner solana.PublicKey, inputMint, outputMint string, amount uint64, slippageBps uint16) (*txDraft, *swaprouter.Quote, error) {
	quote, err := c.router.GetQuote(ctx, inputMint, outputMint, amount, slippageBps)
	if err != nil {
		return nil, nil, err
	}

	swapTx, err := c.router.BuildSwap(ctx, quote, owner.String())
	if err != nil {
		return nil, nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(swapTx.SwapTransaction)
	if err != nil {
		return nil, nil, errors.Wrap(err, "decode swap transaction")
	}

	tx, err := solana.TransactionFromBytes(raw)
	if err != nil {
		return nil, nil, errors.Wrap(err, "parse swap transaction")
	}

	instructions, err := decompile(tx)
	if err != nil {
		return nil, nil, err
	}

	return &txDraft{label: "swap", instructions: instructions}, quote, nil
}

// decompile resolves a compiled message back into generic instructions so
// the composer can re-budget and re-serialize it.
func decompile(tx *solana.Transaction) ([]solana.Instruction, error) {
	msg := tx.Message
	out := make([]solana.Instruction, 0, len(msg.Instructions))

	for _, compiled := range msg.Instructions {
		program, err := msg.Program(compiled.ProgramIDIndex)
		if err != nil {
			return nil, errors.Wrap(err, "resolve program id")
		}

		metas := make(solana.AccountMetaSlice, 0, len(compiled.Accounts))
		for _, accIdx := range compiled.Accounts {
			if int(accIdx) >= len(msg.AccountKeys) {
				return nil, errors.New("instruction account index out of range")
			}
			key := msg.AccountKeys[accIdx]
			meta := solana.Meta(key)
			writable, err := msg.IsWritable(key)
			if err != nil {
				return nil, errors.Wrap(err, "check account writable")
			}
			if writable {
				meta = meta.WRITE()
			}
			if msg.IsSigner(key) {
				meta = meta.SIGNER()
			}
			metas = append(metas, meta)
		}

		out = append(out, solana.NewInstruction(program, metas, []byte(compiled.Data)))
	}
	return out, nil
}

// tipDraft builds the private-relay tip transfer for the urgency, or nil for
// SKIP.
func (c *Composer) tipDraft(owner solana.PublicKey, urgency lp.Urgency) *txDraft {
	amount, ok := tipSchedule[urgency]
	if !ok {
		return nil
	}

	ix := system.NewTransferInstruction(amount, owner, c.relay.TipAccount()).Build()
	return &txDraft{label: "tip", instructions: []solana.Instruction{ix}}
}

func newRequestID() string {
	return uuid.NewString()[:8]
}
