package submit

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jpillora/backoff"

	"poseidon/internal/adapters/custody"
	"poseidon/internal/adapters/relay"
	"poseidon/internal/adapters/solanarpc"
	"poseidon/internal/metrics"
	"poseidon/pkg/errors"
	"poseidon/pkg/logger"
)

// Mode selects the submission path.
type Mode string

const (
	// ModeBundle submits the full list atomically via the private relay.
	ModeBundle Mode = "bundle"
	// ModeSequential signs and sends one transaction at a time via direct
	// RPC, confirming each before the next.
	ModeSequential Mode = "sequential"
)

const (
	maxBundleRetries = 2
	bundleRetryBase  = 2 * time.Second

	// interTxDelay lets account state propagate between sequential sends.
	interTxDelay = 3 * time.Second
)

// PreparedTx is one composer-built transaction ready for signing.
type PreparedTx struct {
	Tx *solana.Transaction
	// ExtraSigners carries auxiliary keypairs (new position accounts) that
	// must co-sign alongside the custody oracle.
	ExtraSigners []solana.PrivateKey
	Label        string
}

// Result reports the submission outcome. For sequential mode a partial
// failure carries the landed prefix and the failing index; the caller
// reconciles by re-reading positions.
type Result struct {
	Mode      Mode     `json:"mode"`
	BundleID  string   `json:"bundleId,omitempty"`
	LandedTxs []string `json:"landedTxs"`
	FailedAt  int      `json:"failedAt"` // -1 when everything landed
	Reason    string   `json:"reason,omitempty"`
}

// Driver signs and submits composed transaction lists, preserving order in
// both modes. An execution against a wallet invalidates that wallet's
// position cache through the registered hook.
type Driver struct {
	rpc     *solanarpc.Client
	relay   *relay.Client
	custody *custody.Client

	onExecuted func(wallet string)

	log *logger.Logger
}

// NewDriver creates the submission driver.
func NewDriver(rpc *solanarpc.Client, relayClient *relay.Client, custodyClient *custody.Client) *Driver {
	return &Driver{
		rpc:     rpc,
		relay:   relayClient,
		custody: custodyClient,
		log:     logger.Get().With("component", "submit_driver"),
	}
}

// OnExecuted registers the cache-invalidation hook.
func (d *Driver) OnExecuted(hook func(wallet string)) {
	d.onExecuted = hook
}

// Submit drives the list through the selected mode.
func (d *Driver) Submit(ctx context.Context, wallet string, txs []PreparedTx, mode Mode) (*Result, error) {
	if len(txs) == 0 {
		return nil, errors.Wrap(errors.ErrValidation, "empty transaction list")
	}

	defer func() {
		if d.onExecuted != nil {
			d.onExecuted(wallet)
		}
	}()

	switch mode {
	case ModeSequential:
		return d.submitSequential(ctx, wallet, txs)
	default:
		return d.submitBundle(ctx, wallet, txs)
	}
}

// submitBundle signs the full list in order and submits it atomically.
// Dropped bundles and transient relay errors retry with exponential backoff.
func (d *Driver) submitBundle(ctx context.Context, wallet string, txs []PreparedTx) (*Result, error) {
	signed := make([]*solana.Transaction, 0, len(txs))
	for _, ptx := range txs {
		tx, err := d.custody.Sign(ctx, wallet, ptx.Tx, ptx.ExtraSigners)
		if err != nil {
			return nil, err
		}
		signed = append(signed, tx)
	}

	boff := &backoff.Backoff{Min: bundleRetryBase, Max: 30 * time.Second, Factor: 2}

	var lastErr error
	for attempt := 0; attempt <= maxBundleRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(boff.Duration()):
			}
		}

		bundleID, err := d.relay.SubmitBundle(ctx, signed)
		if err != nil {
			if isTransient(err) {
				d.log.Warnw("bundle submission failed, retrying", "attempt", attempt, "error", err)
				lastErr = err
				continue
			}
			return nil, err
		}

		outcome, err := d.relay.WaitForBundle(ctx, bundleID)
		metrics.BundlesTotal.WithLabelValues(string(outcome)).Inc()
		switch outcome {
		case relay.BundleLanded:
			landed := make([]string, 0, len(signed))
			for _, tx := range signed {
				landed = append(landed, tx.Signatures[0].String())
			}
			return &Result{Mode: ModeBundle, BundleID: bundleID, LandedTxs: landed, FailedAt: -1}, nil
		case relay.BundleFailed:
			// On-chain failure inside the bundle is not retried here. It is
			// reported as SLIPPAGE_EXCEEDED; the program error code is not read.
			return nil, errors.Wrapf(errors.ErrSlippageExceeded, "bundle %s failed on chain", bundleID)
		default:
			d.log.Warnw("bundle not landed, retrying", "attempt", attempt, "bundle", bundleID, "error", err)
			lastErr = err
		}
	}

	if lastErr == nil {
		lastErr = errors.Wrap(errors.ErrBundleDropped, "bundle retries exhausted")
	}
	return nil, lastErr
}

// submitSequential signs and sends one at a time; an on-chain failure aborts
// the remainder and surfaces the landed prefix.
func (d *Driver) submitSequential(ctx context.Context, wallet string, txs []PreparedTx) (*Result, error) {
	result := &Result{Mode: ModeSequential, FailedAt: -1}

	for i, ptx := range txs {
		tx, err := d.custody.Sign(ctx, wallet, ptx.Tx, ptx.ExtraSigners)
		if err != nil {
			result.FailedAt = i
			result.Reason = errors.Code(err)
			return result, err
		}

		sig, err := d.rpc.SendTransaction(ctx, tx)
		if err != nil {
			result.FailedAt = i
			result.Reason = errors.Code(err)
			return result, err
		}

		if err := d.rpc.ConfirmTransaction(ctx, sig, 60*time.Second); err != nil {
			result.FailedAt = i
			result.Reason = errors.Code(err)
			return result, err
		}

		result.LandedTxs = append(result.LandedTxs, sig.String())

		if i < len(txs)-1 {
			select {
			case <-ctx.Done():
				// In-flight work is done; an abandoned remainder is
				// reconciled by a later position refresh.
				result.FailedAt = i + 1
				result.Reason = "cancelled"
				return result, ctx.Err()
			case <-time.After(interTxDelay):
			}
		}
	}

	return result, nil
}

// isTransient classifies retryable submission failures: timeouts, 5xx, and
// rate-limit responses all surface as the transient sentinels.
func isTransient(err error) bool {
	return errors.IsTransient(err)
}
