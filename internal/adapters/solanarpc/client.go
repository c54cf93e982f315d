package solanarpc

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"poseidon/internal/adapters/config"
	"poseidon/pkg/errors"
	"poseidon/pkg/logger"
)

// Client wraps the Solana JSON-RPC client with the calls the engine needs.
// All network failures surface as ErrRPCUnavailable so the submission driver
// can classify them as transient.
type Client struct {
	rpc        *rpc.Client
	commitment rpc.CommitmentType
	timeout    time.Duration
	log        *logger.Logger
}

// NewClient creates an RPC client from configuration.
func NewClient(cfg config.SolanaConfig) *Client {
	commitment := rpc.CommitmentConfirmed
	if cfg.Commitment == "finalized" {
		commitment = rpc.CommitmentFinalized
	}

	return &Client{
		rpc:        rpc.New(cfg.RPCURL),
		commitment: commitment,
		timeout:    cfg.Timeout,
		log:        logger.Get().With("component", "solana_rpc"),
	}
}

// SimulationResult is the subset of simulateTransaction output the budget
// estimator consumes.
type SimulationResult struct {
	UnitsConsumed uint64
	Logs          []string
	Err           interface{} // program error payload, nil on success
}

// LatestBlockhash fetches a fresh finalized blockhash.
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, errors.Wrap(errors.ErrRPCUnavailable, err.Error())
	}
	return out.Value.Blockhash, nil
}

// Simulate runs the transaction against the node with the blockhash replaced
// and signature verification disabled.
func (c *Client) Simulate(ctx context.Context, tx *solana.Transaction) (*SimulationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.rpc.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		SigVerify:              false,
		ReplaceRecentBlockhash: true,
		Commitment:             c.commitment,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrRPCUnavailable, err.Error())
	}

	res := &SimulationResult{
		Logs: out.Value.Logs,
		Err:  out.Value.Err,
	}
	if out.Value.UnitsConsumed != nil {
		res.UnitsConsumed = *out.Value.UnitsConsumed
	}
	return res, nil
}

// RecentPrioritizationFees returns the recent per-slot priority fees observed
// for the given writable accounts, in micro-lamports.
func (c *Client) RecentPrioritizationFees(ctx context.Context, writable []solana.PublicKey) ([]uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.rpc.GetRecentPrioritizationFees(ctx, writable)
	if err != nil {
		return nil, errors.Wrap(errors.ErrRPCUnavailable, err.Error())
	}

	fees := make([]uint64, 0, len(out))
	for _, f := range out {
		fees = append(fees, f.PrioritizationFee)
	}
	return fees, nil
}

// SendTransaction submits a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		return solana.Signature{}, errors.Wrap(errors.ErrRPCUnavailable, err.Error())
	}
	return sig, nil
}

// ConfirmTransaction polls signature status until the transaction reaches
// confirmed or finalized status (whatever the configured commitment) or the
// deadline passes.
func (c *Client) ConfirmTransaction(ctx context.Context, sig solana.Signature, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return errors.Wrapf(errors.ErrRPCUnavailable, "confirmation timed out for %s", sig)
		case <-ticker.C:
			out, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
			if err != nil {
				continue
			}
			if len(out.Value) == 0 || out.Value[0] == nil {
				continue
			}
			status := out.Value[0]
			if status.Err != nil {
				return errors.Wrapf(errors.ErrInternal, "transaction %s failed on chain: %v", sig, status.Err)
			}
			switch status.ConfirmationStatus {
			case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
				return nil
			}
		}
	}
}

// AccountData fetches and returns the raw data of an account.
func (c *Client) AccountData(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.rpc.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingBase64,
	})
	if err != nil {
		if err == rpc.ErrNotFound {
			return nil, errors.Wrapf(errors.ErrNotFound, "account %s", address)
		}
		return nil, errors.Wrap(errors.ErrRPCUnavailable, err.Error())
	}
	if out.Value == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "account %s", address)
	}
	return out.Value.Data.GetBinary(), nil
}

// TokenAccount is a parsed token account of a wallet.
type TokenAccount struct {
	Address solana.PublicKey
	Mint    solana.PublicKey
	Amount  uint64
}

// TokenAccountsByOwner lists SPL token accounts owned by the wallet.
func (c *Client) TokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) ([]TokenAccount, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.rpc.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{ProgramId: solana.TokenProgramID.ToPointer()},
		&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingBase64},
	)
	if err != nil {
		return nil, errors.Wrap(errors.ErrRPCUnavailable, err.Error())
	}

	accounts := make([]TokenAccount, 0, len(out.Value))
	for _, item := range out.Value {
		data := item.Account.Data.GetBinary()
		if len(data) < 72 {
			continue
		}
		// SPL token account layout: mint at [0:32], amount u64 LE at [64:72].
		var mint solana.PublicKey
		copy(mint[:], data[0:32])
		amount := uint64(0)
		for i := 7; i >= 0; i-- {
			amount = amount<<8 | uint64(data[64+i])
		}
		accounts = append(accounts, TokenAccount{
			Address: item.Pubkey,
			Mint:    mint,
			Amount:  amount,
		})
	}
	return accounts, nil
}

// ProgramAccounts lists accounts of a program filtered by data size and a
// memcmp on the owner field.
func (c *Client) ProgramAccounts(ctx context.Context, program solana.PublicKey, dataSize uint64, ownerOffset uint64, owner solana.PublicKey) ([]KeyedAccount, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	filters := []rpc.RPCFilter{
		{DataSize: dataSize},
		{Memcmp: &rpc.RPCFilterMemcmp{
			Offset: ownerOffset,
			Bytes:  solana.Base58(owner.Bytes()),
		}},
	}

	out, err := c.rpc.GetProgramAccountsWithOpts(ctx, program, &rpc.GetProgramAccountsOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingBase64,
		Filters:    filters,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrRPCUnavailable, err.Error())
	}

	accounts := make([]KeyedAccount, 0, len(out))
	for _, item := range out {
		accounts = append(accounts, KeyedAccount{
			Address: item.Pubkey,
			Data:    item.Account.Data.GetBinary(),
		})
	}
	return accounts, nil
}

// KeyedAccount pairs an account address with its raw data.
type KeyedAccount struct {
	Address solana.PublicKey
	Data    []byte
}

// Balance returns the wallet's lamport balance.
func (c *Client) Balance(ctx context.Context, wallet solana.PublicKey) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.rpc.GetBalance(ctx, wallet, c.commitment)
	if err != nil {
		return 0, errors.Wrap(errors.ErrRPCUnavailable, err.Error())
	}
	return out.Value, nil
}

// Health checks node reachability.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := c.rpc.GetHealth(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrRPCUnavailable, err.Error())
	}
	return nil
}
