package venues

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"poseidon/internal/adapters/solanarpc"
)

// ChainReader is the node-access surface the venue adapters need. Satisfied
// by the RPC adapter; tests supply fakes.
type ChainReader interface {
	AccountData(ctx context.Context, address solana.PublicKey) ([]byte, error)
	TokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) ([]solanarpc.TokenAccount, error)
	ProgramAccounts(ctx context.Context, program solana.PublicKey, dataSize uint64, ownerOffset uint64, owner solana.PublicKey) ([]solanarpc.KeyedAccount, error)
}
