package wallet

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"

	"poseidon/internal/adapters/custody"
	"poseidon/internal/adapters/solanarpc"
	"poseidon/internal/domain/lp"
	"poseidon/internal/store"
	"poseidon/pkg/errors"
	"poseidon/pkg/logger"
)

// Service owns wallet profiles and the advisory per-wallet operation lock
// that serializes LP-mutating intents.
type Service struct {
	store   *store.Store
	custody *custody.Client
	rpc     *solanarpc.Client
	locks   *Locker
	log     *logger.Logger
}

// NewService creates the wallet service.
func NewService(st *store.Store, custodyClient *custody.Client, rpc *solanarpc.Client) *Service {
	return &Service{
		store:   st,
		custody: custodyClient,
		rpc:     rpc,
		locks:   NewLocker(),
		log:     logger.Get().With("component", "wallet"),
	}
}

// Locks exposes the per-wallet operation lock.
func (s *Service) Locks() *Locker {
	return s.locks
}

// Create provisions a custody wallet and persists its profile.
func (s *Service) Create(ctx context.Context, chatID int64) (*lp.UserProfile, error) {
	walletID, address, err := s.custody.CreateWallet(ctx)
	if err != nil {
		return nil, err
	}

	profile := &lp.UserProfile{
		WalletID:  walletID,
		Address:   address,
		ChatID:    chatID,
		CreatedAt: time.Now(),
	}
	if err := s.store.SaveUser(ctx, profile); err != nil {
		return nil, err
	}

	s.log.Infow("wallet created", "wallet", walletID)
	return profile, nil
}

// Load fetches a wallet profile by identifier.
func (s *Service) Load(ctx context.Context, walletID string) (*lp.UserProfile, error) {
	return s.store.GetUser(ctx, walletID)
}

// Balance returns the wallet's lamport balance.
func (s *Service) Balance(ctx context.Context, walletID string) (uint64, error) {
	profile, err := s.store.GetUser(ctx, walletID)
	if err != nil {
		return 0, err
	}

	address, err := solana.PublicKeyFromBase58(profile.Address)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrInternal, "stored address %q invalid", profile.Address)
	}
	return s.rpc.Balance(ctx, address)
}

// OwnerKey resolves the wallet's public key.
func (s *Service) OwnerKey(ctx context.Context, walletID string) (solana.PublicKey, error) {
	profile, err := s.store.GetUser(ctx, walletID)
	if err != nil {
		return solana.PublicKey{}, err
	}

	key, err := solana.PublicKeyFromBase58(profile.Address)
	if err != nil {
		return solana.PublicKey{}, errors.Wrapf(errors.ErrInternal, "stored address %q invalid", profile.Address)
	}
	return key, nil
}
