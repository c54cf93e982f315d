package sealer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"

	"golang.org/x/crypto/curve25519"

	"poseidon/internal/adapters/config"
	"poseidon/internal/domain/lp"
	"poseidon/pkg/errors"
	"poseidon/pkg/logger"
)

const nonceSize = 16

// Sealer envelope-encrypts strategy parameters under the compute
// environment's published public key. Each seal uses a fresh ephemeral
// curve25519 key pair; the symmetric key is derived from the shared secret.
type Sealer struct {
	clusterPub [32]byte
	clusterID  string
	log        *logger.Logger
}

// New creates a sealer for the configured cluster key.
func New(cfg config.SealerConfig) (*Sealer, error) {
	raw, err := hex.DecodeString(cfg.ClusterPubkey)
	if err != nil || len(raw) != 32 {
		return nil, errors.Wrapf(errors.ErrValidation, "cluster pubkey must be 32 hex-encoded bytes")
	}

	s := &Sealer{
		clusterID: cfg.ClusterID,
		log:       logger.Get().With("component", "sealer"),
	}
	copy(s.clusterPub[:], raw)
	return s, nil
}

// Seal encrypts the strategy. The ciphertext is attached to execution
// receipts; it never influences instruction bytes.
func (s *Sealer) Seal(strategy *lp.Strategy) (*lp.SealedStrategy, error) {
	plaintext, err := json.Marshal(strategy)
	if err != nil {
		return nil, errors.Wrap(err, "marshal strategy")
	}

	var ephemeralPriv [32]byte
	if _, err := io.ReadFull(rand.Reader, ephemeralPriv[:]); err != nil {
		return nil, errors.Wrap(err, "generate ephemeral key")
	}

	ephemeralPub, err := curve25519.X25519(ephemeralPriv[:], curve25519.Basepoint)
	if err != nil {
		return nil, errors.Wrap(err, "derive ephemeral public key")
	}

	shared, err := curve25519.X25519(ephemeralPriv[:], s.clusterPub[:])
	if err != nil {
		return nil, errors.Wrap(err, "derive shared secret")
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Wrap(err, "generate nonce")
	}

	aead, err := newAEAD(shared)
	if err != nil {
		return nil, err
	}

	return &lp.SealedStrategy{
		Ciphertext:   aead.Seal(nil, nonce, plaintext, nil),
		Nonce:        nonce,
		EphemeralPub: ephemeralPub,
		ClusterID:    s.clusterID,
	}, nil
}

// open decrypts a sealed strategy given the recipient's private key. Only the
// startup self-test uses it; the engine never holds the cluster's key in
// production.
func open(sealed *lp.SealedStrategy, recipientPriv []byte) (*lp.Strategy, error) {
	shared, err := curve25519.X25519(recipientPriv, sealed.EphemeralPub)
	if err != nil {
		return nil, errors.Wrap(err, "derive shared secret")
	}

	aead, err := newAEAD(shared)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, sealed.Nonce, sealed.Ciphertext, nil)
	if err != nil {
		return nil, errors.Wrap(err, "decrypt sealed strategy")
	}

	var strategy lp.Strategy
	if err := json.Unmarshal(plaintext, &strategy); err != nil {
		return nil, errors.Wrap(err, "unmarshal strategy")
	}
	return &strategy, nil
}

// newAEAD builds AES-256-GCM over a key derived from the shared secret.
func newAEAD(shared []byte) (cipher.AEAD, error) {
	key := sha256.Sum256(shared)

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, nonceSize)
}

// SelfTest verifies seal-then-open round-trips with a throwaway key pair.
// It runs at startup so a broken envelope is caught before any execution.
func SelfTest() error {
	var priv [32]byte
	if _, err := io.ReadFull(rand.Reader, priv[:]); err != nil {
		return err
	}
	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return err
	}

	s := &Sealer{clusterID: "self-test"}
	copy(s.clusterPub[:], pub)

	want := &lp.Strategy{
		Venue:            lp.VenueDLMM,
		Pool:             "self-test-pool",
		CollateralMint:   "So11111111111111111111111111111111111111112",
		CollateralAmount: 1_000_000_000,
		Shape:            lp.ShapeConcentrated,
		SlippageBps:      300,
		Urgency:          lp.UrgencyFast,
	}

	sealed, err := s.Seal(want)
	if err != nil {
		return err
	}

	got, err := open(sealed, priv[:])
	if err != nil {
		return err
	}
	if got.Pool != want.Pool || got.CollateralAmount != want.CollateralAmount {
		return errors.New("sealed strategy round-trip mismatch")
	}
	return nil
}
