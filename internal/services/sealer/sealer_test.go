package sealer

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/curve25519"

	"poseidon/internal/adapters/config"
	"poseidon/internal/domain/lp"
)

func testKeyPair(t *testing.T) ([]byte, []byte) {
	t.Helper()
	priv := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, priv)
	require.NoError(t, err)
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	require.NoError(t, err)
	return priv, pub
}

func TestSealRoundTrip(t *testing.T) {
	priv, pub := testKeyPair(t)

	s, err := New(config.SealerConfig{
		ClusterPubkey: hex.EncodeToString(pub),
		ClusterID:     "mxe-test",
	})
	require.NoError(t, err)

	strategy := &lp.Strategy{
		Venue:            lp.VenueWhirlpool,
		Pool:             "pool1",
		CollateralMint:   "So11111111111111111111111111111111111111112",
		CollateralAmount: 500_000_000,
		Shape:            lp.ShapeWide,
		SlippageBps:      500,
		Urgency:          lp.UrgencyTurbo,
	}

	sealed, err := s.Seal(strategy)
	require.NoError(t, err)

	assert.Len(t, sealed.Nonce, nonceSize)
	assert.Len(t, sealed.EphemeralPub, 32)
	assert.Equal(t, "mxe-test", sealed.ClusterID)
	assert.NotEmpty(t, sealed.Ciphertext)

	got, err := open(sealed, priv)
	require.NoError(t, err)
	assert.Equal(t, strategy.Pool, got.Pool)
	assert.Equal(t, strategy.CollateralAmount, got.CollateralAmount)
	assert.Equal(t, strategy.Shape, got.Shape)
}

func TestSealFreshEphemeralPerCall(t *testing.T) {
	_, pub := testKeyPair(t)

	s, err := New(config.SealerConfig{ClusterPubkey: hex.EncodeToString(pub), ClusterID: "c"})
	require.NoError(t, err)

	strategy := &lp.Strategy{Pool: "p", CollateralAmount: 1}
	first, err := s.Seal(strategy)
	require.NoError(t, err)
	second, err := s.Seal(strategy)
	require.NoError(t, err)

	assert.NotEqual(t, first.EphemeralPub, second.EphemeralPub)
	assert.NotEqual(t, first.Nonce, second.Nonce)
}

func TestOpenWithWrongKeyFails(t *testing.T) {
	_, pub := testKeyPair(t)
	wrongPriv, _ := testKeyPair(t)

	s, err := New(config.SealerConfig{ClusterPubkey: hex.EncodeToString(pub), ClusterID: "c"})
	require.NoError(t, err)

	sealed, err := s.Seal(&lp.Strategy{Pool: "p"})
	require.NoError(t, err)

	_, err = open(sealed, wrongPriv)
	assert.Error(t, err)
}

func TestNewRejectsBadKey(t *testing.T) {
	_, err := New(config.SealerConfig{ClusterPubkey: "nothex"})
	assert.Error(t, err)

	_, err = New(config.SealerConfig{ClusterPubkey: "abcd"})
	assert.Error(t, err)
}

func TestSelfTest(t *testing.T) {
	assert.NoError(t, SelfTest())
}
