package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poseidon/pkg/errors"
)

func TestLockerFailsFastWhenHeld(t *testing.T) {
	l := NewLocker()

	require.NoError(t, l.Acquire("w1"))

	err := l.Acquire("w1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrWalletBusy))

	// Other wallets are unaffected.
	assert.NoError(t, l.Acquire("w2"))

	l.Release("w1")
	assert.NoError(t, l.Acquire("w1"))
}

func TestWithLockReleasesOnError(t *testing.T) {
	l := NewLocker()

	err := l.WithLock("w1", func() error {
		// A second intent on the locked wallet fails fast without reaching
		// the submission driver.
		inner := l.Acquire("w1")
		assert.True(t, errors.Is(inner, errors.ErrWalletBusy))
		return errors.New("execution failed")
	})
	require.Error(t, err)

	assert.NoError(t, l.Acquire("w1"))
}
