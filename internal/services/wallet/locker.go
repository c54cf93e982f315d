package wallet

import (
	"sync"

	"poseidon/pkg/errors"
)

// Locker is the advisory in-process per-wallet operation lock. Two
// concurrent capital-moving intents on the same wallet must not both reach
// the submission driver; the second fails fast with WALLET_BUSY.
type Locker struct {
	mu     sync.Mutex
	locked map[string]bool
}

// NewLocker creates the locker.
func NewLocker() *Locker {
	return &Locker{locked: make(map[string]bool)}
}

// Acquire takes the wallet's lock, failing fast when it is held.
func (l *Locker) Acquire(wallet string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.locked[wallet] {
		return errors.Wrapf(errors.ErrWalletBusy, "wallet %s", wallet)
	}
	l.locked[wallet] = true
	return nil
}

// Release frees the wallet's lock.
func (l *Locker) Release(wallet string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locked, wallet)
}

// WithLock runs fn under the wallet's lock.
func (l *Locker) WithLock(wallet string, fn func() error) error {
	if err := l.Acquire(wallet); err != nil {
		return err
	}
	defer l.Release(wallet)
	return fn()
}
