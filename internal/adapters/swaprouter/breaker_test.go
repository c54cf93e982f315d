package swaprouter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := newBreaker()

	for i := 0; i < breakerThreshold-1; i++ {
		b.RecordFailure()
		assert.True(t, b.Allow())
	}

	b.RecordFailure()
	assert.False(t, b.Allow())
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	b := newBreaker()

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()

	b.RecordFailure()
	b.RecordFailure()
	assert.True(t, b.Allow())
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b := newBreaker()

	for i := 0; i < breakerThreshold; i++ {
		b.RecordFailure()
	}
	assert.False(t, b.Allow())

	// Simulate the cooldown passing.
	b.mu.Lock()
	b.openedAt = time.Now().Add(-breakerCooldown - time.Second)
	b.mu.Unlock()

	// One probe is admitted.
	assert.True(t, b.Allow())

	// A failed probe re-opens immediately.
	b.RecordFailure()
	assert.False(t, b.Allow())
}

func TestBreakerClosesOnProbeSuccess(t *testing.T) {
	b := newBreaker()

	for i := 0; i < breakerThreshold; i++ {
		b.RecordFailure()
	}

	b.mu.Lock()
	b.openedAt = time.Now().Add(-breakerCooldown - time.Second)
	b.mu.Unlock()

	assert.True(t, b.Allow())
	b.RecordSuccess()

	assert.True(t, b.Allow())
	assert.True(t, b.Allow())
}
