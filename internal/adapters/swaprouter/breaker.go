package swaprouter

import (
	"sync"
	"time"
)

const (
	breakerThreshold = 3
	breakerCooldown  = 30 * time.Second
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// breaker is a three-state circuit breaker: 3 consecutive failures open it
// for 30s, after which it goes half-open and admits calls again (their number
// is not limited); a success closes it, a failure re-opens it.
type breaker struct {
	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
}

func newBreaker() *breaker {
	return &breaker{state: breakerClosed}
}

// Allow reports whether a call may proceed.
func (b *breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed, breakerHalfOpen:
		return true
	case breakerOpen:
		if time.Since(b.openedAt) >= breakerCooldown {
			b.state = breakerHalfOpen
			return true
		}
		return false
	}
	return true
}

// RecordSuccess closes the breaker and resets the failure count.
func (b *breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = breakerClosed
	b.failures = 0
}

// RecordFailure counts a failure, opening the breaker at the threshold.
// A failed half-open probe re-opens immediately.
func (b *breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == breakerHalfOpen {
		b.state = breakerOpen
		b.openedAt = time.Now()
		return
	}

	b.failures++
	if b.failures >= breakerThreshold {
		b.state = breakerOpen
		b.openedAt = time.Now()
	}
}
