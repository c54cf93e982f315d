package lp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRangeContains(t *testing.T) {
	rng := Range{Lower: 4950, Upper: 5050}

	assert.True(t, rng.Contains(5000))
	assert.True(t, rng.Contains(4950), "bounds are inclusive")
	assert.True(t, rng.Contains(5050))
	assert.False(t, rng.Contains(4949))
	assert.False(t, rng.Contains(5060))
}

func TestRangeDrift(t *testing.T) {
	rng := Range{Lower: 4950, Upper: 5050}

	assert.Zero(t, rng.Drift(5000, 1))
	assert.Equal(t, int32(10), rng.Drift(5060, 1))
	assert.Equal(t, int32(10), rng.Drift(4940, 1))

	// Tick venues measure drift in grid units, not raw ticks.
	tickRng := Range{Lower: 4950, Upper: 5050}
	assert.Equal(t, int32(1), tickRng.Drift(5060, 10))
}

func TestVenueTags(t *testing.T) {
	assert.True(t, VenueDLMM.Valid())
	assert.True(t, VenueWhirlpool.Valid())
	assert.True(t, VenueCLMM.Valid())
	assert.False(t, Venue("UNISWAP").Valid())

	assert.False(t, VenueDLMM.TickBased())
	assert.True(t, VenueWhirlpool.TickBased())
	assert.True(t, VenueCLMM.TickBased())
}

func TestShapeHalfWidth(t *testing.T) {
	assert.Equal(t, int32(5), ShapeConcentrated.HalfWidth())
	assert.Equal(t, int32(20), ShapeWide.HalfWidth())
}

func TestPoolGridUnit(t *testing.T) {
	dlmm := &Pool{Venue: VenueDLMM, BinStep: 25}
	assert.Equal(t, int32(25), dlmm.GridUnit())

	bare := &Pool{Venue: VenueDLMM}
	assert.Equal(t, int32(1), bare.GridUnit())

	orca := &Pool{Venue: VenueWhirlpool, TickSpacing: 64}
	assert.Equal(t, int32(64), orca.GridUnit())
}

func TestPoolPairKeyUnordered(t *testing.T) {
	p1 := &Pool{TokenA: Token{Symbol: "SOL"}, TokenB: Token{Symbol: "USDC"}}
	p2 := &Pool{TokenA: Token{Symbol: "usdc"}, TokenB: Token{Symbol: "sol"}}
	assert.Equal(t, p1.PairKey(), p2.PairKey())
}

func TestScheduleDue(t *testing.T) {
	now := time.Now()

	s := &Schedule{Status: ScheduleActive, NextTick: now.Add(-time.Minute)}
	assert.True(t, s.Due(now))

	s.NextTick = now.Add(time.Minute)
	assert.False(t, s.Due(now))

	s.NextTick = now.Add(-time.Minute)
	s.Status = SchedulePaused
	assert.False(t, s.Due(now))
}

func TestScheduleExhausted(t *testing.T) {
	s := &Schedule{Budget: 1000, Spent: 999, Executions: 3, MaxExecutions: 10}
	assert.False(t, s.Exhausted())

	s.Spent = 1000
	assert.True(t, s.Exhausted())

	s.Spent = 500
	s.Executions = 10
	assert.True(t, s.Exhausted())
}

func TestRecipientHasTransport(t *testing.T) {
	assert.False(t, (&Recipient{}).HasTransport())
	assert.True(t, (&Recipient{ChatID: 1}).HasTransport())
	assert.True(t, (&Recipient{Webhook: &WebhookTarget{URL: "https://x"}}).HasTransport())
	assert.False(t, (&Recipient{Webhook: &WebhookTarget{}}).HasTransport())
}
