package pools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poseidon/internal/adapters/venueapi"
	"poseidon/internal/domain/lp"
	"poseidon/pkg/errors"
)

type fakeIndex struct {
	venue lp.Venue
	pools []lp.Pool
	err   error
	calls int
}

func (f *fakeIndex) Venue() lp.Venue { return f.venue }

func (f *fakeIndex) ListPools(context.Context) ([]lp.Pool, error) {
	f.calls++
	return f.pools, f.err
}

func pool(venue lp.Venue, address, symA, symB string, tvl, apr float64) lp.Pool {
	return lp.Pool{
		Address:   address,
		Venue:     venue,
		TokenA:    lp.Token{Symbol: symA},
		TokenB:    lp.Token{Symbol: symB},
		TVL:       tvl,
		Volume24h: tvl, // healthy volume/TVL ratio
		APR:       apr,
	}
}

func newTestAggregator(indices ...venueapi.Index) *Aggregator {
	return NewAggregator(indices, time.Minute, 50_000, 10)
}

func TestTopPoolsDedupsByPair(t *testing.T) {
	dlmm := &fakeIndex{venue: lp.VenueDLMM, pools: []lp.Pool{
		pool(lp.VenueDLMM, "pool1", "SOL", "USDC", 1_000_000, 40),
	}}
	orca := &fakeIndex{venue: lp.VenueWhirlpool, pools: []lp.Pool{
		pool(lp.VenueWhirlpool, "pool2", "USDC", "SOL", 2_000_000, 25),
		pool(lp.VenueWhirlpool, "pool3", "SOL", "WIF", 500_000, 80),
	}}

	agg := newTestAggregator(dlmm, orca)

	list, err := agg.TopPools(context.Background(), Filter{Sort: SortAPR})
	require.NoError(t, err)

	// SOL/USDC appears once, with the higher-APR venue winning.
	require.Len(t, list, 2)
	seen := map[string]int{}
	for _, p := range list {
		seen[p.PairKey()]++
	}
	for key, count := range seen {
		assert.Equal(t, 1, count, "pair %s duplicated", key)
	}
	assert.Equal(t, "pool1", findByPair(list, "SOL/USDC").Address)
}

func findByPair(list []lp.Pool, key string) *lp.Pool {
	for i := range list {
		if list[i].PairKey() == key {
			return &list[i]
		}
	}
	return nil
}

func TestTopPoolsFilters(t *testing.T) {
	idx := &fakeIndex{venue: lp.VenueDLMM, pools: []lp.Pool{
		pool(lp.VenueDLMM, "big", "SOL", "USDC", 5_000_000, 30),
		pool(lp.VenueDLMM, "dust", "BONK", "WIF", 10_000, 300),
	}}

	agg := newTestAggregator(idx)

	list, err := agg.TopPools(context.Background(), Filter{MinTVL: 100_000})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "big", list[0].Address)
}

func TestTopPoolsSortsByRiskAdjustedYield(t *testing.T) {
	idx := &fakeIndex{venue: lp.VenueDLMM, pools: []lp.Pool{
		pool(lp.VenueDLMM, "risky", "BONK", "WIF", 150_000, 60),
		pool(lp.VenueDLMM, "calm", "USDC", "USDT", 5_000_000, 12),
	}}

	agg := newTestAggregator(idx)

	list, err := agg.TopPools(context.Background(), Filter{Sort: SortRiskAdjustedYield})
	require.NoError(t, err)
	require.Len(t, list, 2)
	// 12/1 beats 60/6.
	assert.Equal(t, "calm", list[0].Address)
}

func TestBestPoolForPair(t *testing.T) {
	dlmm := &fakeIndex{venue: lp.VenueDLMM, pools: []lp.Pool{
		pool(lp.VenueDLMM, "meteora", "SOL", "USDC", 1_000_000, 40),
	}}
	orca := &fakeIndex{venue: lp.VenueWhirlpool, pools: []lp.Pool{
		pool(lp.VenueWhirlpool, "orca", "SOL", "USDC", 1_000_000, 55),
	}}

	agg := newTestAggregator(dlmm, orca)

	best, err := agg.BestPoolForPair(context.Background(), "usdc", "sol")
	require.NoError(t, err)
	assert.Equal(t, "orca", best.Address)

	_, err = agg.BestPoolForPair(context.Background(), "FOO", "BAR")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestFetchAllUsesCache(t *testing.T) {
	idx := &fakeIndex{venue: lp.VenueDLMM, pools: []lp.Pool{
		pool(lp.VenueDLMM, "pool1", "SOL", "USDC", 1_000_000, 40),
	}}

	agg := newTestAggregator(idx)

	_, err := agg.TopPools(context.Background(), Filter{})
	require.NoError(t, err)
	_, err = agg.TopPools(context.Background(), Filter{})
	require.NoError(t, err)

	assert.Equal(t, 1, idx.calls, "second call should be served from cache")
}

func TestFetchAllSurvivesOneVenueDown(t *testing.T) {
	up := &fakeIndex{venue: lp.VenueDLMM, pools: []lp.Pool{
		pool(lp.VenueDLMM, "pool1", "SOL", "USDC", 1_000_000, 40),
	}}
	down := &fakeIndex{venue: lp.VenueWhirlpool, err: errors.Wrap(errors.ErrVenueUnavailable, "boom")}

	agg := newTestAggregator(up, down)

	list, err := agg.TopPools(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRiskScore(t *testing.T) {
	tests := []struct {
		name string
		pool lp.Pool
		want int
	}{
		{"stable-stable", pool(lp.VenueDLMM, "p", "USDC", "USDT", 5_000_000, 10), 1},
		{"major with stable, deep", pool(lp.VenueDLMM, "p", "SOL", "USDC", 5_000_000, 10), 1},
		{"major with stable, shallow", pool(lp.VenueDLMM, "p", "SOL", "USDC", 30_000, 10), 4},
		{"unknown token", pool(lp.VenueDLMM, "p", "XYZZY", "USDC", 5_000_000, 10), 4},
		{"mid cap no stable", pool(lp.VenueDLMM, "p", "WIF", "SOL", 5_000_000, 10), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RiskScore(&tt.pool)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 1)
			assert.LessOrEqual(t, got, 10)
		})
	}
}

func TestRiskScoreThinVolumePenalty(t *testing.T) {
	p := pool(lp.VenueDLMM, "p", "SOL", "USDC", 5_000_000, 10)
	p.Volume24h = 100 // well under 1% of TVL
	assert.Equal(t, 2, RiskScore(&p))
}
