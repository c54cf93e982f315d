package oracle

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poseidon/internal/adapters/config"
)

type fakeSource struct {
	name  string
	price float64
	conf  float64
	age   time.Duration
	err   error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Price(context.Context, string) (*Reading, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &Reading{
		Source:      f.name,
		Price:       decimal.NewFromFloat(f.price),
		Confidence:  decimal.NewFromFloat(f.conf),
		PublishedAt: time.Now().Add(-f.age),
	}, nil
}

func testConfig() config.OracleConfig {
	return config.OracleConfig{
		SourceTimeout: time.Second,
		StaleAfter:    30 * time.Second,
		CacheTTL:      10 * time.Second,
		MaxDivergence: 0.005,
	}
}

func TestPriceMedianOfLiveSources(t *testing.T) {
	agg := NewAggregatorWithSources(testConfig(),
		&fakeSource{name: "primary", price: 150.00, conf: 0.05},
		&fakeSource{name: "secondary", price: 150.10},
	)

	price, err := agg.Price(context.Background(), "mint")
	require.NoError(t, err)

	assert.False(t, price.Unreliable)
	assert.Equal(t, "150.05", price.Price.StringFixed(2))
	assert.Equal(t, "0.05", price.Confidence.String())
}

func TestPriceDivergenceGate(t *testing.T) {
	// 150.00 vs 151.20 is 0.8% divergence, over the 0.5% gate.
	agg := NewAggregatorWithSources(testConfig(),
		&fakeSource{name: "primary", price: 150.00},
		&fakeSource{name: "secondary", price: 151.20},
	)

	price, err := agg.Price(context.Background(), "mint")
	require.NoError(t, err)
	assert.True(t, price.Unreliable)
}

func TestPriceDivergenceExactlyAtGateIsUnreliable(t *testing.T) {
	// Exactly 0.5%: inclusive upper bound.
	agg := NewAggregatorWithSources(testConfig(),
		&fakeSource{name: "primary", price: 200.0},
		&fakeSource{name: "secondary", price: 201.0},
	)

	price, err := agg.Price(context.Background(), "mint")
	require.NoError(t, err)
	assert.True(t, price.Unreliable)
}

func TestPriceAllStaleIsUnreliable(t *testing.T) {
	agg := NewAggregatorWithSources(testConfig(),
		&fakeSource{name: "primary", price: 150, age: time.Minute},
		&fakeSource{name: "secondary", price: 150, age: time.Minute},
	)

	price, err := agg.Price(context.Background(), "mint")
	require.NoError(t, err)
	assert.True(t, price.Unreliable)
}

func TestPriceSingleLiveSourceSurvivesStaleOther(t *testing.T) {
	agg := NewAggregatorWithSources(testConfig(),
		&fakeSource{name: "primary", price: 150, age: time.Minute},
		&fakeSource{name: "secondary", price: 151},
	)

	price, err := agg.Price(context.Background(), "mint")
	require.NoError(t, err)
	assert.False(t, price.Unreliable)
	assert.Equal(t, "151", price.Price.String())
}

func TestPriceNoSources(t *testing.T) {
	agg := NewAggregatorWithSources(testConfig(),
		&fakeSource{name: "primary", err: assert.AnError},
		&fakeSource{name: "secondary", err: assert.AnError},
	)

	_, err := agg.Price(context.Background(), "mint")
	assert.Error(t, err)
}

func TestPriceCaching(t *testing.T) {
	src := &fakeSource{name: "primary", price: 150}
	agg := NewAggregatorWithSources(testConfig(), src)

	first, err := agg.Price(context.Background(), "mint")
	require.NoError(t, err)

	src.price = 999
	second, err := agg.Price(context.Background(), "mint")
	require.NoError(t, err)

	assert.Equal(t, first.Price.String(), second.Price.String())
}

func TestPricesBatchLimit(t *testing.T) {
	agg := NewAggregatorWithSources(testConfig(), &fakeSource{name: "primary", price: 1})

	mints := make([]string, 21)
	for i := range mints {
		mints[i] = "mint"
	}
	_, err := agg.Prices(context.Background(), mints)
	assert.Error(t, err)
}

func TestPricesBatchIsolatesFailures(t *testing.T) {
	agg := NewAggregatorWithSources(testConfig(), &fakeSource{name: "primary", err: assert.AnError})

	out, err := agg.Prices(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Empty(t, out)
}
