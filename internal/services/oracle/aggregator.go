package oracle

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"poseidon/internal/adapters/config"
	"poseidon/pkg/errors"
	"poseidon/pkg/logger"
)

// AggregatedPrice is the multi-source price view for a mint.
type AggregatedPrice struct {
	Mint       string          `json:"mint"`
	Price      decimal.Decimal `json:"price"` // median of live sources
	Confidence decimal.Decimal `json:"confidence"`
	Sources    []Reading       `json:"sources"`
	// Unreliable is set when every source is stale or the pairwise
	// divergence reaches or exceeds the gate. The engine treats it as a hard stop for
	// opening or rebalancing.
	Unreliable bool      `json:"unreliable"`
	FetchedAt  time.Time `json:"fetchedAt"`
}

// Aggregator queries the sources in parallel, takes the median of live
// prices, and applies the divergence gate. Results are cached briefly.
type Aggregator struct {
	sources       []Source
	sourceTimeout time.Duration
	staleAfter    time.Duration
	cacheTTL      time.Duration
	maxDivergence decimal.Decimal

	mu    sync.RWMutex
	cache map[string]*AggregatedPrice

	log *logger.Logger
}

// NewAggregator creates the oracle aggregator with the default source pair:
// the confidence-interval feed as primary and the spot aggregator as
// secondary.
func NewAggregator(cfg config.OracleConfig) *Aggregator {
	return &Aggregator{
		sources:       []Source{newPythSource(cfg), newJupiterSource(cfg)},
		sourceTimeout: cfg.SourceTimeout,
		staleAfter:    cfg.StaleAfter,
		cacheTTL:      cfg.CacheTTL,
		maxDivergence: decimal.NewFromFloat(cfg.MaxDivergence),
		cache:         make(map[string]*AggregatedPrice),
		log:           logger.Get().With("component", "oracle"),
	}
}

// NewAggregatorWithSources is the test seam.
func NewAggregatorWithSources(cfg config.OracleConfig, sources ...Source) *Aggregator {
	agg := NewAggregator(cfg)
	agg.sources = sources
	return agg
}

// Price returns the aggregated price for a mint.
func (a *Aggregator) Price(ctx context.Context, mint string) (*AggregatedPrice, error) {
	if cached := a.cached(mint); cached != nil {
		return cached, nil
	}

	readings := a.fetchAll(ctx, mint)
	if len(readings) == 0 {
		return nil, errors.Wrapf(errors.ErrOracleUnreliable, "no oracle source returned a price for %s", mint)
	}

	now := time.Now()
	live := make([]Reading, 0, len(readings))
	widest := decimal.Zero
	for _, r := range readings {
		if now.Sub(r.PublishedAt) > a.staleAfter {
			continue
		}
		live = append(live, r)
		if r.Confidence.GreaterThan(widest) {
			widest = r.Confidence
		}
	}

	agg := &AggregatedPrice{
		Mint:       mint,
		Sources:    readings,
		Confidence: widest,
		FetchedAt:  now,
	}

	if len(live) == 0 {
		agg.Unreliable = true
		// Stale median is still reported for display purposes.
		agg.Price = median(readings)
	} else {
		agg.Price = median(live)
		// Divergence at exactly the gate counts as unreliable.
		if maxPairwiseDivergence(live).GreaterThanOrEqual(a.maxDivergence) {
			agg.Unreliable = true
		}
	}

	a.store(mint, agg)
	return agg, nil
}

// Prices aggregates a batch of mints, isolating per-mint failures.
func (a *Aggregator) Prices(ctx context.Context, mints []string) (map[string]*AggregatedPrice, error) {
	if len(mints) > 20 {
		return nil, errors.Wrapf(errors.ErrValidation, "batch of %d mints exceeds limit of 20", len(mints))
	}

	out := make(map[string]*AggregatedPrice, len(mints))
	for _, mint := range mints {
		price, err := a.Price(ctx, mint)
		if err != nil {
			a.log.Debugw("batch price failed", "mint", mint, "error", err)
			continue
		}
		out[mint] = price
	}
	return out, nil
}

func (a *Aggregator) fetchAll(ctx context.Context, mint string) []Reading {
	var wg sync.WaitGroup
	results := make(chan *Reading, len(a.sources))

	for _, src := range a.sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(ctx, a.sourceTimeout)
			defer cancel()

			reading, err := src.Price(ctx, mint)
			if err != nil {
				a.log.Debugw("oracle source failed", "source", src.Name(), "mint", mint, "error", err)
				return
			}
			results <- reading
		}(src)
	}

	wg.Wait()
	close(results)

	readings := make([]Reading, 0, len(a.sources))
	for r := range results {
		readings = append(readings, *r)
	}
	return readings
}

func (a *Aggregator) cached(mint string) *AggregatedPrice {
	a.mu.RLock()
	defer a.mu.RUnlock()

	entry, ok := a.cache[mint]
	if !ok || time.Since(entry.FetchedAt) > a.cacheTTL {
		return nil
	}
	return entry
}

func (a *Aggregator) store(mint string, agg *AggregatedPrice) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cache[mint] = agg
}

func median(readings []Reading) decimal.Decimal {
	prices := make([]decimal.Decimal, len(readings))
	for i, r := range readings {
		prices[i] = r.Price
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].LessThan(prices[j]) })

	n := len(prices)
	if n%2 == 1 {
		return prices[n/2]
	}
	return prices[n/2-1].Add(prices[n/2]).Div(decimal.NewFromInt(2))
}

// maxPairwiseDivergence returns the widest relative gap between any two
// readings, relative to the smaller of the pair.
func maxPairwiseDivergence(readings []Reading) decimal.Decimal {
	maxDiv := decimal.Zero
	for i := 0; i < len(readings); i++ {
		for j := i + 1; j < len(readings); j++ {
			lo, hi := readings[i].Price, readings[j].Price
			if lo.GreaterThan(hi) {
				lo, hi = hi, lo
			}
			if lo.IsZero() {
				continue
			}
			div := hi.Sub(lo).Div(lo)
			if div.GreaterThan(maxDiv) {
				maxDiv = div
			}
		}
	}
	return maxDiv
}
