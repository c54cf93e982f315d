package pools

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"poseidon/internal/adapters/venueapi"
	"poseidon/internal/domain/lp"
	"poseidon/pkg/errors"
	"poseidon/pkg/logger"
)

// SortField selects the aggregator's ordering.
type SortField string

const (
	SortAPR               SortField = "apr"
	SortTVL               SortField = "tvl"
	SortVolume            SortField = "volume"
	SortRiskAdjustedYield SortField = "risk-adjusted-yield"
)

// Filter narrows the aggregated pool list.
type Filter struct {
	MinTVL  float64
	MaxRisk int
	Venue   lp.Venue // empty = all venues
	Sort    SortField
	Limit   int
}

// Aggregator fetches, normalizes, filters, dedups, and scores pools across
// venues. Per-venue results are cached for a short TTL.
type Aggregator struct {
	indices  []venueapi.Index
	cacheTTL time.Duration
	minTVL   float64
	maxRisk  int

	mu    sync.RWMutex
	cache map[lp.Venue]cachedList

	log *logger.Logger
}

type cachedList struct {
	pools     []lp.Pool
	fetchedAt time.Time
}

// NewAggregator creates the pool aggregator.
func NewAggregator(indices []venueapi.Index, cacheTTL time.Duration, minTVL float64, maxRisk int) *Aggregator {
	return &Aggregator{
		indices:  indices,
		cacheTTL: cacheTTL,
		minTVL:   minTVL,
		maxRisk:  maxRisk,
		cache:    make(map[lp.Venue]cachedList),
		log:      logger.Get().With("component", "pool_aggregator"),
	}
}

// TopPools returns the filtered, deduplicated, sorted pool list.
func (a *Aggregator) TopPools(ctx context.Context, filter Filter) ([]lp.Pool, error) {
	all, err := a.fetchAll(ctx, filter.Venue)
	if err != nil {
		return nil, err
	}

	minTVL := filter.MinTVL
	if minTVL <= 0 {
		minTVL = a.minTVL
	}
	maxRisk := filter.MaxRisk
	if maxRisk <= 0 {
		maxRisk = a.maxRisk
	}

	filtered := make([]lp.Pool, 0, len(all))
	for _, p := range all {
		if p.TVL < minTVL || p.RiskScore > maxRisk {
			continue
		}
		filtered = append(filtered, p)
	}

	deduped := dedupByPair(filtered)
	sortPools(deduped, filter.Sort)

	if filter.Limit > 0 && len(deduped) > filter.Limit {
		deduped = deduped[:filter.Limit]
	}
	return deduped, nil
}

// BestPoolForPair returns the single highest-APR pool for the unordered
// symbol pair across all venues.
func (a *Aggregator) BestPoolForPair(ctx context.Context, symbolA, symbolB string) (*lp.Pool, error) {
	all, err := a.fetchAll(ctx, "")
	if err != nil {
		return nil, err
	}

	key := pairKey(symbolA, symbolB)
	var best *lp.Pool
	for i := range all {
		p := &all[i]
		if p.PairKey() != key {
			continue
		}
		if best == nil || p.APR > best.APR {
			best = p
		}
	}

	if best == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "no pool for pair %s", key)
	}
	return best, nil
}

// fetchAll collects per-venue lists concurrently, serving each venue from
// cache while its entry is fresh. One venue failing does not sink the rest;
// all venues failing does.
func (a *Aggregator) fetchAll(ctx context.Context, only lp.Venue) ([]lp.Pool, error) {
	type result struct {
		venue  lp.Venue
		pools  []lp.Pool
		err    error
		cached bool
	}

	var wg sync.WaitGroup
	results := make(chan result, len(a.indices))

	for _, idx := range a.indices {
		if only != "" && idx.Venue() != only {
			continue
		}

		if cached, ok := a.cached(idx.Venue()); ok {
			results <- result{venue: idx.Venue(), pools: cached, cached: true}
			continue
		}

		wg.Add(1)
		go func(idx venueapi.Index) {
			defer wg.Done()
			pools, err := idx.ListPools(ctx)
			results <- result{venue: idx.Venue(), pools: pools, err: err}
		}(idx)
	}

	wg.Wait()
	close(results)

	var all []lp.Pool
	var lastErr error
	got := false
	for res := range results {
		if res.err != nil {
			a.log.Warnw("venue index fetch failed", "venue", res.venue, "error", res.err)
			lastErr = res.err
			continue
		}
		got = true

		if res.cached {
			all = append(all, res.pools...)
			continue
		}

		scored := make([]lp.Pool, len(res.pools))
		for i, p := range res.pools {
			p.RiskScore = RiskScore(&p)
			scored[i] = p
		}
		a.store(res.venue, scored)
		all = append(all, scored...)
	}

	if !got {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, errors.Wrap(errors.ErrVenueUnavailable, "no venue index reachable")
	}
	return all, nil
}

func (a *Aggregator) cached(venue lp.Venue) ([]lp.Pool, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	entry, ok := a.cache[venue]
	if !ok || time.Since(entry.fetchedAt) > a.cacheTTL {
		return nil, false
	}
	return entry.pools, true
}

func (a *Aggregator) store(venue lp.Venue, pools []lp.Pool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cache[venue] = cachedList{pools: pools, fetchedAt: time.Now()}
}

// PoolByAddress serves a pool from the venue caches without forcing a
// fetch. Callers that need a guaranteed-fresh view go through the venue
// adapter instead.
func (a *Aggregator) PoolByAddress(address string) (*lp.Pool, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, entry := range a.cache {
		for i := range entry.pools {
			if entry.pools[i].Address == address {
				p := entry.pools[i]
				return &p, true
			}
		}
	}
	return nil, false
}

// dedupByPair keeps the highest-APR pool per unordered symbol pair.
func dedupByPair(pools []lp.Pool) []lp.Pool {
	best := make(map[string]lp.Pool, len(pools))
	for _, p := range pools {
		key := p.PairKey()
		if cur, ok := best[key]; !ok || p.APR > cur.APR {
			best[key] = p
		}
	}

	out := make([]lp.Pool, 0, len(best))
	for _, p := range best {
		out = append(out, p)
	}
	return out
}

func sortPools(pools []lp.Pool, field SortField) {
	sort.Slice(pools, func(i, j int) bool {
		switch field {
		case SortTVL:
			return pools[i].TVL > pools[j].TVL
		case SortVolume:
			return pools[i].Volume24h > pools[j].Volume24h
		case SortRiskAdjustedYield:
			return pools[i].RiskAdjustedYield() > pools[j].RiskAdjustedYield()
		default:
			return pools[i].APR > pools[j].APR
		}
	})
}

func pairKey(a, b string) string {
	a, b = strings.ToUpper(a), strings.ToUpper(b)
	if a > b {
		a, b = b, a
	}
	return a + "/" + b
}
