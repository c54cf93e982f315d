package positions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"poseidon/internal/domain/lp"
	"poseidon/internal/services/pools"
	"poseidon/internal/venues"
	"poseidon/pkg/errors"
	"poseidon/pkg/logger"
)

// Indexer enumerates on-chain positions per wallet across all venues, with a
// short per-wallet cache. Executions targeting a wallet invalidate its entry
// through the submission driver's hook.
type Indexer struct {
	registry   *venues.Registry
	aggregator *pools.Aggregator
	cacheTTL   time.Duration

	mu    sync.RWMutex
	cache map[string]cachedPositions

	log *logger.Logger
}

type cachedPositions struct {
	positions []*lp.Position
	fetchedAt time.Time
}

// NewIndexer creates the position indexer.
func NewIndexer(registry *venues.Registry, aggregator *pools.Aggregator, cacheTTL time.Duration) *Indexer {
	return &Indexer{
		registry:   registry,
		aggregator: aggregator,
		cacheTTL:   cacheTTL,
		cache:      make(map[string]cachedPositions),
		log:        logger.Get().With("component", "position_indexer"),
	}
}

// ListPositions scans every venue in parallel and merges the results. Fee
// amounts are humanized against token decimals where the pool index knows
// them.
func (i *Indexer) ListPositions(ctx context.Context, wallet string) ([]*lp.Position, error) {
	if cached := i.cached(wallet); cached != nil {
		return cached, nil
	}

	owner, err := solana.PublicKeyFromBase58(wallet)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrValidation, "bad wallet address %q", wallet)
	}

	type result struct {
		venue     lp.Venue
		positions []*lp.Position
		err       error
	}

	adapters := i.registry.All()
	var wg sync.WaitGroup
	results := make(chan result, len(adapters))

	for _, adapter := range adapters {
		wg.Add(1)
		go func(adapter venues.Adapter) {
			defer wg.Done()
			positions, err := adapter.EnumeratePositions(ctx, owner)
			results <- result{venue: adapter.Venue(), positions: positions, err: err}
		}(adapter)
	}

	wg.Wait()
	close(results)

	var all []*lp.Position
	for res := range results {
		if res.err != nil {
			i.log.Warnw("position scan failed", "venue", res.venue, "error", res.err)
			continue
		}
		all = append(all, res.positions...)
	}

	i.humanize(ctx, all)

	sort.Slice(all, func(a, b int) bool { return all[a].ID < all[b].ID })

	i.store(wallet, all)
	return all, nil
}

// humanize divides raw fee amounts by token decimals when the pool is known
// to the aggregator's index.
func (i *Indexer) humanize(ctx context.Context, positions []*lp.Position) {
	for _, pos := range positions {
		pool, ok := i.aggregator.PoolByAddress(pos.Pool)
		if !ok {
			continue
		}
		if pool.TokenA.Decimals > 0 {
			pos.FeesA = pos.FeesA.Shift(-int32(pool.TokenA.Decimals))
			pos.AmountA = pos.AmountA.Shift(-int32(pool.TokenA.Decimals))
		}
		if pool.TokenB.Decimals > 0 {
			pos.FeesB = pos.FeesB.Shift(-int32(pool.TokenB.Decimals))
			pos.AmountB = pos.AmountB.Shift(-int32(pool.TokenB.Decimals))
		}
	}
}

// Invalidate drops the wallet's cache entry.
func (i *Indexer) Invalidate(wallet string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.cache, wallet)
}

func (i *Indexer) cached(wallet string) []*lp.Position {
	i.mu.RLock()
	defer i.mu.RUnlock()

	entry, ok := i.cache[wallet]
	if !ok || time.Since(entry.fetchedAt) > i.cacheTTL {
		return nil
	}
	return entry.positions
}

func (i *Indexer) store(wallet string, positions []*lp.Position) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.cache[wallet] = cachedPositions{positions: positions, fetchedAt: time.Now()}
}
