package venueapi

import (
	"context"
	"encoding/json"
	"net/http"

	"golang.org/x/time/rate"

	"poseidon/internal/adapters/config"
	"poseidon/internal/domain/lp"
	"poseidon/pkg/errors"
	"poseidon/pkg/logger"
)

// Index lists pools from one venue's public index, normalized into the
// canonical Pool (risk score is filled in by the aggregator).
type Index interface {
	Venue() lp.Venue
	ListPools(ctx context.Context) ([]lp.Pool, error)
}

// client is the shared HTTP plumbing for the per-venue indices.
type client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

func newClient(baseURL string, cfg config.VenuesConfig, component string) client {
	return client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(5), 10),
		log:     logger.Get().With("component", component),
	}
}

func (c *client) getJSON(ctx context.Context, path string, dest interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrVenueUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errors.Wrapf(errors.ErrNotFound, "venue API %s", path)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(errors.ErrVenueUnavailable, "venue API returned %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return errors.Wrap(errors.ErrVenueUnavailable, err.Error())
	}
	return nil
}

// All constructs the index clients for every enabled venue.
func All(cfg config.VenuesConfig) []Index {
	return []Index{
		NewMeteoraIndex(cfg),
		NewOrcaIndex(cfg),
		NewRaydiumIndex(cfg),
	}
}
