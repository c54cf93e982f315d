package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"poseidon/internal/adapters/config"
	"poseidon/pkg/errors"
)

// Reading is one source's view of a mint's price.
type Reading struct {
	Source      string
	Price       decimal.Decimal
	Confidence  decimal.Decimal // zero when the source has no interval
	PublishedAt time.Time
}

// Source fetches a price reading for a mint.
type Source interface {
	Name() string
	Price(ctx context.Context, mint string) (*Reading, error)
}

// pythSource reads the confidence-interval-bearing Hermes feed.
type pythSource struct {
	baseURL string
	http    *http.Client
	// feedIDs maps mints onto Hermes price-feed ids.
	feedIDs map[string]string
}

func newPythSource(cfg config.OracleConfig) *pythSource {
	return &pythSource{
		baseURL: cfg.PythHermesURL,
		http:    &http.Client{Timeout: cfg.SourceTimeout},
		feedIDs: wellKnownFeedIDs,
	}
}

// wellKnownFeedIDs covers the mints the engine trades most; unknown mints
// fall back to the secondary source alone.
var wellKnownFeedIDs = map[string]string{
	"So11111111111111111111111111111111111111112":  "ef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d", // SOL/USD
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": "eaa020c61cc479712813461ce153894a96a6c00b21ed0cfc2798d1f9a9e9c94a", // USDC/USD
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": "2b89b9dc8fdf9f34709a5b106b472f0f39bb6ca9ce04b0fd7f2e971688e2e53b", // USDT/USD
	"J1toso1uCk3RLmjorhTtrVwY9HJ7X8V9yYac6Y7kGCPn": "67be9f519b95cf24338801051f9a808eff0a578ccb388db73b7f6fe1de019ffb", // JitoSOL/USD
}

func (p *pythSource) Name() string { return "pyth" }

type hermesResponse struct {
	Parsed []struct {
		Price struct {
			Price       string `json:"price"`
			Conf        string `json:"conf"`
			Expo        int32  `json:"expo"`
			PublishTime int64  `json:"publish_time"`
		} `json:"price"`
	} `json:"parsed"`
}

func (p *pythSource) Price(ctx context.Context, mint string) (*Reading, error) {
	feedID, ok := p.feedIDs[mint]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "no pyth feed for mint %s", mint)
	}

	u := fmt.Sprintf("%s/v2/updates/price/latest?ids[]=%s", p.baseURL, url.QueryEscape(feedID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrVenueUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(errors.ErrVenueUnavailable, "hermes returned %d", resp.StatusCode)
	}

	var out hermesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(errors.ErrVenueUnavailable, err.Error())
	}
	if len(out.Parsed) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "no hermes data for mint %s", mint)
	}

	raw := out.Parsed[0].Price
	price, err := scaledDecimal(raw.Price, raw.Expo)
	if err != nil {
		return nil, err
	}
	conf, err := scaledDecimal(raw.Conf, raw.Expo)
	if err != nil {
		return nil, err
	}

	return &Reading{
		Source:      p.Name(),
		Price:       price,
		Confidence:  conf,
		PublishedAt: time.Unix(raw.PublishTime, 0),
	}, nil
}

func scaledDecimal(raw string, expo int32) (decimal.Decimal, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return decimal.Zero, errors.Wrapf(errors.ErrInternal, "bad price value %q", raw)
	}
	return decimal.New(n, expo), nil
}

// jupiterSource reads the spot-only aggregator price feed.
type jupiterSource struct {
	baseURL string
	http    *http.Client
}

func newJupiterSource(cfg config.OracleConfig) *jupiterSource {
	return &jupiterSource{
		baseURL: cfg.JupiterPriceURL,
		http:    &http.Client{Timeout: cfg.SourceTimeout},
	}
}

func (j *jupiterSource) Name() string { return "jupiter" }

type jupiterPriceResponse struct {
	Data map[string]struct {
		Price float64 `json:"price"`
	} `json:"data"`
	TimeTaken float64 `json:"timeTaken"`
}

func (j *jupiterSource) Price(ctx context.Context, mint string) (*Reading, error) {
	u := fmt.Sprintf("%s/price?ids=%s", j.baseURL, url.QueryEscape(mint))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := j.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrVenueUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(errors.ErrVenueUnavailable, "price feed returned %d", resp.StatusCode)
	}

	var out jupiterPriceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(errors.ErrVenueUnavailable, err.Error())
	}

	entry, ok := out.Data[mint]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "no price for mint %s", mint)
	}

	// Spot feed carries no publish timestamp; treat the response as live.
	return &Reading{
		Source:      j.Name(),
		Price:       decimal.NewFromFloat(entry.Price),
		PublishedAt: time.Now(),
	}, nil
}
