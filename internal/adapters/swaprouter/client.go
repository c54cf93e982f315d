package swaprouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"poseidon/internal/adapters/config"
	"poseidon/pkg/errors"
	"poseidon/pkg/logger"
)

// Quote is a routed swap quote from the external router.
type Quote struct {
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
	// OtherAmountThreshold is the router's worst-case output under the
	// requested slippage.
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	SlippageBps          uint16          `json:"slippageBps"`
	PriceImpactPct       string          `json:"priceImpactPct"`
	RoutePlan            json.RawMessage `json:"routePlan"`
}

// SwapTransaction is the router-built unsigned transaction.
type SwapTransaction struct {
	SwapTransaction string `json:"swapTransaction"` // base64
	LastValidBlock  uint64 `json:"lastValidBlockHeight"`
}

// Client calls the external swap-routing service. A circuit breaker guards the
// router: while open, calls fail immediately with ErrVenueUnavailable.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *breaker
	log     *logger.Logger
}

// NewClient creates a swap router client.
func NewClient(cfg config.SwapRouterConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(10), 20),
		breaker: newBreaker(),
		log:     logger.Get().With("component", "swap_router"),
	}
}

// GetQuote requests a swap quote.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps uint16) (*Quote, error) {
	if !c.breaker.Allow() {
		return nil, errors.Wrap(errors.ErrVenueUnavailable, "swap router circuit open")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", fmt.Sprintf("%d", amount))
	q.Set("slippageBps", fmt.Sprintf("%d", slippageBps))

	var quote Quote
	if err := c.getJSON(ctx, c.baseURL+"/quote?"+q.Encode(), &quote); err != nil {
		c.breaker.RecordFailure()
		return nil, err
	}

	c.breaker.RecordSuccess()
	return &quote, nil
}

// BuildSwap asks the router to build the unsigned swap transaction for a quote.
func (c *Client) BuildSwap(ctx context.Context, quote *Quote, owner string) (*SwapTransaction, error) {
	if !c.breaker.Allow() {
		return nil, errors.Wrap(errors.ErrVenueUnavailable, "swap router circuit open")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]interface{}{
		"quoteResponse": quote,
		"userPublicKey": owner,
		// Compute budget is owned by the estimator; the router must not add
		// its own instructions.
		"computeUnitPriceMicroLamports": 0,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal swap request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/swap", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, errors.Wrap(errors.ErrVenueUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.breaker.RecordFailure()
		return nil, errors.Wrapf(errors.ErrVenueUnavailable, "swap router returned %d", resp.StatusCode)
	}

	var tx SwapTransaction
	if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		c.breaker.RecordFailure()
		return nil, errors.Wrap(errors.ErrVenueUnavailable, err.Error())
	}

	c.breaker.RecordSuccess()
	return &tx, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrVenueUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(errors.ErrVenueUnavailable, "swap router returned %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(dest)
}
