package relay

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"poseidon/internal/adapters/config"
	"poseidon/pkg/errors"
	"poseidon/pkg/logger"
)

// BundleOutcome is the terminal state the relay reports for a bundle.
type BundleOutcome string

const (
	BundleLanded  BundleOutcome = "LANDED"
	BundleDropped BundleOutcome = "DROPPED"
	BundleFailed  BundleOutcome = "FAILED"
)

// Client talks to the private relay's block engine over JSON-RPC.
type Client struct {
	baseURL     string
	tipAccounts []solana.PublicKey
	pollTimeout time.Duration
	http        *http.Client
	log         *logger.Logger
}

// NewClient creates a relay client. Tip accounts default to the relay's
// published rotation when none are configured.
func NewClient(cfg config.RelayConfig) (*Client, error) {
	accounts := cfg.TipAccounts
	if len(accounts) == 0 {
		accounts = defaultTipAccounts
	}

	tips := make([]solana.PublicKey, 0, len(accounts))
	for _, a := range accounts {
		pk, err := solana.PublicKeyFromBase58(a)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrValidation, "bad tip account %q", a)
		}
		tips = append(tips, pk)
	}

	return &Client{
		baseURL:     cfg.BlockEngineURL,
		tipAccounts: tips,
		pollTimeout: cfg.PollTimeout,
		http:        &http.Client{Timeout: 20 * time.Second},
		log:         logger.Get().With("component", "relay"),
	}, nil
}

// Default block-engine tip rotation.
var defaultTipAccounts = []string{
	"96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5",
	"HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe",
	"Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY",
	"ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49",
}

// TipAccount returns a tip destination for a new bundle.
func (c *Client) TipAccount() solana.PublicKey {
	// Rotation spreads tips across the relay's accounts.
	idx := int(time.Now().UnixNano()) % len(c.tipAccounts)
	return c.tipAccounts[idx]
}

// SubmitBundle submits an ordered set of signed transactions for atomic
// inclusion and returns the relay's bundle id.
func (c *Client) SubmitBundle(ctx context.Context, txs []*solana.Transaction) (string, error) {
	encoded := make([]string, 0, len(txs))
	for _, tx := range txs {
		raw, err := tx.MarshalBinary()
		if err != nil {
			return "", errors.Wrap(err, "serialize bundle transaction")
		}
		encoded = append(encoded, base64.StdEncoding.EncodeToString(raw))
	}

	var result string
	err := c.call(ctx, "sendBundle", []interface{}{encoded, map[string]string{"encoding": "base64"}}, &result)
	if err != nil {
		return "", err
	}
	return result, nil
}

// WaitForBundle polls the relay until the bundle reaches a terminal state or
// the poll timeout elapses.
func (c *Client) WaitForBundle(ctx context.Context, bundleID string) (BundleOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", errors.Wrapf(errors.ErrBundleTimeout, "bundle %s", bundleID)
		case <-ticker.C:
			status, err := c.bundleStatus(ctx, bundleID)
			if err != nil {
				c.log.Debugw("bundle status poll failed", "bundle", bundleID, "error", err)
				continue
			}
			switch status {
			case "landed", "Landed":
				return BundleLanded, nil
			case "failed", "Failed", "invalid", "Invalid":
				return BundleFailed, nil
			case "dropped", "Dropped":
				return BundleDropped, errors.Wrapf(errors.ErrBundleDropped, "bundle %s", bundleID)
			}
		}
	}
}

type bundleStatusResult struct {
	Value []struct {
		BundleID string `json:"bundle_id"`
		Status   string `json:"status"`
	} `json:"value"`
}

func (c *Client) bundleStatus(ctx context.Context, bundleID string) (string, error) {
	var result bundleStatusResult
	err := c.call(ctx, "getInflightBundleStatuses", []interface{}{[]string{bundleID}}, &result)
	if err != nil {
		return "", err
	}
	if len(result.Value) == 0 {
		return "pending", nil
	}
	return result.Value[0].Status, nil
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      string        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []interface{}, dest interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/bundles", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrVenueUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return errors.Wrapf(errors.ErrVenueUnavailable, "relay returned %d", resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return errors.Wrap(errors.ErrVenueUnavailable, err.Error())
	}
	if rpcResp.Error != nil {
		return errors.Wrapf(errors.ErrVenueUnavailable, "relay error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	return json.Unmarshal(rpcResp.Result, dest)
}
