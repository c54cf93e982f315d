package custody

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gagliardetto/solana-go"

	"poseidon/internal/adapters/config"
	"poseidon/pkg/errors"
	"poseidon/pkg/logger"
)

// Client talks to the custody signing oracle. The oracle turns unsigned
// transactions into signed ones; it never returns key material and signing is
// idempotent per (wallet, transaction hash).
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

// NewClient creates a custody client.
func NewClient(cfg config.CustodyConfig) *Client {
	return &Client{
		baseURL: cfg.SignerURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     logger.Get().With("component", "custody"),
	}
}

type createWalletResponse struct {
	WalletID string `json:"walletId"`
	Address  string `json:"address"`
	Error    string `json:"error,omitempty"`
}

// CreateWallet asks the oracle to provision a new custody wallet. Only the
// identifier and address come back; key material stays with the oracle.
func (c *Client) CreateWallet(ctx context.Context) (walletID, address string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/wallets", nil)
	if err != nil {
		return "", "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", errors.Wrap(errors.ErrRPCUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", "", errors.Wrapf(errors.ErrRPCUnavailable, "custody returned %d", resp.StatusCode)
	}

	var out createWalletResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", errors.Wrap(errors.ErrRPCUnavailable, err.Error())
	}
	if out.Error != "" {
		return "", "", errors.Wrapf(errors.ErrSignRefused, "custody: %s", out.Error)
	}
	return out.WalletID, out.Address, nil
}

type signRequest struct {
	Wallet string `json:"wallet"`
	Tx     string `json:"tx"` // base64 unsigned transaction
	// ExtraSigners carries secret material for freshly generated auxiliary
	// keypairs (e.g. a new position account) so the oracle can co-sign.
	ExtraSigners []string `json:"extraSigners,omitempty"`
}

type signResponse struct {
	SignedTx string `json:"signedTx"`
	Error    string `json:"error,omitempty"`
}

// Sign submits the unsigned transaction for signing and returns the decoded
// signed transaction.
func (c *Client) Sign(ctx context.Context, wallet string, tx *solana.Transaction, extraSigners []solana.PrivateKey) (*solana.Transaction, error) {
	unsigned, err := tx.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "serialize transaction")
	}

	req := signRequest{
		Wallet: wallet,
		Tx:     base64.StdEncoding.EncodeToString(unsigned),
	}
	for _, signer := range extraSigners {
		req.ExtraSigners = append(req.ExtraSigners, signer.String())
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sign", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(errors.ErrRPCUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		return nil, errors.Wrapf(errors.ErrSignRefused, "custody returned %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(errors.ErrRPCUnavailable, "custody returned %d", resp.StatusCode)
	}

	var signResp signResponse
	if err := json.NewDecoder(resp.Body).Decode(&signResp); err != nil {
		return nil, errors.Wrap(errors.ErrRPCUnavailable, err.Error())
	}
	if signResp.Error != "" {
		return nil, errors.Wrapf(errors.ErrSignRefused, "custody: %s", signResp.Error)
	}

	signedRaw, err := base64.StdEncoding.DecodeString(signResp.SignedTx)
	if err != nil {
		return nil, errors.Wrap(err, "decode signed transaction")
	}

	signed, err := solana.TransactionFromBytes(signedRaw)
	if err != nil {
		return nil, errors.Wrap(err, "parse signed transaction")
	}
	return signed, nil
}
