package venueapi

import (
	"context"

	"github.com/shopspring/decimal"

	"poseidon/internal/adapters/config"
	"poseidon/internal/domain/lp"
)

// OrcaIndex lists Whirlpools from the Orca public API.
type OrcaIndex struct {
	client
}

// NewOrcaIndex creates the Orca Whirlpool index client.
func NewOrcaIndex(cfg config.VenuesConfig) *OrcaIndex {
	return &OrcaIndex{client: newClient(cfg.OrcaURL, cfg, "venue_index_orca")}
}

func (o *OrcaIndex) Venue() lp.Venue { return lp.VenueWhirlpool }

type orcaToken struct {
	Mint     string `json:"mint"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

type orcaWhirlpool struct {
	Address     string    `json:"address"`
	TokenA      orcaToken `json:"tokenA"`
	TokenB      orcaToken `json:"tokenB"`
	TickSpacing uint16    `json:"tickSpacing"`
	Price       float64   `json:"price"`
	LpFeeRate   float64   `json:"lpFeeRate"`
	TVL         float64   `json:"tvl"`
	Volume      struct {
		Day float64 `json:"day"`
	} `json:"volume"`
	TotalApr struct {
		Day float64 `json:"day"`
	} `json:"totalApr"`
}

type orcaListResponse struct {
	Whirlpools []orcaWhirlpool `json:"whirlpools"`
}

// ListPools fetches and normalizes all whirlpools.
func (o *OrcaIndex) ListPools(ctx context.Context) ([]lp.Pool, error) {
	var out orcaListResponse
	if err := o.getJSON(ctx, "/v1/whirlpool/list", &out); err != nil {
		return nil, err
	}

	pools := make([]lp.Pool, 0, len(out.Whirlpools))
	for _, w := range out.Whirlpools {
		pools = append(pools, lp.Pool{
			Address:     w.Address,
			Venue:       lp.VenueWhirlpool,
			TokenA:      lp.Token{Mint: w.TokenA.Mint, Symbol: w.TokenA.Symbol, Decimals: w.TokenA.Decimals},
			TokenB:      lp.Token{Mint: w.TokenB.Mint, Symbol: w.TokenB.Symbol, Decimals: w.TokenB.Decimals},
			Price:       decimal.NewFromFloat(w.Price),
			TickSpacing: w.TickSpacing,
			TVL:         w.TVL,
			Volume24h:   w.Volume.Day,
			FeeBps:      uint16(w.LpFeeRate * 10000),
			APR:         w.TotalApr.Day * 100,
		})
	}
	return pools, nil
}
