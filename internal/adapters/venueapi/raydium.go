package venueapi

import (
	"context"

	"github.com/shopspring/decimal"

	"poseidon/internal/adapters/config"
	"poseidon/internal/domain/lp"
)

// RaydiumIndex lists CLMM pools from the Raydium v3 API.
type RaydiumIndex struct {
	client
}

// NewRaydiumIndex creates the Raydium CLMM index client.
func NewRaydiumIndex(cfg config.VenuesConfig) *RaydiumIndex {
	return &RaydiumIndex{client: newClient(cfg.RaydiumURL, cfg, "venue_index_raydium")}
}

func (r *RaydiumIndex) Venue() lp.Venue { return lp.VenueCLMM }

type raydiumMint struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

type raydiumPool struct {
	ID      string      `json:"id"`
	Type    string      `json:"type"` // "Concentrated" for CLMM pools
	MintA   raydiumMint `json:"mintA"`
	MintB   raydiumMint `json:"mintB"`
	Price   float64     `json:"price"`
	TVL     float64     `json:"tvl"`
	FeeRate float64     `json:"feeRate"`
	Config  struct {
		TickSpacing uint16 `json:"tickSpacing"`
	} `json:"config"`
	Day struct {
		Volume float64 `json:"volume"`
		APR    float64 `json:"apr"`
	} `json:"day"`
}

type raydiumListResponse struct {
	Data struct {
		Data []raydiumPool `json:"data"`
	} `json:"data"`
}

// ListPools fetches and normalizes concentrated pools; the v3 index mixes
// product lines, so standard pools are filtered here.
func (r *RaydiumIndex) ListPools(ctx context.Context) ([]lp.Pool, error) {
	var out raydiumListResponse
	if err := r.getJSON(ctx, "/pools/info/list?poolType=concentrated&poolSortField=tvl&sortType=desc&pageSize=500&page=1", &out); err != nil {
		return nil, err
	}

	pools := make([]lp.Pool, 0, len(out.Data.Data))
	for _, p := range out.Data.Data {
		if p.Type != "Concentrated" {
			continue
		}
		pools = append(pools, lp.Pool{
			Address:     p.ID,
			Venue:       lp.VenueCLMM,
			TokenA:      lp.Token{Mint: p.MintA.Address, Symbol: p.MintA.Symbol, Decimals: p.MintA.Decimals},
			TokenB:      lp.Token{Mint: p.MintB.Address, Symbol: p.MintB.Symbol, Decimals: p.MintB.Decimals},
			Price:       decimal.NewFromFloat(p.Price),
			TickSpacing: p.Config.TickSpacing,
			TVL:         p.TVL,
			Volume24h:   p.Day.Volume,
			FeeBps:      uint16(p.FeeRate * 10000),
			APR:         p.Day.APR,
		})
	}
	return pools, nil
}
