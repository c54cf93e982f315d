package venueapi

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"

	"poseidon/internal/adapters/config"
	"poseidon/internal/domain/lp"
)

// MeteoraIndex lists DLMM pairs from the Meteora public API.
type MeteoraIndex struct {
	client
}

// NewMeteoraIndex creates the Meteora DLMM index client.
func NewMeteoraIndex(cfg config.VenuesConfig) *MeteoraIndex {
	return &MeteoraIndex{client: newClient(cfg.MeteoraURL, cfg, "venue_index_meteora")}
}

func (m *MeteoraIndex) Venue() lp.Venue { return lp.VenueDLMM }

// meteoraPair is the wire shape of /pair/all entries.
type meteoraPair struct {
	Address    string  `json:"address"`
	Name       string  `json:"name"`
	MintX      string  `json:"mint_x"`
	MintY      string  `json:"mint_y"`
	BinStep    uint16  `json:"bin_step"`
	BaseFeeBps string  `json:"base_fee_percentage"`
	Liquidity  string  `json:"liquidity"`
	TradeVol   float64 `json:"trade_volume_24h"`
	CurPrice   float64 `json:"current_price"`
	APR        float64 `json:"apr"`
}

// ListPools fetches and normalizes all DLMM pairs.
func (m *MeteoraIndex) ListPools(ctx context.Context) ([]lp.Pool, error) {
	var pairs []meteoraPair
	if err := m.getJSON(ctx, "/pair/all", &pairs); err != nil {
		return nil, err
	}

	pools := make([]lp.Pool, 0, len(pairs))
	for _, p := range pairs {
		symX, symY := splitPairName(p.Name)
		tvl, _ := strconv.ParseFloat(p.Liquidity, 64)
		feePct, _ := strconv.ParseFloat(p.BaseFeeBps, 64)

		pools = append(pools, lp.Pool{
			Address:   p.Address,
			Venue:     lp.VenueDLMM,
			TokenA:    lp.Token{Mint: p.MintX, Symbol: symX},
			TokenB:    lp.Token{Mint: p.MintY, Symbol: symY},
			Price:     decimal.NewFromFloat(p.CurPrice),
			BinStep:   p.BinStep,
			TVL:       tvl,
			Volume24h: p.TradeVol,
			FeeBps:    uint16(feePct * 100),
			APR:       p.APR,
		})
	}
	return pools, nil
}

// splitPairName splits a "SOL-USDC" style pair name.
func splitPairName(name string) (string, string) {
	for i := 0; i < len(name); i++ {
		if name[i] == '-' || name[i] == '/' {
			return name[:i], name[i+1:]
		}
	}
	return name, ""
}
