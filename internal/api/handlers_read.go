package api

import (
	"net/http"
	"strconv"
	"strings"

	"poseidon/internal/domain/lp"
	"poseidon/internal/services/pools"
	"poseidon/pkg/errors"
)

// --- wallets ---

func (s *Server) handleWalletCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChatID int64 `json:"chatId,omitempty"`
	}
	_ = decodeBody(r, &req)

	profile, err := s.wallets.Create(r.Context(), req.ChatID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, profile)
}

func (s *Server) handleWalletGet(w http.ResponseWriter, r *http.Request) {
	profile, err := s.wallets.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, profile)
}

func (s *Server) handleWalletBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.wallets.Balance(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, map[string]uint64{"lamports": balance})
}

// --- pools ---

func (s *Server) handlePoolsTop(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := pools.Filter{
		Sort:  pools.SortField(q.Get("sort")),
		Venue: lp.Venue(strings.ToUpper(q.Get("venue"))),
		Limit: 20,
	}
	if v := q.Get("minTvl"); v != "" {
		filter.MinTVL, _ = strconv.ParseFloat(v, 64)
	}
	if v := q.Get("maxRisk"); v != "" {
		filter.MaxRisk, _ = strconv.Atoi(v)
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}

	list, err := s.pools.TopPools(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, list)
}

func (s *Server) handleBestPool(w http.ResponseWriter, r *http.Request) {
	a, b := r.URL.Query().Get("a"), r.URL.Query().Get("b")
	if a == "" || b == "" {
		writeError(w, r, errors.Wrap(errors.ErrValidation, "both token symbols are required"))
		return
	}

	pool, err := s.pools.BestPoolForPair(r.Context(), a, b)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, pool)
}

func (s *Server) handlePoolDetails(w http.ResponseWriter, r *http.Request) {
	venue := lp.Venue(strings.ToUpper(r.URL.Query().Get("venue")))
	adapter, err := s.registry.ForVenue(venue)
	if err != nil {
		writeError(w, r, err)
		return
	}

	pool, err := adapter.DescribePool(r.Context(), r.PathValue("address"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Layer index metadata (symbols, TVL, APR) over the on-chain view.
	if indexed, ok := s.pools.PoolByAddress(pool.Address); ok {
		pool.TokenA.Symbol = indexed.TokenA.Symbol
		pool.TokenB.Symbol = indexed.TokenB.Symbol
		pool.TokenA.Decimals = indexed.TokenA.Decimals
		pool.TokenB.Decimals = indexed.TokenB.Decimals
		pool.TVL = indexed.TVL
		pool.Volume24h = indexed.Volume24h
		pool.APR = indexed.APR
		pool.RiskScore = indexed.RiskScore
	}

	writeData(w, r, http.StatusOK, pool)
}

// --- positions ---

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.indexer.ListPositions(r.Context(), r.PathValue("wallet"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, positions)
}

// --- oracle ---

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	price, err := s.oracle.Price(r.Context(), r.PathValue("mint"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, price)
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mints []string `json:"mints"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	prices, err := s.oracle.Prices(r.Context(), req.Mints)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, prices)
}
