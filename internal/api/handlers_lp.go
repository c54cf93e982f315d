package api

import (
	"net/http"
	"time"

	"poseidon/internal/domain/lp"
	"poseidon/internal/metrics"
	"poseidon/internal/services/pipeline"
	"poseidon/internal/services/submit"
	"poseidon/pkg/errors"
)

type openRequest struct {
	Wallet           string `json:"wallet"`
	Venue            string `json:"venue"`
	Pool             string `json:"pool"`
	CollateralMint   string `json:"collateralMint"`
	CollateralAmount uint64 `json:"collateralAmount"`
	Shape            string `json:"shape"`
	LowerIndex       *int32 `json:"lowerIndex,omitempty"`
	UpperIndex       *int32 `json:"upperIndex,omitempty"`
	Distribution     string `json:"distribution,omitempty"`
	SlippageBps      uint16 `json:"slippageBps"`
	TipUrgency       string `json:"tipUrgency"`
	Sequential       bool   `json:"sequential,omitempty"`
}

// handleAtomicOpen drives the atomic swap-and-provide pipeline under the
// wallet lock.
func (s *Server) handleAtomicOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	venue := lp.Venue(req.Venue)
	if !venue.Valid() {
		writeError(w, r, errors.Wrapf(errors.ErrValidation, "unknown venue %q", req.Venue))
		return
	}

	owner, err := s.wallets.OwnerKey(r.Context(), req.Wallet)
	if err != nil {
		writeError(w, r, err)
		return
	}

	intent := pipeline.OpenIntent{
		Wallet:           req.Wallet,
		Owner:            owner,
		Venue:            venue,
		Pool:             req.Pool,
		CollateralMint:   req.CollateralMint,
		CollateralAmount: req.CollateralAmount,
		Shape:            shapeOrDefault(req.Shape),
		CustomRange:      customRange(req.LowerIndex, req.UpperIndex),
		Distribution:     lp.Distribution(req.Distribution),
		SlippageBps:      req.SlippageBps,
		Urgency:          urgencyOrDefault(req.TipUrgency),
		Mode:             modeFor(req.Sequential),
	}

	var receipt *pipeline.Receipt
	start := time.Now()
	err = s.wallets.Locks().WithLock(req.Wallet, func() error {
		var execErr error
		receipt, execErr = s.composer.ExecuteAtomicOpen(r.Context(), intent)
		return execErr
	})
	metrics.PipelineBuildSeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.IntentsTotal.WithLabelValues("atomic_open", errors.Code(err)).Inc()
		if errors.Is(err, errors.ErrOracleUnreliable) {
			metrics.OracleGateRejections.Inc()
		}
		writeError(w, r, err)
		return
	}

	metrics.IntentsTotal.WithLabelValues("atomic_open", "ok").Inc()
	s.trackNewPosition(r, receipt, venue)
	writeData(w, r, http.StatusOK, receipt)
}

type executeOpenRequest struct {
	openRequest
	AmountA uint64 `json:"amountA"`
	AmountB uint64 `json:"amountB"`
}

// handleExecuteOpen opens a position from pre-swapped balanced amounts.
func (s *Server) handleExecuteOpen(w http.ResponseWriter, r *http.Request) {
	var req executeOpenRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	venue := lp.Venue(req.Venue)
	if !venue.Valid() {
		writeError(w, r, errors.Wrapf(errors.ErrValidation, "unknown venue %q", req.Venue))
		return
	}

	owner, err := s.wallets.OwnerKey(r.Context(), req.Wallet)
	if err != nil {
		writeError(w, r, err)
		return
	}

	intent := pipeline.OpenIntent{
		Wallet:       req.Wallet,
		Owner:        owner,
		Venue:        venue,
		Pool:         req.Pool,
		Shape:        shapeOrDefault(req.Shape),
		CustomRange:  customRange(req.LowerIndex, req.UpperIndex),
		Distribution: lp.Distribution(req.Distribution),
		SlippageBps:  req.SlippageBps,
		Urgency:      urgencyOrDefault(req.TipUrgency),
		Mode:         modeFor(req.Sequential),
	}

	var receipt *pipeline.Receipt
	err = s.wallets.Locks().WithLock(req.Wallet, func() error {
		var execErr error
		receipt, execErr = s.composer.ExecuteOpen(r.Context(), intent, req.AmountA, req.AmountB)
		return execErr
	})
	if err != nil {
		metrics.IntentsTotal.WithLabelValues("execute_open", errors.Code(err)).Inc()
		writeError(w, r, err)
		return
	}

	metrics.IntentsTotal.WithLabelValues("execute_open", "ok").Inc()
	s.trackNewPosition(r, receipt, venue)
	writeData(w, r, http.StatusOK, receipt)
}

type withdrawRequest struct {
	Wallet      string `json:"wallet"`
	Venue       string `json:"venue"`
	Position    string `json:"position"`
	Pool        string `json:"pool"`
	ConvertTo   string `json:"convertTo,omitempty"`
	SlippageBps uint16 `json:"slippageBps"`
	TipUrgency  string `json:"tipUrgency"`
	Sequential  bool   `json:"sequential,omitempty"`
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	owner, err := s.wallets.OwnerKey(r.Context(), req.Wallet)
	if err != nil {
		writeError(w, r, err)
		return
	}

	intent := pipeline.WithdrawIntent{
		Wallet:      req.Wallet,
		Owner:       owner,
		Venue:       lp.Venue(req.Venue),
		PositionID:  req.Position,
		Pool:        req.Pool,
		ConvertTo:   req.ConvertTo,
		SlippageBps: req.SlippageBps,
		Urgency:     urgencyOrDefault(req.TipUrgency),
		Mode:        modeFor(req.Sequential),
	}

	var receipt *pipeline.Receipt
	err = s.wallets.Locks().WithLock(req.Wallet, func() error {
		var execErr error
		receipt, execErr = s.composer.ExecuteWithdraw(r.Context(), intent)
		return execErr
	})
	if err != nil {
		metrics.IntentsTotal.WithLabelValues("withdraw", errors.Code(err)).Inc()
		writeError(w, r, err)
		return
	}

	metrics.IntentsTotal.WithLabelValues("withdraw", "ok").Inc()
	_ = s.store.RemoveTracked(r.Context(), req.Wallet, req.Position)
	writeData(w, r, http.StatusOK, receipt)
}

type rebalanceRequest struct {
	Wallet      string `json:"wallet"`
	Venue       string `json:"venue"`
	Position    string `json:"position"`
	Pool        string `json:"pool"`
	LowerIndex  *int32 `json:"lowerIndex,omitempty"`
	UpperIndex  *int32 `json:"upperIndex,omitempty"`
	SlippageBps uint16 `json:"slippageBps"`
	TipUrgency  string `json:"tipUrgency"`
}

func (s *Server) handleRebalance(w http.ResponseWriter, r *http.Request) {
	var req rebalanceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	owner, err := s.wallets.OwnerKey(r.Context(), req.Wallet)
	if err != nil {
		writeError(w, r, err)
		return
	}

	intent := pipeline.RebalanceIntent{
		Wallet:      req.Wallet,
		Owner:       owner,
		Venue:       lp.Venue(req.Venue),
		PositionID:  req.Position,
		Pool:        req.Pool,
		NewRange:    customRange(req.LowerIndex, req.UpperIndex),
		SlippageBps: req.SlippageBps,
		Urgency:     urgencyOrDefault(req.TipUrgency),
	}

	var receipt *pipeline.Receipt
	err = s.wallets.Locks().WithLock(req.Wallet, func() error {
		var execErr error
		receipt, execErr = s.composer.ExecuteRebalance(r.Context(), intent)
		return execErr
	})
	if err != nil {
		metrics.IntentsTotal.WithLabelValues("rebalance", errors.Code(err)).Inc()
		writeError(w, r, err)
		return
	}

	metrics.IntentsTotal.WithLabelValues("rebalance", "ok").Inc()
	_ = s.store.RemoveTracked(r.Context(), req.Wallet, req.Position)
	s.trackNewPosition(r, receipt, lp.Venue(req.Venue))
	writeData(w, r, http.StatusOK, receipt)
}

type claimRequest struct {
	Wallet     string `json:"wallet"`
	Venue      string `json:"venue"`
	Position   string `json:"position"`
	Pool       string `json:"pool"`
	TipUrgency string `json:"tipUrgency"`
	Sequential bool   `json:"sequential,omitempty"`
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	owner, err := s.wallets.OwnerKey(r.Context(), req.Wallet)
	if err != nil {
		writeError(w, r, err)
		return
	}

	intent := pipeline.ClaimIntent{
		Wallet:     req.Wallet,
		Owner:      owner,
		Venue:      lp.Venue(req.Venue),
		PositionID: req.Position,
		Pool:       req.Pool,
		Urgency:    urgencyOrDefault(req.TipUrgency),
		Mode:       modeFor(req.Sequential),
	}

	var receipt *pipeline.Receipt
	err = s.wallets.Locks().WithLock(req.Wallet, func() error {
		var execErr error
		receipt, execErr = s.composer.ExecuteClaim(r.Context(), intent)
		return execErr
	})
	if err != nil {
		metrics.IntentsTotal.WithLabelValues("collect_fees", errors.Code(err)).Inc()
		writeError(w, r, err)
		return
	}

	metrics.IntentsTotal.WithLabelValues("collect_fees", "ok").Inc()
	writeData(w, r, http.StatusOK, receipt)
}

// trackNewPosition registers the freshly opened position with the monitor.
func (s *Server) trackNewPosition(r *http.Request, receipt *pipeline.Receipt, venue lp.Venue) {
	if receipt.PositionID == "" || receipt.Range == nil {
		return
	}
	_ = s.store.AddTrackedWallet(r.Context(), receipt.Wallet)
	_ = s.store.SaveTracked(r.Context(), &lp.TrackedPosition{
		PositionID:  receipt.PositionID,
		Wallet:      receipt.Wallet,
		Pool:        receipt.Pool,
		Venue:       venue,
		Range:       *receipt.Range,
		LastChecked: time.Now(),
		LastInRange: true,
	})
}

func shapeOrDefault(raw string) lp.RangeShape {
	switch lp.RangeShape(raw) {
	case lp.ShapeWide:
		return lp.ShapeWide
	case lp.ShapeCustom:
		return lp.ShapeCustom
	default:
		return lp.ShapeConcentrated
	}
}

func urgencyOrDefault(raw string) lp.Urgency {
	switch lp.Urgency(raw) {
	case lp.UrgencyTurbo:
		return lp.UrgencyTurbo
	case lp.UrgencySkip:
		return lp.UrgencySkip
	default:
		return lp.UrgencyFast
	}
}

func modeFor(sequential bool) submit.Mode {
	if sequential {
		return submit.ModeSequential
	}
	return submit.ModeBundle
}

func customRange(lower, upper *int32) *lp.Range {
	if lower == nil || upper == nil {
		return nil
	}
	return &lp.Range{Lower: *lower, Upper: *upper}
}
