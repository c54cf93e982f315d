package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"poseidon/internal/domain/lp"
	"poseidon/pkg/errors"
)

type createScheduleRequest struct {
	Wallet        string `json:"wallet"`
	Venue         string `json:"venue"`
	Pool          string `json:"pool"`
	AmountPerTick uint64 `json:"amountPerTick"`
	Budget        uint64 `json:"budget"`
	IntervalHours int    `json:"intervalHours"`
	MaxExecutions int    `json:"maxExecutions"`
	Shape         string `json:"shape,omitempty"`
}

func (s *Server) handleScheduleCreate(w http.ResponseWriter, r *http.Request) {
	var req createScheduleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if req.AmountPerTick == 0 || req.Budget == 0 || req.IntervalHours <= 0 || req.MaxExecutions <= 0 {
		writeError(w, r, errors.Wrap(errors.ErrValidation, "amount, budget, interval, and max executions must be positive"))
		return
	}
	if req.AmountPerTick > req.Budget {
		writeError(w, r, errors.Wrap(errors.ErrValidation, "amount per tick exceeds budget"))
		return
	}
	venue := lp.Venue(req.Venue)
	if !venue.Valid() {
		writeError(w, r, errors.Wrapf(errors.ErrValidation, "unknown venue %q", req.Venue))
		return
	}
	if _, err := s.wallets.Load(r.Context(), req.Wallet); err != nil {
		writeError(w, r, err)
		return
	}

	interval := time.Duration(req.IntervalHours) * time.Hour
	schedule := &lp.Schedule{
		ID:            uuid.NewString(),
		Wallet:        req.Wallet,
		Pool:          req.Pool,
		Venue:         venue,
		AmountPerTick: req.AmountPerTick,
		Budget:        req.Budget,
		Interval:      interval,
		NextTick:      time.Now().Add(interval),
		MaxExecutions: req.MaxExecutions,
		Shape:         shapeOrDefault(req.Shape),
		Status:        lp.ScheduleActive,
		CreatedAt:     time.Now(),
	}

	if err := s.store.SaveSchedule(r.Context(), schedule); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, schedule)
}

func (s *Server) handleSchedulesByWallet(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.store.SchedulesByWallet(r.Context(), r.PathValue("wallet"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, schedules)
}

func (s *Server) handleSchedulePause(w http.ResponseWriter, r *http.Request) {
	s.transitionSchedule(w, r, lp.ScheduleActive, lp.SchedulePaused)
}

func (s *Server) handleScheduleResume(w http.ResponseWriter, r *http.Request) {
	s.transitionSchedule(w, r, lp.SchedulePaused, lp.ScheduleActive)
}

func (s *Server) handleScheduleCancel(w http.ResponseWriter, r *http.Request) {
	schedule, err := s.store.GetSchedule(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	schedule.Status = lp.ScheduleCancelled
	if err := s.store.SaveSchedule(r.Context(), schedule); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, schedule)
}

func (s *Server) handleScheduleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.store.ScheduleHistory(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, history)
}

func (s *Server) transitionSchedule(w http.ResponseWriter, r *http.Request, from, to lp.ScheduleStatus) {
	schedule, err := s.store.GetSchedule(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if schedule.Status != from {
		writeError(w, r, errors.Wrapf(errors.ErrValidation, "schedule is %s, not %s", schedule.Status, from))
		return
	}

	schedule.Status = to
	if to == lp.ScheduleActive {
		schedule.NextTick = time.Now().Add(schedule.Interval)
	}

	if err := s.store.SaveSchedule(r.Context(), schedule); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, schedule)
}
