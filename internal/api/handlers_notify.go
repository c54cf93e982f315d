package api

import (
	"net/http"

	"poseidon/internal/domain/lp"
	"poseidon/pkg/errors"
)

type recipientRequest struct {
	Wallet      string            `json:"wallet"`
	ChatID      int64             `json:"chatId,omitempty"`
	Webhook     *lp.WebhookTarget `json:"webhook,omitempty"`
	Preferences lp.Preferences    `json:"preferences"`
}

func (s *Server) handleRecipientRegister(w http.ResponseWriter, r *http.Request) {
	var req recipientRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	recipient := &lp.Recipient{
		Wallet:      req.Wallet,
		ChatID:      req.ChatID,
		Webhook:     req.Webhook,
		Preferences: req.Preferences,
	}
	if !recipient.HasTransport() {
		writeError(w, r, errors.Wrap(errors.ErrValidation, "at least one transport is required"))
		return
	}

	if err := s.store.SaveRecipient(r.Context(), recipient); err != nil {
		writeError(w, r, err)
		return
	}
	_ = s.store.AddTrackedWallet(r.Context(), req.Wallet)

	writeData(w, r, http.StatusCreated, recipient)
}

func (s *Server) handleRecipientPreferences(w http.ResponseWriter, r *http.Request) {
	var prefs lp.Preferences
	if err := decodeBody(r, &prefs); err != nil {
		writeError(w, r, err)
		return
	}

	recipient, err := s.store.GetRecipient(r.Context(), r.PathValue("wallet"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	recipient.Preferences = prefs
	if err := s.store.SaveRecipient(r.Context(), recipient); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, recipient)
}

func (s *Server) handleWorkerStatus(w http.ResponseWriter, r *http.Request) {
	state, err := s.store.GetWorkerState(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	logs, err := s.store.WorkerLogs(r.Context(), 50)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeData(w, r, http.StatusOK, map[string]interface{}{
		"state": state,
		"logs":  logs,
	})
}

func (s *Server) handleWorkerTrigger(w http.ResponseWriter, r *http.Request) {
	if err := s.monitor.TriggerCheck(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}

	state, err := s.store.GetWorkerState(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, state)
}
