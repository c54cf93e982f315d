package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"poseidon/pkg/errors"
)

// envelope is the uniform response shape: { data | error, requestId }.
type envelope struct {
	Data      interface{}    `json:"data,omitempty"`
	Error     *errorEnvelope `json:"error,omitempty"`
	RequestID string         `json:"requestId"`
}

type errorEnvelope struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hint    map[string]any `json:"hint,omitempty"`
}

type ctxKey int

const requestIDKey ctxKey = iota

// withRequestID assigns each request a short ID and echoes it in
// X-Request-ID.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()[:8]
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestID(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func writeData(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Data: data, RequestID: requestID(r)})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.Code(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(code))
	_ = json.NewEncoder(w).Encode(envelope{
		Error: &errorEnvelope{
			Code:    code,
			Message: err.Error(),
			Hint:    errors.HintOf(err),
		},
		RequestID: requestID(r),
	})
}

// statusFor maps taxonomy codes onto HTTP statuses: client errors 4xx,
// transient upstream 503, fatal upstream 502.
func statusFor(code string) int {
	switch code {
	case "VALIDATION":
		return http.StatusBadRequest
	case "NOT_FOUND":
		return http.StatusNotFound
	case "WALLET_BUSY":
		return http.StatusConflict
	case "INSUFFICIENT_FUNDS", "UNSUPPORTED_POOL_TYPE", "ORACLE_UNRELIABLE",
		"SLIPPAGE_EXHAUSTED":
		return http.StatusUnprocessableEntity
	case "VENUE_UNAVAILABLE", "RPC_UNAVAILABLE", "BUNDLE_DROPPED", "BUNDLE_TIMEOUT":
		return http.StatusServiceUnavailable
	case "POOL_PAUSED", "SIGN_REFUSED", "SLIPPAGE_EXCEEDED":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return errors.Wrap(errors.ErrValidation, "malformed request body")
	}
	return nil
}
