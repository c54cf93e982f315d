package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poseidon/pkg/errors"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"VALIDATION", http.StatusBadRequest},
		{"NOT_FOUND", http.StatusNotFound},
		{"WALLET_BUSY", http.StatusConflict},
		{"ORACLE_UNRELIABLE", http.StatusUnprocessableEntity},
		{"SLIPPAGE_EXHAUSTED", http.StatusUnprocessableEntity},
		{"VENUE_UNAVAILABLE", http.StatusServiceUnavailable},
		{"RPC_UNAVAILABLE", http.StatusServiceUnavailable},
		{"BUNDLE_TIMEOUT", http.StatusServiceUnavailable},
		{"SIGN_REFUSED", http.StatusBadGateway},
		{"INTERNAL", http.StatusInternalServerError},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.code), tt.code)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	handler := withRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, r, http.StatusOK, map[string]string{"ok": "yes"})
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc123")
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "abc123", rec.Header().Get("X-Request-ID"))

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "abc123", env.RequestID)
}

func TestRequestIDGenerated(t *testing.T) {
	handler := withRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, r, http.StatusOK, nil)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Len(t, rec.Header().Get("X-Request-ID"), 8)
}

func TestWriteErrorEnvelope(t *testing.T) {
	handler := withRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := errors.WithHint(
			errors.Wrap(errors.ErrSlippageExhausted, "gave up"),
			map[string]any{"lastTriedBps": 1000},
		)
		writeError(w, r, err)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, "SLIPPAGE_EXHAUSTED", env.Error.Code)
	assert.EqualValues(t, 1000, env.Error.Hint["lastTriedBps"])
	assert.Nil(t, env.Data)
}
