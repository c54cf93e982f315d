package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poseidon/internal/domain/lp"
	"poseidon/internal/store"
	"poseidon/pkg/errors"
)

type fakeChat struct {
	sent []string
	err  error
}

func (f *fakeChat) SendMessage(chatID int64, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

func newTestFanout(t *testing.T, recipient *lp.Recipient, chat ChatSender) (*Fanout, *store.Store) {
	t.Helper()
	st := store.New(store.NewMemory())
	if recipient != nil {
		require.NoError(t, st.SaveRecipient(context.Background(), recipient))
	}
	return NewFanout(st, chat), st
}

func TestDeliverChatOnly(t *testing.T) {
	chat := &fakeChat{}
	f, _ := newTestFanout(t, &lp.Recipient{
		Wallet:      "w1",
		ChatID:      42,
		Preferences: lp.Preferences{AlertOutOfRange: true},
	}, chat)

	delivered, err := f.Deliver(context.Background(), &Event{
		Kind:       EventOutOfRange,
		Wallet:     "w1",
		Pool:       "pool1",
		PositionID: "pos1",
		Venue:      lp.VenueDLMM,
		DriftUnits: 10,
	})
	require.NoError(t, err)
	assert.True(t, delivered)
	require.Len(t, chat.sent, 1)
	assert.Contains(t, chat.sent[0], "out of range")
	assert.Contains(t, chat.sent[0], "bins")
}

func TestDeliverRespectsOptOut(t *testing.T) {
	chat := &fakeChat{}
	f, _ := newTestFanout(t, &lp.Recipient{
		Wallet:      "w1",
		ChatID:      42,
		Preferences: lp.Preferences{AlertOutOfRange: true, AlertBackInRange: false},
	}, chat)

	delivered, err := f.Deliver(context.Background(), &Event{Kind: EventBackInRange, Wallet: "w1"})
	require.NoError(t, err)
	assert.False(t, delivered)
	assert.Empty(t, chat.sent)
}

func TestDeliverUnknownRecipient(t *testing.T) {
	f, _ := newTestFanout(t, nil, &fakeChat{})

	delivered, err := f.Deliver(context.Background(), &Event{Kind: EventOutOfRange, Wallet: "nobody"})
	require.NoError(t, err)
	assert.False(t, delivered)
}

func TestDeliverWebhookSignature(t *testing.T) {
	var gotSig string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Poseidon-Signature")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	f, _ := newTestFanout(t, &lp.Recipient{
		Wallet:      "w1",
		Webhook:     &lp.WebhookTarget{URL: server.URL, Secret: "shhh"},
		Preferences: lp.Preferences{AlertOutOfRange: true},
	}, &fakeChat{})

	delivered, err := f.Deliver(context.Background(), &Event{
		Kind:       EventOutOfRange,
		Wallet:     "w1",
		Pool:       "pool1",
		PositionID: "pos1",
	})
	require.NoError(t, err)
	assert.True(t, delivered)

	// The signature verifies against the exact payload bytes.
	assert.Equal(t, Sign(gotBody, "shhh"), gotSig)

	var payload Event
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, EventOutOfRange, payload.Kind)
	assert.False(t, payload.Timestamp.IsZero())
}

func TestDeliveredIffAnyTransportSucceeded(t *testing.T) {
	// Chat down, webhook down: not delivered, logged to the ring buffer.
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	chat := &fakeChat{err: errors.Wrap(errors.ErrVenueUnavailable, "chat down")}
	f, st := newTestFanout(t, &lp.Recipient{
		Wallet:      "w1",
		ChatID:      42,
		Webhook:     &lp.WebhookTarget{URL: down.URL, Secret: "s"},
		Preferences: lp.Preferences{AlertOutOfRange: true},
	}, chat)

	delivered, err := f.Deliver(context.Background(), &Event{Kind: EventOutOfRange, Wallet: "w1"})
	require.NoError(t, err)
	assert.False(t, delivered)

	logs, err := st.WorkerLogs(context.Background(), 10)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Contains(t, logs[0].Message, "notification dropped")

	// One transport succeeding flips the predicate.
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer up.Close()

	f2, _ := newTestFanout(t, &lp.Recipient{
		Wallet:      "w1",
		ChatID:      42,
		Webhook:     &lp.WebhookTarget{URL: up.URL, Secret: "s"},
		Preferences: lp.Preferences{AlertOutOfRange: true},
	}, chat)

	delivered, err = f2.Deliver(context.Background(), &Event{Kind: EventOutOfRange, Wallet: "w1"})
	require.NoError(t, err)
	assert.True(t, delivered)
}

func TestSignDeterministic(t *testing.T) {
	payload := []byte(`{"kind":"OUT_OF_RANGE"}`)
	assert.Equal(t, Sign(payload, "secret"), Sign(payload, "secret"))
	assert.NotEqual(t, Sign(payload, "secret"), Sign(payload, "other"))
}
