package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jpillora/backoff"

	"poseidon/internal/adapters/telegram"
	"poseidon/internal/domain/lp"
	"poseidon/internal/store"
	"poseidon/pkg/errors"
	"poseidon/pkg/logger"
)

const (
	transportAttempts = 3
	retryBase         = time.Second
)

// ChatSender is the chat transport surface; satisfied by the Telegram
// adapter.
type ChatSender interface {
	SendMessage(chatID int64, text string) error
}

// Fanout resolves the recipient for a wallet and delivers the event across
// every enabled transport. An event counts as delivered when any transport
// succeeded; dropped events are logged to the worker ring buffer.
type Fanout struct {
	store   *store.Store
	chat    ChatSender
	webhook *webhookSender
	log     *logger.Logger
}

// NewFanout creates the notification fan-out.
func NewFanout(st *store.Store, chat ChatSender) *Fanout {
	return &Fanout{
		store:   st,
		chat:    chat,
		webhook: newWebhookSender(),
		log:     logger.Get().With("component", "notify"),
	}
}

var _ ChatSender = (*telegram.Client)(nil)

// Deliver fans the event out to the wallet's recipient. Returns whether any
// transport succeeded.
func (f *Fanout) Deliver(ctx context.Context, event *Event) (bool, error) {
	recipient, err := f.store.GetRecipient(ctx, event.Wallet)
	if err != nil {
		if errors.Is(err, store.ErrKeyMissing) {
			return false, nil
		}
		return false, err
	}

	if !wantsEvent(recipient.Preferences, event.Kind) {
		return false, nil
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	delivered := false

	if recipient.ChatID != 0 {
		if err := f.withRetry(ctx, func() error {
			return f.chat.SendMessage(recipient.ChatID, chatMessage(event))
		}); err != nil {
			f.log.Warnw("chat delivery failed", "wallet", event.Wallet, "kind", event.Kind, "error", err)
		} else {
			delivered = true
		}
	}

	if recipient.Webhook != nil && recipient.Webhook.URL != "" {
		if err := f.withRetry(ctx, func() error {
			return f.webhook.Send(recipient.Webhook, event)
		}); err != nil {
			f.log.Warnw("webhook delivery failed", "wallet", event.Wallet, "kind", event.Kind, "error", err)
		} else {
			delivered = true
		}
	}

	if !delivered {
		_ = f.store.AppendWorkerLog(ctx, "warn",
			fmt.Sprintf("notification dropped: %s for %s", event.Kind, event.Wallet))
	}
	return delivered, nil
}

func (f *Fanout) withRetry(ctx context.Context, send func() error) error {
	boff := &backoff.Backoff{Min: retryBase, Max: 10 * time.Second, Factor: 2}

	var lastErr error
	for attempt := 0; attempt < transportAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(boff.Duration()):
			}
		}
		if lastErr = send(); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

// chatMessage formats the event for the chat transport.
func chatMessage(event *Event) string {
	switch event.Kind {
	case EventOutOfRange:
		return fmt.Sprintf("⚠️ *Position out of range*\nPool: `%s`\nPosition: `%s`\nDrift: %s from range edge",
			event.Pool, event.PositionID, driftLabel(event.DriftUnits, event.Venue))
	case EventBackInRange:
		return fmt.Sprintf("✅ *Position back in range*\nPool: `%s`\nPosition: `%s`", event.Pool, event.PositionID)
	case EventRebalanced:
		return fmt.Sprintf("🔄 *Position rebalanced*\nPool: `%s`\nNew range: [%d, %d]", event.Pool, event.Range.Lower, event.Range.Upper)
	case EventDCAExecuted:
		return fmt.Sprintf("💰 *DCA deposit executed*\nPool: `%s`\n%s", event.Pool, event.Message)
	case EventDCAFailed:
		return fmt.Sprintf("❌ *DCA deposit failed*\nPool: `%s`\n%s", event.Pool, event.Message)
	case EventDailyDigest:
		return fmt.Sprintf("📊 *Daily summary*\n%s", event.Message)
	default:
		return fmt.Sprintf("*%s*\n%s", event.Kind, event.Message)
	}
}

func driftLabel(units int32, venue lp.Venue) string {
	unit := "ticks"
	if venue == lp.VenueDLMM {
		unit = "bins"
	}
	return fmt.Sprintf("%s %s", humanize.Comma(int64(units)), unit)
}
