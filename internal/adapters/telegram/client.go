package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"poseidon/internal/adapters/config"
	"poseidon/pkg/errors"
	"poseidon/pkg/logger"
)

// Client is the chat transport for the notification fan-out.
type Client struct {
	bot *tgbotapi.BotAPI
	log *logger.Logger
}

// NewClient creates the Telegram client. An empty token disables the
// transport; SendMessage then fails and the fan-out falls back to the
// recipient's other transports.
func NewClient(cfg config.TelegramConfig) (*Client, error) {
	c := &Client{log: logger.Get().With("component", "telegram")}

	if cfg.BotToken == "" {
		c.log.Warn("telegram bot token not configured, chat transport disabled")
		return c, nil
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, errors.Wrap(err, "create telegram bot")
	}

	c.bot = bot
	c.log.Infow("telegram transport ready", "bot", bot.Self.UserName)
	return c, nil
}

// SendMessage delivers a markdown-formatted message to a chat.
func (c *Client) SendMessage(chatID int64, text string) error {
	if c.bot == nil {
		return errors.Wrap(errors.ErrVenueUnavailable, "telegram transport disabled")
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	if _, err := c.bot.Send(msg); err != nil {
		return errors.Wrap(errors.ErrVenueUnavailable, err.Error())
	}
	return nil
}
