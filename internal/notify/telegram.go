package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"

	"github.com/znetops/netmon/internal/status"
)

// Telegram sends transition messages to a chat via the Bot API.
type Telegram struct {
	bot    *bot.Bot
	chatID int64
}

// NewTelegram builds a Telegram notifier. An empty token yields (nil, nil)
// so callers can pass the result straight into a Multi.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if token == "" {
		return nil, nil
	}
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	return &Telegram{bot: b, chatID: chatID}, nil
}

func (t *Telegram) Send(ctx context.Context, ev status.AlertEvent) error {
	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   formatMessage(ev),
	})
	if err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	return nil
}

func formatMessage(ev status.AlertEvent) string {
	icon := "🚨"
	if ev.To == status.StatusUp {
		icon = "✅"
	}
	return fmt.Sprintf("%s %s (%s)\n%s → %s\nAt: %s",
		icon,
		ev.Name,
		ev.Host,
		ev.From,
		ev.To,
		ev.Timestamp.UTC().Format("2006-01-02 15:04 MST"),
	)
}
