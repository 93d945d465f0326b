package notify

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramNotifier sends messages to a chat id through the Bot API.
type TelegramNotifier struct {
	client messageSender
}

// NewTelegramNotifier builds a notifier from a bot token. The getMe round trip
// is skipped so that startup does not depend on Telegram being reachable.
func NewTelegramNotifier(token string) (*TelegramNotifier, error) {
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{client: b}, nil
}

// Send implements Notifier. msg.To must be a numeric chat id or an @channel name.
func (n *TelegramNotifier) Send(ctx context.Context, msg Message) error {
	var chatID any = msg.To
	if id, err := strconv.ParseInt(msg.To, 10, 64); err == nil {
		chatID = id
	}

	text := msg.Text
	if msg.Subject != "" {
		text = msg.Subject + "\n\n" + text
	}

	if _, err := n.client.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}); err != nil {
		return fmt.Errorf("telegram send to %s: %w", msg.To, err)
	}
	return nil
}
