// Package telegramsink sends delivery notices to a Telegram chat.
package telegramsink

import (
	"context"
	"fmt"

	"github.com/PaulSonOfLars/gotgbot/v2"

	"empirepilot/internal/delivery"
)

type Sender interface {
	SendMessageWithContext(ctx context.Context, chatId int64, text string, opts *gotgbot.SendMessageOpts) (*gotgbot.Message, error)
}

type Sink struct {
	bot    Sender
	chatID int64
}

func New(bot Sender, chatID int64) (*Sink, error) {
	if bot == nil {
		return nil, fmt.Errorf("telegram bot is nil")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("telegram notify chat id is empty")
	}
	return &Sink{bot: bot, chatID: chatID}, nil
}

var _ delivery.Sink = (*Sink)(nil)

func (s *Sink) Deliver(ctx context.Context, n delivery.Notice) error {
	text := n.Text
	if r := []rune(text); len(r) > 4000 {
		text = string(r[:4000])
	}
	opts := &gotgbot.SendMessageOpts{
		LinkPreviewOptions: &gotgbot.LinkPreviewOptions{IsDisabled: true},
	}
	if _, err := s.bot.SendMessageWithContext(ctx, s.chatID, text, opts); err != nil {
		return fmt.Errorf("send telegram notice: %w", err)
	}
	return nil
}
