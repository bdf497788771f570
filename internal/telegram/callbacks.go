package telegram

import (
	"context"
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"empirepilot/internal/pilot"
)

func (s *Service) onCallback(b *gotgbot.Bot, ctx *ext.Context) error {
	if ctx == nil || ctx.CallbackQuery == nil {
		return nil
	}
	if _, err := ctx.CallbackQuery.Answer(b, nil); err != nil {
		s.logger.Warn().Err(err).Msg("failed to answer callback")
	}

	chatID, ok := privateChat(ctx)
	if !ok {
		return nil
	}
	action, ok := parseActionData(ctx.CallbackQuery.Data)
	if !ok {
		return nil
	}
	return s.handleAction(context.Background(), chatID, action)
}

func parseActionData(data string) (pilot.Action, bool) {
	raw, ok := strings.CutPrefix(strings.TrimSpace(data), cbActionPrefix)
	if !ok || raw == "" {
		return "", false
	}
	return pilot.Action(raw), true
}
