package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"

	"empirepilot/internal/pilot"
	"empirepilot/internal/render"
)

const (
	rateLimitedText = "You're sending messages a little too quickly. Please try again in a while."
	unavailableText = "Sorry, I can't reply right now. Please call us on 023 9212 3456."
)

func (s *Service) start(_ *gotgbot.Bot, ctx *ext.Context) error {
	chatID, ok := privateChat(ctx)
	if !ok {
		return nil
	}
	return s.handleStart(context.Background(), chatID)
}

func (s *Service) help(b *gotgbot.Bot, ctx *ext.Context) error {
	chatID, ok := privateChat(ctx)
	if !ok {
		return nil
	}
	return s.send(context.Background(), chatID, helpText(), nil)
}

func (s *Service) statsCmd(_ *gotgbot.Bot, ctx *ext.Context) error {
	chatID, ok := privateChat(ctx)
	if !ok {
		return nil
	}
	return s.handleStats(context.Background(), chatID, userID(ctx))
}

func (s *Service) actionCmd(action pilot.Action) func(*gotgbot.Bot, *ext.Context) error {
	return func(_ *gotgbot.Bot, ctx *ext.Context) error {
		chatID, ok := privateChat(ctx)
		if !ok {
			return nil
		}
		return s.handleAction(context.Background(), chatID, action)
	}
}

func (s *Service) privateText(_ *gotgbot.Bot, ctx *ext.Context) error {
	msg := ctx.EffectiveMessage
	if msg == nil || ctx.EffectiveChat == nil {
		return nil
	}
	return s.handleText(context.Background(), ctx.EffectiveChat.Id, msg.MessageId, msg.GetText())
}

// handleStart greets the chat. A new session's welcome message is pushed by
// the subscription; a returning chat gets it again with the keyboard.
func (s *Service) handleStart(ctx context.Context, chatID int64) error {
	conv, created, err := s.pilot.Open(ctx, SessionID(chatID))
	if err != nil {
		s.logger.Error().Err(err).Int64("chat_id", chatID).Msg("open session failed")
		return s.send(ctx, chatID, unavailableText, nil)
	}
	if created {
		return nil
	}
	text := pilot.WelcomeText
	if n := len(conv.Messages); n > 0 && conv.Messages[0].Content != "" {
		text = conv.Messages[0].Content
	}
	return s.send(ctx, chatID, render.Plain(text), &gotgbot.SendMessageOpts{ReplyMarkup: quickActionKeyboard()})
}

// handleText forwards a message to the pilot. The reply arrives through the
// subscription, so nothing is sent here on success.
func (s *Service) handleText(ctx context.Context, chatID, messageID int64, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	id := SessionID(chatID)
	if _, _, err := s.pilot.Open(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("session_id", id).Msg("open session failed")
		return s.send(ctx, chatID, unavailableText, nil)
	}
	_, err := s.pilot.Send(ctx, id, text, fmt.Sprintf("tg:%d", messageID))
	return s.replyToError(ctx, chatID, id, err)
}

func (s *Service) handleAction(ctx context.Context, chatID int64, action pilot.Action) error {
	id := SessionID(chatID)
	if _, _, err := s.pilot.Open(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("session_id", id).Msg("open session failed")
		return s.send(ctx, chatID, unavailableText, nil)
	}
	_, err := s.pilot.QuickAction(ctx, id, action)
	return s.replyToError(ctx, chatID, id, err)
}

func (s *Service) replyToError(ctx context.Context, chatID int64, sessionID string, err error) error {
	switch {
	case err == nil, errors.Is(err, pilot.ErrDuplicate), errors.Is(err, pilot.ErrEmptyMessage):
		return nil
	case errors.Is(err, pilot.ErrRateLimited):
		return s.send(ctx, chatID, rateLimitedText, nil)
	default:
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("pilot message failed")
		return s.send(ctx, chatID, unavailableText, nil)
	}
}

func (s *Service) handleStats(ctx context.Context, chatID, uid int64) error {
	if s.adminUserID == 0 || uid != s.adminUserID || s.stats == nil {
		return s.send(ctx, chatID, "This command is for the site admin only.", nil)
	}
	st, err := s.stats.Stats(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("load stats failed")
		return s.send(ctx, chatID, "Failed to load stats.", nil)
	}
	return s.send(ctx, chatID, statsText(st), nil)
}

func privateChat(ctx *ext.Context) (int64, bool) {
	if ctx == nil || ctx.EffectiveChat == nil || ctx.EffectiveChat.Type != "private" {
		return 0, false
	}
	return ctx.EffectiveChat.Id, true
}

func userID(ctx *ext.Context) int64 {
	if ctx.EffectiveUser == nil {
		return 0
	}
	return ctx.EffectiveUser.Id
}
