// Package telegram runs Empire Pilot inside Telegram private chats.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/callbackquery"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/message"
	"github.com/rs/zerolog"

	"empirepilot/internal/admin"
	"empirepilot/internal/domain"
	"empirepilot/internal/metrics"
	"empirepilot/internal/pilot"
	"empirepilot/internal/render"
)

const sessionPrefix = "tg_"

type Pilot interface {
	Open(ctx context.Context, id string) (domain.Conversation, bool, error)
	Send(ctx context.Context, id, text, idempotencyKey string) (domain.Message, error)
	QuickAction(ctx context.Context, id string, action pilot.Action) (domain.Message, error)
	Subscribe(fn pilot.Listener)
}

type StatsSource interface {
	Stats(ctx context.Context) (admin.Stats, error)
}

type Sender interface {
	SendMessageWithContext(ctx context.Context, chatId int64, text string, opts *gotgbot.SendMessageOpts) (*gotgbot.Message, error)
}

type Service struct {
	pilot       Pilot
	stats       StatsSource
	bot         Sender
	adminUserID int64
	sendTimeout time.Duration
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

type Config struct {
	Pilot       Pilot
	Stats       StatsSource
	Bot         Sender
	AdminUserID int64
	SendTimeout time.Duration
	Logger      zerolog.Logger
	Metrics     *metrics.Metrics
}

// NewService subscribes to the pilot so that assistant replies for Telegram
// sessions are pushed to their chat.
func NewService(cfg Config) *Service {
	m := cfg.Metrics
	if m == nil {
		m = metrics.Global()
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	s := &Service{
		pilot:       cfg.Pilot,
		stats:       cfg.Stats,
		bot:         cfg.Bot,
		adminUserID: cfg.AdminUserID,
		sendTimeout: cfg.SendTimeout,
		logger:      cfg.Logger,
		metrics:     m,
	}
	s.pilot.Subscribe(s.onReply)
	return s
}

func (s *Service) Register(d *ext.Dispatcher) {
	d.AddHandler(handlers.NewCommand("start", s.start))
	d.AddHandler(handlers.NewCommand("help", s.help))
	d.AddHandler(handlers.NewCommand("stats", s.statsCmd))
	for _, qa := range pilot.QuickActions() {
		d.AddHandler(handlers.NewCommand(string(qa.Action), s.actionCmd(qa.Action)))
	}
	d.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbPrefix), s.onCallback))
	d.AddHandler(handlers.NewMessage(func(msg *gotgbot.Message) bool {
		return message.Private(msg) && message.Text(msg) && !strings.HasPrefix(msg.Text, "/")
	}, s.privateText))
}

func SessionID(chatID int64) string {
	return sessionPrefix + strconv.FormatInt(chatID, 10)
}

func chatIDOf(sessionID string) (int64, bool) {
	raw, ok := strings.CutPrefix(sessionID, sessionPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (s *Service) onReply(sessionID string, m domain.Message) {
	chatID, ok := chatIDOf(sessionID)
	if !ok || m.Role != domain.RoleAssistant {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.sendTimeout)
	defer cancel()

	opts := &gotgbot.SendMessageOpts{}
	if m.Content == pilot.WelcomeText {
		opts.ReplyMarkup = quickActionKeyboard()
	}
	if err := s.send(ctx, chatID, render.Plain(m.Content), opts); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to push reply to telegram")
	}
}

func (s *Service) send(ctx context.Context, chatID int64, text string, opts *gotgbot.SendMessageOpts) error {
	if opts == nil {
		opts = &gotgbot.SendMessageOpts{}
	}
	if _, err := s.bot.SendMessageWithContext(ctx, chatID, text, opts); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
