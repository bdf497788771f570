package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"empirepilot/internal/admin"
	"empirepilot/internal/domain"
	"empirepilot/internal/pilot"
	"empirepilot/internal/queue"
	"empirepilot/internal/storage/memory"
)

type sent struct {
	chatID int64
	text   string
	opts   *gotgbot.SendMessageOpts
}

type fakeBot struct {
	mu   sync.Mutex
	msgs []sent
}

func (f *fakeBot) SendMessageWithContext(_ context.Context, chatId int64, text string, opts *gotgbot.SendMessageOpts) (*gotgbot.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, sent{chatID: chatId, text: text, opts: opts})
	return &gotgbot.Message{}, nil
}

func (f *fakeBot) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.msgs))
	for i, m := range f.msgs {
		out[i] = m.text
	}
	return out
}

type fakeStats struct{ st admin.Stats }

func (f fakeStats) Stats(context.Context) (admin.Stats, error) { return f.st, nil }

func newTestService(t *testing.T, p *pilot.Service) (*Service, *fakeBot) {
	t.Helper()
	bot := &fakeBot{}
	s := NewService(Config{
		Pilot:       p,
		Stats:       fakeStats{st: admin.Stats{TotalChats: 3, QualifiedLeads: 1}},
		Bot:         bot,
		AdminUserID: 7,
		Logger:      zerolog.Nop(),
	})
	return s, bot
}

func newPilot(t *testing.T, store pilot.ConversationStore) *pilot.Service {
	t.Helper()
	p := pilot.NewService(pilot.Config{
		Store:  store,
		Drafts: pilot.NewMemoryDrafts(),
		Dedupe: &fakeDeduper{seen: map[string]bool{}},
		Logger: zerolog.Nop(),
	})
	t.Cleanup(p.Close)
	return p
}

func TestSessionIDRoundTrip(t *testing.T) {
	id := SessionID(-42)
	assert.Equal(t, "tg_-42", id)
	chatID, ok := chatIDOf(id)
	require.True(t, ok)
	assert.Equal(t, int64(-42), chatID)

	_, ok = chatIDOf("session_abc")
	assert.False(t, ok)
}

func TestStartSendsWelcomeWithKeyboard(t *testing.T) {
	store := memory.New()
	s, bot := newTestService(t, newPilot(t, store))

	require.NoError(t, s.handleStart(context.Background(), 100))

	require.Len(t, bot.msgs, 1)
	assert.Equal(t, int64(100), bot.msgs[0].chatID)
	assert.NotContains(t, bot.msgs[0].text, "**")
	kb, ok := bot.msgs[0].opts.ReplyMarkup.(gotgbot.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "ep:qa:quote", kb.InlineKeyboard[0][0].CallbackData)

	conv, err := store.GetConversation(context.Background(), "tg_100")
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 1)

	// A returning chat is greeted again without a second stored welcome.
	require.NoError(t, s.handleStart(context.Background(), 100))
	require.Len(t, bot.msgs, 2)
	conv, err = store.GetConversation(context.Background(), "tg_100")
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 1)
}

func TestTextRepliesArriveThroughSubscription(t *testing.T) {
	store := memory.New()
	s, bot := newTestService(t, newPilot(t, store))
	ctx := context.Background()

	require.NoError(t, s.handleText(ctx, 100, 1, "Tell me about HMO conversions"))

	texts := bot.texts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "Empire Contractors Ltd")
	assert.Contains(t, texts[1], "HMO Conversions in Portsmouth")
	assert.NotContains(t, texts[1], "**")

	// Redelivered Telegram message is ignored.
	require.NoError(t, s.handleText(ctx, 100, 1, "Tell me about HMO conversions"))
	assert.Len(t, bot.texts(), 2)

	conv, err := store.GetConversation(ctx, "tg_100")
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 3)
}

func TestActionStartsQualification(t *testing.T) {
	store := memory.New()
	s, bot := newTestService(t, newPilot(t, store))

	require.NoError(t, s.handleAction(context.Background(), 5, pilot.ActionQuote))

	assert.Len(t, bot.texts(), 2)
	conv, err := store.GetConversation(context.Background(), "tg_5")
	require.NoError(t, err)
	last := conv.Messages[len(conv.Messages)-1]
	require.NotNil(t, last.Lead)
	assert.Equal(t, domain.LeadQualifying, last.Lead.Status)
}

func TestRateLimitedMessageIsExplained(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	p := pilot.NewService(pilot.Config{
		Store:   memory.New(),
		Drafts:  pilot.NewMemoryDrafts(),
		Limiter: queue.NewRateLimiter(rdb, 1),
		Logger:  zerolog.Nop(),
	})
	t.Cleanup(p.Close)
	s, bot := newTestService(t, p)
	ctx := context.Background()

	require.NoError(t, s.handleText(ctx, 9, 1, "hello"))
	require.NoError(t, s.handleText(ctx, 9, 2, "hello again"))

	texts := bot.texts()
	require.Len(t, texts, 3)
	assert.Equal(t, rateLimitedText, texts[2])
}

func TestStatsOnlyForAdmin(t *testing.T) {
	s, bot := newTestService(t, newPilot(t, memory.New()))
	ctx := context.Background()

	require.NoError(t, s.handleStats(ctx, 1, 8))
	require.NoError(t, s.handleStats(ctx, 1, 7))

	texts := bot.texts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "admin only")
	assert.Contains(t, texts[1], "Total chats: 3")
	assert.Contains(t, texts[1], "Qualified leads: 1")
}

func TestOnReplyIgnoresOtherSessions(t *testing.T) {
	s, bot := newTestService(t, newPilot(t, memory.New()))

	s.onReply("session_web", domain.Message{Role: domain.RoleAssistant, Content: "hi"})
	s.onReply("tg_1", domain.Message{Role: domain.RoleUser, Content: "hi"})
	assert.Empty(t, bot.texts())
}

func TestParseActionData(t *testing.T) {
	a, ok := parseActionData("ep:qa:hmo")
	require.True(t, ok)
	assert.Equal(t, pilot.ActionHMO, a)

	_, ok = parseActionData("hb:menu")
	assert.False(t, ok)
}

type fakeDeduper struct {
	seen map[string]bool
	err  error
}

func (f *fakeDeduper) MarkFirst(_ context.Context, key string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func (f *fakeDeduper) Forget(_ context.Context, key string) error {
	delete(f.seen, key)
	return nil
}

func TestProcessorAdmit(t *testing.T) {
	p := Processor{Dedupe: &fakeDeduper{seen: map[string]bool{}}, Logger: zerolog.Nop()}
	assert.True(t, p.admit(10))
	assert.False(t, p.admit(10))
	assert.True(t, p.admit(11))

	failing := Processor{Dedupe: &fakeDeduper{err: errors.New("redis down")}, Logger: zerolog.Nop()}
	assert.True(t, failing.admit(10))
}
