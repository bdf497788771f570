// Package pilot runs Empire Pilot chat sessions: canned FAQ answers, the lead
// qualification flow and the simulated typing delay before each reply.
package pilot

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"empirepilot/internal/domain"
	"empirepilot/internal/metrics"
	"empirepilot/internal/queue"
	"empirepilot/internal/storage"
)

var (
	ErrEmptyMessage  = errors.New("message is empty")
	ErrRateLimited   = errors.New("rate limited")
	ErrUnknownAction = errors.New("unknown quick action")
	ErrDuplicate     = errors.New("duplicate message")
	ErrNotFound      = errors.New("session not found")
)

type ConversationStore interface {
	AppendMessage(ctx context.Context, conversationID string, m domain.Message) error
	GetConversation(ctx context.Context, id string) (domain.Conversation, error)
}

type Limiter interface {
	Allow(ctx context.Context, key string, now time.Time) (allowed bool, used int64, resetAt time.Time, err error)
}

type Deduper interface {
	MarkFirst(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

type Enqueuer interface {
	Enqueue(ctx context.Context, job queue.DeliveryJob) (string, error)
}

// Listener is called after every assistant message is stored, outside the
// session lock.
type Listener func(sessionID string, m domain.Message)

// Transcript is a conversation as the widget renders it.
type Transcript struct {
	Conversation domain.Conversation `json:"conversation"`
	Typing       bool                `json:"typing"`
	Lead         domain.Lead         `json:"lead"`
}

type Config struct {
	Store      ConversationStore
	Drafts     DraftStore
	Limiter    Limiter
	Dedupe     Deduper
	Deliveries Enqueuer
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics
	// ReplyDelay returns the typing delay for one reply. Nil or a non-positive
	// result stores the reply before Send returns.
	ReplyDelay func() time.Duration
	Now        func() time.Time
}

type Service struct {
	store      ConversationStore
	drafts     DraftStore
	limiter    Limiter
	dedupe     Deduper
	deliveries Enqueuer
	logger     zerolog.Logger
	metrics    *metrics.Metrics
	replyDelay func() time.Duration
	now        func() time.Time

	locks [64]sync.Mutex

	mu        sync.Mutex
	closed    bool
	flush     chan struct{}
	pending   map[string]int
	tails     map[string]chan struct{}
	listeners []Listener
	wg        sync.WaitGroup
}

func NewService(cfg Config) *Service {
	m := cfg.Metrics
	if m == nil {
		m = metrics.Global()
	}
	if cfg.Drafts == nil {
		cfg.Drafts = NewMemoryDrafts()
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		store:      cfg.Store,
		drafts:     cfg.Drafts,
		limiter:    cfg.Limiter,
		dedupe:     cfg.Dedupe,
		deliveries: cfg.Deliveries,
		logger:     cfg.Logger,
		metrics:    m,
		replyDelay: cfg.ReplyDelay,
		now:        cfg.Now,
		flush:      make(chan struct{}),
		pending:    make(map[string]int),
		tails:      make(map[string]chan struct{}),
	}
}

// RandomDelay returns a ReplyDelay drawing uniformly from [min, max].
func RandomDelay(lo, hi time.Duration) func() time.Duration {
	if hi < lo {
		lo, hi = hi, lo
	}
	return func() time.Duration {
		if hi == lo {
			return lo
		}
		return lo + rand.N(hi-lo+1)
	}
}

func NewSessionID() string {
	return "session_" + uuid.NewString()
}

func newMessageID() string {
	return "msg_" + uuid.NewString()
}

// Subscribe registers fn for assistant messages of every session.
func (s *Service) Subscribe(fn Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Open returns the session, storing the welcome message when it has no
// history yet. An empty id starts a new session.
func (s *Service) Open(ctx context.Context, id string) (domain.Conversation, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = NewSessionID()
	}
	lock := s.lockFor(id)
	lock.Lock()
	conv, created, err := s.open(ctx, id)
	lock.Unlock()
	if err != nil {
		return domain.Conversation{}, false, err
	}
	if created {
		s.notify(id, conv.Messages...)
	}
	return conv, created, nil
}

func (s *Service) open(ctx context.Context, id string) (domain.Conversation, bool, error) {
	conv, err := s.store.GetConversation(ctx, id)
	switch {
	case err == nil && len(conv.Messages) > 0:
		return conv, false, nil
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return domain.Conversation{}, false, fmt.Errorf("get conversation: %w", err)
	}

	welcome := domain.Message{
		ID:        newMessageID(),
		Role:      domain.RoleAssistant,
		Content:   WelcomeText,
		Timestamp: s.now(),
	}
	if err := s.appendAssistant(ctx, id, welcome); err != nil {
		return domain.Conversation{}, false, err
	}
	conv, err = s.store.GetConversation(ctx, id)
	if err != nil {
		return domain.Conversation{}, false, fmt.Errorf("get conversation: %w", err)
	}
	return conv, true, nil
}

// Send stores the user's message, advances the lead draft and schedules the
// assistant reply. idempotencyKey may be empty.
func (s *Service) Send(ctx context.Context, id, text, idempotencyKey string) (domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, ErrEmptyMessage
	}
	if err := s.allow(ctx, id); err != nil {
		return domain.Message{}, err
	}
	key, err := s.claim(ctx, id, idempotencyKey)
	if err != nil {
		return domain.Message{}, err
	}

	lock := s.lockFor(id)
	lock.Lock()
	msg, stored, err := s.respond(ctx, id, text)
	lock.Unlock()
	s.notify(id, stored...)
	if err != nil {
		if msg.ID == "" {
			// Nothing was stored, so a retry with the same key must go through.
			s.release(key)
		}
		return domain.Message{}, err
	}
	return msg, nil
}

func (s *Service) respond(ctx context.Context, id, text string) (domain.Message, []domain.Message, error) {
	current, err := s.currentLead(ctx, id)
	if err != nil {
		return domain.Message{}, nil, err
	}
	return s.exchange(ctx, id, text, current, Respond(current, text))
}

// QuickAction posts the action's label as the user's message and answers with
// the matching canned text.
func (s *Service) QuickAction(ctx context.Context, id string, action Action) (domain.Message, error) {
	if _, ok := actionAnswers[action]; !ok {
		return domain.Message{}, ErrUnknownAction
	}
	if err := s.allow(ctx, id); err != nil {
		return domain.Message{}, err
	}

	lock := s.lockFor(id)
	lock.Lock()
	msg, stored, err := s.runAction(ctx, id, action)
	lock.Unlock()
	s.notify(id, stored...)
	if err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

func (s *Service) runAction(ctx context.Context, id string, action Action) (domain.Message, []domain.Message, error) {
	current, err := s.currentLead(ctx, id)
	if err != nil {
		return domain.Message{}, nil, err
	}
	reply, label, ok := respondToAction(current, action)
	if !ok {
		return domain.Message{}, nil, ErrUnknownAction
	}
	return s.exchange(ctx, id, label, current, reply)
}

func (s *Service) Transcript(ctx context.Context, id string) (Transcript, error) {
	conv, err := s.store.GetConversation(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Transcript{}, ErrNotFound
		}
		return Transcript{}, fmt.Errorf("get conversation: %w", err)
	}
	l, err := s.currentLead(ctx, id)
	if err != nil {
		return Transcript{}, err
	}

	s.mu.Lock()
	typing := s.pending[id] > 0
	s.mu.Unlock()

	return Transcript{Conversation: conv, Typing: typing, Lead: l}, nil
}

// Close delivers every pending reply immediately and waits for them.
func (s *Service) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.flush)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Service) allow(ctx context.Context, id string) error {
	if s.limiter == nil {
		return nil
	}
	allowed, used, _, err := s.limiter.Allow(ctx, "chat:"+id, s.now())
	if err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	if !allowed {
		s.logger.Warn().Str("session_id", id).Int64("used", used).Msg("chat rate limited")
		return ErrRateLimited
	}
	return nil
}

// claim marks the idempotency key as used and returns the stored key, or ""
// when there is nothing to release later.
func (s *Service) claim(ctx context.Context, id, idempotencyKey string) (string, error) {
	if idempotencyKey == "" || s.dedupe == nil {
		return "", nil
	}
	key := "chat:" + id + ":" + idempotencyKey
	first, err := s.dedupe.MarkFirst(ctx, key)
	if err != nil {
		return "", fmt.Errorf("dedupe message: %w", err)
	}
	if !first {
		return "", ErrDuplicate
	}
	return key, nil
}

func (s *Service) release(key string) {
	if key == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.dedupe.Forget(ctx, key); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("release idempotency key")
	}
}

// currentLead reads the draft, falling back to the last snapshot stored with
// the conversation when the draft has expired.
func (s *Service) currentLead(ctx context.Context, id string) (domain.Lead, error) {
	l, ok, err := s.drafts.Get(ctx, id)
	if err != nil {
		return domain.Lead{}, fmt.Errorf("get lead draft: %w", err)
	}
	if ok {
		return l, nil
	}
	conv, err := s.store.GetConversation(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Lead{}, nil
		}
		return domain.Lead{}, fmt.Errorf("get conversation: %w", err)
	}
	if conv.Lead != nil {
		return *conv.Lead, nil
	}
	return domain.Lead{}, nil
}

// exchange stores the user's message and the reply. It returns the user's
// message once stored, even alongside an error, and any assistant messages
// stored inline for the caller to announce.
func (s *Service) exchange(ctx context.Context, id, text string, before domain.Lead, reply Reply) (domain.Message, []domain.Message, error) {
	userMsg := domain.Message{
		ID:        newMessageID(),
		Role:      domain.RoleUser,
		Content:   text,
		Timestamp: s.now(),
	}
	if err := s.store.AppendMessage(ctx, id, userMsg); err != nil {
		return domain.Message{}, nil, fmt.Errorf("append user message: %w", err)
	}
	s.metrics.ChatMessages.WithLabelValues(string(domain.RoleUser)).Inc()

	assistant := domain.Message{
		ID:      newMessageID(),
		Role:    domain.RoleAssistant,
		Content: reply.Text,
	}
	if reply.LeadChanged {
		if err := s.drafts.Set(ctx, id, reply.Lead); err != nil {
			return userMsg, nil, fmt.Errorf("set lead draft: %w", err)
		}
		snapshot := reply.Lead
		assistant.Lead = &snapshot
		s.logger.Debug().
			Str("session_id", id).
			Str("stage", stageName(reply.Lead)).
			Msg("lead advanced")
	}
	if reply.Lead.Qualified() && !before.Qualified() {
		s.onQualified(ctx, id, reply.Lead)
	}

	return userMsg, s.scheduleReply(ctx, id, assistant), nil
}

func (s *Service) onQualified(ctx context.Context, id string, l domain.Lead) {
	s.metrics.LeadsQualified.Inc()
	s.logger.Info().Str("session_id", id).Str("project_type", l.ProjectType).Msg("lead qualified")
	if s.deliveries == nil {
		return
	}
	snapshot := l
	jobID, err := s.deliveries.Enqueue(ctx, queue.DeliveryJob{
		Kind:      queue.JobLead,
		SessionID: id,
		Lead:      &snapshot,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", id).Msg("enqueue lead delivery")
		return
	}
	s.metrics.EnqueuedJobs.Inc()
	s.logger.Debug().Str("session_id", id).Str("stream_id", jobID).Msg("lead delivery enqueued")
}

// scheduleReply returns the reply when it was stored inline.
func (s *Service) scheduleReply(ctx context.Context, id string, m domain.Message) []domain.Message {
	var delay time.Duration
	if s.replyDelay != nil {
		delay = s.replyDelay()
	}

	s.mu.Lock()
	if delay <= 0 || s.closed {
		s.mu.Unlock()
		m.Timestamp = s.now()
		if err := s.appendAssistant(ctx, id, m); err != nil {
			s.logger.Error().Err(err).Str("session_id", id).Msg("store assistant reply")
			return nil
		}
		return []domain.Message{m}
	}
	prev := s.tails[id]
	done := make(chan struct{})
	s.tails[id] = done
	s.pending[id]++
	s.wg.Add(1)
	flush := s.flush
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer close(done)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-flush:
			timer.Stop()
		}
		if prev != nil {
			<-prev
		}

		// The request that scheduled this reply has usually returned by now.
		storeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		lock := s.lockFor(id)
		lock.Lock()
		m.Timestamp = s.now()
		err := s.appendAssistant(storeCtx, id, m)
		lock.Unlock()
		if err != nil {
			s.logger.Error().Err(err).Str("session_id", id).Msg("store assistant reply")
		} else {
			s.notify(id, m)
		}

		s.mu.Lock()
		s.pending[id]--
		if s.pending[id] <= 0 {
			delete(s.pending, id)
		}
		if s.tails[id] == done {
			delete(s.tails, id)
		}
		s.mu.Unlock()
	}()
	return nil
}

func (s *Service) appendAssistant(ctx context.Context, id string, m domain.Message) error {
	if err := s.store.AppendMessage(ctx, id, m); err != nil {
		return fmt.Errorf("append assistant message: %w", err)
	}
	s.metrics.ChatMessages.WithLabelValues(string(domain.RoleAssistant)).Inc()
	return nil
}

// notify must not be called with a session lock held: listeners may block on
// the network.
func (s *Service) notify(id string, msgs ...domain.Message) {
	if len(msgs) == 0 {
		return
	}
	s.mu.Lock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()
	for _, m := range msgs {
		if m.Role != domain.RoleAssistant {
			continue
		}
		for _, fn := range listeners {
			fn(id, m)
		}
	}
}

func (s *Service) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &s.locks[h.Sum32()%uint32(len(s.locks))]
}
