// Package memory is a process-local store with the same behaviour as the SQL
// store. Used for DB_DRIVER=memory and in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"empirepilot/internal/domain"
	"empirepilot/internal/storage"
)

type conversation struct {
	status      domain.ConversationStatus
	lead        *domain.Lead
	lastUpdated time.Time
	messages    []domain.Message
}

type Store struct {
	mu            sync.RWMutex
	conversations map[string]*conversation
	posts         []domain.NewsPost
	quotes        []domain.Quote
	audit         []domain.AuditEntry
}

func New() *Store {
	return &Store{conversations: make(map[string]*conversation)}
}

func (s *Store) AppendMessage(_ context.Context, conversationID string, m domain.Message) error {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	m.Lead = cloneLead(m.Lead)

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[conversationID]
	if !ok {
		c = &conversation{status: domain.ConversationActive}
		s.conversations[conversationID] = c
	}
	c.messages = append(c.messages, m)
	c.lastUpdated = m.Timestamp
	if m.Lead != nil {
		c.lead = cloneLead(m.Lead)
		if m.Lead.Qualified() && c.status != domain.ConversationClosed {
			c.status = domain.ConversationQualified
		}
	}
	return nil
}

func (s *Store) GetConversation(_ context.Context, id string) (domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	if !ok {
		return domain.Conversation{}, storage.ErrNotFound
	}
	return c.snapshot(id), nil
}

func (s *Store) ListConversations(_ context.Context) ([]domain.Conversation, error) {
	s.mu.RLock()
	out := make([]domain.Conversation, 0, len(s.conversations))
	for id, c := range s.conversations {
		out = append(out, c.snapshot(id))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastUpdated.Equal(out[j].LastUpdated) {
			return out[i].LastUpdated.After(out[j].LastUpdated)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CloseConversation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return storage.ErrNotFound
	}
	c.status = domain.ConversationClosed
	c.lastUpdated = time.Now().UTC()
	return nil
}

func (s *Store) CreatePost(_ context.Context, p domain.NewsPost) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.Hashtags = append([]string{}, p.Hashtags...)

	s.mu.Lock()
	s.posts = append(s.posts, p)
	s.mu.Unlock()
	return nil
}

func (s *Store) ListPosts(_ context.Context) ([]domain.NewsPost, error) {
	s.mu.RLock()
	out := make([]domain.NewsPost, 0, len(s.posts))
	for _, p := range s.posts {
		p.Hashtags = append([]string{}, p.Hashtags...)
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) SetPostStatus(_ context.Context, id string, status domain.PostStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.posts {
		if s.posts[i].ID == id {
			s.posts[i].Status = status
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *Store) CreateQuote(_ context.Context, q domain.Quote) error {
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	s.quotes = append(s.quotes, q)
	s.mu.Unlock()
	return nil
}

func (s *Store) ListQuotes(_ context.Context) ([]domain.Quote, error) {
	s.mu.RLock()
	out := append([]domain.Quote{}, s.quotes...)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) LogAction(_ context.Context, e domain.AuditEntry) error {
	if e.MetaJSON == "" {
		e.MetaJSON = "{}"
	}
	s.mu.Lock()
	s.audit = append(s.audit, e)
	s.mu.Unlock()
	return nil
}

// Audit returns the recorded audit entries in order.
func (s *Store) Audit() []domain.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AuditEntry{}, s.audit...)
}

func (c *conversation) snapshot(id string) domain.Conversation {
	msgs := make([]domain.Message, len(c.messages))
	for i, m := range c.messages {
		m.Lead = cloneLead(m.Lead)
		msgs[i] = m
	}
	return domain.Conversation{
		ID:          id,
		Messages:    msgs,
		Status:      c.status,
		LastUpdated: c.lastUpdated,
		Lead:        cloneLead(c.lead),
	}
}

func cloneLead(l *domain.Lead) *domain.Lead {
	if l == nil {
		return nil
	}
	cp := *l
	return &cp
}
