// Package admin backs the dashboard: counts, chat logs, lead export and the
// quote list.
package admin

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"empirepilot/internal/domain"
)

type Store interface {
	ListConversations(ctx context.Context) ([]domain.Conversation, error)
	GetConversation(ctx context.Context, id string) (domain.Conversation, error)
	CloseConversation(ctx context.Context, id string) error
	ListPosts(ctx context.Context) ([]domain.NewsPost, error)
	ListQuotes(ctx context.Context) ([]domain.Quote, error)
	LogAction(ctx context.Context, e domain.AuditEntry) error
}

type Stats struct {
	TotalChats          int `json:"totalChats"`
	QualifiedLeads      int `json:"qualifiedLeads"`
	ActiveConversations int `json:"activeConversations"`
	NewsPosts           int `json:"newsPosts"`
	Quotes              int `json:"quotes"`
}

type Filter struct {
	// Status is "all", "active", "qualified" or "closed". Empty means all.
	Status string
	Search string
}

// LeadRow is one qualified conversation as listed on the dashboard.
type LeadRow struct {
	SessionID   string      `json:"sessionId"`
	Lead        domain.Lead `json:"lead"`
	LastUpdated time.Time   `json:"lastUpdated"`
}

type Config struct {
	Store  Store
	Logger zerolog.Logger
}

type Service struct {
	store  Store
	logger zerolog.Logger
}

func NewService(cfg Config) *Service {
	return &Service{store: cfg.Store, logger: cfg.Logger}
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	convs, err := s.conversations(ctx)
	if err != nil {
		return Stats{}, err
	}
	posts, err := s.store.ListPosts(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list posts: %w", err)
	}
	quotes, err := s.store.ListQuotes(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list quotes: %w", err)
	}

	st := Stats{TotalChats: len(convs), NewsPosts: len(posts), Quotes: len(quotes)}
	for _, c := range convs {
		if qualified(c) {
			st.QualifiedLeads++
		}
		if c.Status == domain.ConversationActive {
			st.ActiveConversations++
		}
	}
	return st, nil
}

// Conversations lists chat logs, most recently updated first.
func (s *Service) Conversations(ctx context.Context, f Filter) ([]domain.Conversation, error) {
	convs, err := s.conversations(ctx)
	if err != nil {
		return nil, err
	}
	status := strings.ToLower(strings.TrimSpace(f.Status))
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]domain.Conversation, 0, len(convs))
	for _, c := range convs {
		if !hasStatus(c, status) {
			continue
		}
		if search != "" && !matches(c, search) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Service) Conversation(ctx context.Context, id string) (domain.Conversation, error) {
	c, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

// RecentQualified returns up to n qualified leads, newest first.
func (s *Service) RecentQualified(ctx context.Context, n int) ([]LeadRow, error) {
	rows, err := s.leadRows(ctx)
	if err != nil {
		return nil, err
	}
	if n >= 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows, nil
}

func (s *Service) CloseConversation(ctx context.Context, id, actor string) error {
	if err := s.store.CloseConversation(ctx, id); err != nil {
		return fmt.Errorf("close conversation: %w", err)
	}
	s.audit(ctx, actor, "conversation.close", map[string]any{"session_id": id})
	return nil
}

var csvHeader = []string{
	"session_id", "last_updated", "project_type", "location", "budget",
	"timeline", "name", "email", "phone",
}

// ExportLeads writes every qualified lead as CSV and returns the row count.
func (s *Service) ExportLeads(ctx context.Context, w io.Writer, actor string) (int, error) {
	rows, err := s.leadRows(ctx)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			r.SessionID,
			r.LastUpdated.UTC().Format(time.RFC3339),
			r.Lead.ProjectType,
			r.Lead.Location,
			r.Lead.Budget,
			r.Lead.Timeline,
			r.Lead.ContactName,
			r.Lead.ContactEmail,
			r.Lead.ContactPhone,
		}
		if err := cw.Write(rec); err != nil {
			return 0, fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flush csv: %w", err)
	}

	s.audit(ctx, actor, "leads.export", map[string]any{"rows": len(rows)})
	return len(rows), nil
}

func (s *Service) Quotes(ctx context.Context) ([]domain.Quote, error) {
	qs, err := s.store.ListQuotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	return qs, nil
}

func (s *Service) conversations(ctx context.Context) ([]domain.Conversation, error) {
	convs, err := s.store.ListConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].LastUpdated.After(convs[j].LastUpdated)
	})
	return convs, nil
}

func (s *Service) leadRows(ctx context.Context) ([]LeadRow, error) {
	convs, err := s.conversations(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]LeadRow, 0)
	for _, c := range convs {
		if !qualified(c) {
			continue
		}
		l := c.Lead
		if l == nil {
			l = domain.LatestLead(c.Messages)
		}
		if l == nil {
			continue
		}
		rows = append(rows, LeadRow{SessionID: c.ID, Lead: *l, LastUpdated: c.LastUpdated})
	}
	return rows, nil
}

func (s *Service) audit(ctx context.Context, actor, action string, meta map[string]any) {
	if actor == "" {
		actor = "admin"
	}
	b, err := json.Marshal(meta)
	if err != nil {
		b = []byte("{}")
	}
	if err := s.store.LogAction(ctx, domain.AuditEntry{Actor: actor, Action: action, MetaJSON: string(b)}); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("audit log failed")
	}
}

// qualified reports whether the chat ever produced a qualified lead. Closing
// a conversation does not take its lead away.
func qualified(c domain.Conversation) bool {
	return c.Status == domain.ConversationQualified || domain.StatusFor(c.Messages) == domain.ConversationQualified
}

func hasStatus(c domain.Conversation, status string) bool {
	switch status {
	case "", "all":
		return true
	case string(domain.ConversationQualified):
		return qualified(c)
	default:
		return string(c.Status) == status
	}
}

func matches(c domain.Conversation, search string) bool {
	if c.Lead != nil {
		if strings.Contains(strings.ToLower(c.Lead.ContactName), search) ||
			strings.Contains(strings.ToLower(c.Lead.ContactEmail), search) {
			return true
		}
	}
	for _, m := range c.Messages {
		if strings.Contains(strings.ToLower(m.Content), search) {
			return true
		}
	}
	return false
}
