package admin

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"empirepilot/internal/domain"
	"empirepilot/internal/storage"
	"empirepilot/internal/storage/memory"
)

func seed(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

	add := func(session, id string, role domain.Role, content string, at time.Time, l *domain.Lead) {
		require.NoError(t, store.AppendMessage(ctx, session, domain.Message{ID: id, Role: role, Content: content, Timestamp: at, Lead: l}))
	}

	add("a", "a1", domain.RoleUser, "hello", base, nil)
	add("a", "a2", domain.RoleAssistant, "hi there", base.Add(time.Second), nil)

	add("b", "b1", domain.RoleUser, "need a quote for a loft", base.Add(time.Hour), nil)
	add("b", "b2", domain.RoleAssistant, "thanks", base.Add(time.Hour+time.Second), &domain.Lead{
		ProjectType: "Extension", Location: "Hilsea", Budget: "£250,000+", Timeline: "ASAP",
		ContactName: "Jane Doe", ContactEmail: "jane@x.com", ContactPhone: "Not provided",
		Status: domain.LeadQualified,
	})

	add("c", "c1", domain.RoleUser, "planning?", base.Add(2*time.Hour), nil)
	add("c", "c2", domain.RoleAssistant, "quote flow", base.Add(2*time.Hour+time.Second), &domain.Lead{Status: domain.LeadQualifying})

	require.NoError(t, store.CreatePost(ctx, domain.NewsPost{ID: "p", Status: domain.PostDraft}))
	require.NoError(t, store.CreateQuote(ctx, domain.Quote{ID: "q"}))
	return store
}

func TestStatsCountsMatchFilters(t *testing.T) {
	store := seed(t)
	svc := NewService(Config{Store: store, Logger: zerolog.Nop()})
	ctx := context.Background()

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{TotalChats: 3, QualifiedLeads: 1, ActiveConversations: 2, NewsPosts: 1, Quotes: 1}, st)

	qualified, err := svc.Conversations(ctx, Filter{Status: "qualified"})
	require.NoError(t, err)
	assert.Len(t, qualified, st.QualifiedLeads)

	active, err := svc.Conversations(ctx, Filter{Status: "active"})
	require.NoError(t, err)
	assert.Len(t, active, st.ActiveConversations)
	for _, c := range active {
		assert.Equal(t, domain.ConversationActive, domain.StatusFor(c.Messages))
	}

	all, err := svc.Conversations(ctx, Filter{Status: "all"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})
}

func TestConversationSearch(t *testing.T) {
	svc := NewService(Config{Store: seed(t), Logger: zerolog.Nop()})
	ctx := context.Background()

	byName, err := svc.Conversations(ctx, Filter{Search: "JANE"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "b", byName[0].ID)

	byContent, err := svc.Conversations(ctx, Filter{Search: "planning"})
	require.NoError(t, err)
	require.Len(t, byContent, 1)
	assert.Equal(t, "c", byContent[0].ID)
}

func TestExportLeadsWritesCSVAndAudits(t *testing.T) {
	store := seed(t)
	svc := NewService(Config{Store: store, Logger: zerolog.Nop()})

	var buf bytes.Buffer
	n, err := svc.ExportLeads(context.Background(), &buf, "ops")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{
		"b", "2026-07-01T10:00:01Z", "Extension", "Hilsea", "£250,000+", "ASAP",
		"Jane Doe", "jane@x.com", "Not provided",
	}, records[1])

	audit := store.Audit()
	require.Len(t, audit, 1)
	assert.Equal(t, "ops", audit[0].Actor)
	assert.Equal(t, "leads.export", audit[0].Action)
	assert.JSONEq(t, `{"rows":1}`, audit[0].MetaJSON)
}

func TestCloseConversation(t *testing.T) {
	store := seed(t)
	svc := NewService(Config{Store: store, Logger: zerolog.Nop()})
	ctx := context.Background()

	require.NoError(t, svc.CloseConversation(ctx, "b", ""))
	c, err := svc.Conversation(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, domain.ConversationClosed, c.Status)

	// The lead survives closing.
	rows, err := svc.RecentQualified(ctx, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "b", rows[0].SessionID)

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.QualifiedLeads)
	closed, err := svc.Conversations(ctx, Filter{Status: "closed"})
	require.NoError(t, err)
	assert.Len(t, closed, 1)

	assert.ErrorIs(t, svc.CloseConversation(ctx, "zzz", ""), storage.ErrNotFound)
	assert.Equal(t, "admin", store.Audit()[0].Actor)
}

func TestRecentQualifiedLimit(t *testing.T) {
	svc := NewService(Config{Store: seed(t), Logger: zerolog.Nop()})
	rows, err := svc.RecentQualified(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = svc.RecentQualified(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Jane Doe", rows[0].Lead.ContactName)
}
