package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog/log"

	"empirepilot/internal/domain"
)

// AppendMessage stores m at the end of the conversation, creating the
// conversation on first use. A lead snapshot on m becomes the conversation's
// current lead; a qualified snapshot marks it qualified unless it was closed.
func (s *Store) AppendMessage(ctx context.Context, conversationID string, m domain.Message) error {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	var leadJSON sql.NullString
	if m.Lead != nil {
		sealed, err := s.sealLead(*m.Lead)
		if err != nil {
			return err
		}
		leadJSON = sql.NullString{String: sealed, Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append message: %w", err)
	}
	defer tx.Rollback()

	ensure := s.sql.Insert("conversations").
		Columns("id", "status", "created_at", "last_updated").
		Values(conversationID, string(domain.ConversationActive), m.Timestamp, m.Timestamp).
		Suffix("ON CONFLICT(id) DO NOTHING")
	if err := execTx(ctx, tx, ensure, "ensure conversation"); err != nil {
		return err
	}

	// Row lock keeps seq allocation serial across instances on postgres.
	status := s.sql.Select("status").From("conversations").Where(sq.Eq{"id": conversationID})
	if s.driver == "postgres" {
		status = status.Suffix("FOR UPDATE")
	}
	statusSQL, statusArgs, err := status.ToSql()
	if err != nil {
		return fmt.Errorf("build conversation status query: %w", err)
	}
	var current string
	if err := tx.QueryRowContext(ctx, statusSQL, statusArgs...).Scan(&current); err != nil {
		return fmt.Errorf("lock conversation: %w", err)
	}

	seqSQL, seqArgs, err := s.sql.Select("COALESCE(MAX(seq), 0) + 1").
		From("messages").
		Where(sq.Eq{"conversation_id": conversationID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build next seq query: %w", err)
	}
	var seq int64
	if err := tx.QueryRowContext(ctx, seqSQL, seqArgs...).Scan(&seq); err != nil {
		return fmt.Errorf("next message seq: %w", err)
	}

	insert := s.sql.Insert("messages").
		Columns("id", "conversation_id", "seq", "role", "content", "lead_json", "created_at").
		Values(m.ID, conversationID, seq, string(m.Role), m.Content, leadJSON, m.Timestamp)
	if err := execTx(ctx, tx, insert, "insert message"); err != nil {
		return err
	}

	update := s.sql.Update("conversations").
		Set("last_updated", m.Timestamp).
		Where(sq.Eq{"id": conversationID})
	if leadJSON.Valid {
		update = update.Set("lead_json", leadJSON)
		if m.Lead.Qualified() && current != string(domain.ConversationClosed) {
			update = update.Set("status", string(domain.ConversationQualified))
		}
	}
	if err := execTx(ctx, tx, update, "touch conversation"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append message: %w", err)
	}
	return nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (domain.Conversation, error) {
	q := s.sql.Select("id", "status", "lead_json", "last_updated").
		From("conversations").
		Where(sq.Eq{"id": id})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("build get conversation query: %w", err)
	}

	c, err := s.scanConversation(s.db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Conversation{}, ErrNotFound
		}
		return domain.Conversation{}, fmt.Errorf("get conversation: %w", err)
	}

	byConv, err := s.loadMessages(ctx, sq.Eq{"conversation_id": id})
	if err != nil {
		return domain.Conversation{}, err
	}
	c.Messages = byConv[id]
	if c.Messages == nil {
		c.Messages = []domain.Message{}
	}
	return c, nil
}

// ListConversations returns every conversation with its messages, most
// recently updated first.
func (s *Store) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	q := s.sql.Select("id", "status", "lead_json", "last_updated").
		From("conversations").
		OrderBy("last_updated DESC", "id ASC")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list conversations query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Conversation, 0)
	for rows.Next() {
		c, err := s.scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}

	byConv, err := s.loadMessages(ctx, nil)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Messages = byConv[out[i].ID]
		if out[i].Messages == nil {
			out[i].Messages = []domain.Message{}
		}
	}
	return out, nil
}

func (s *Store) CloseConversation(ctx context.Context, id string) error {
	q := s.sql.Update("conversations").
		Set("status", string(domain.ConversationClosed)).
		Set("last_updated", time.Now().UTC()).
		Where(sq.Eq{"id": id})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build close conversation query: %w", err)
	}
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("close conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close conversation rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanConversation(row rowScanner) (domain.Conversation, error) {
	var c domain.Conversation
	var status string
	var leadJSON sql.NullString
	if err := row.Scan(&c.ID, &status, &leadJSON, &c.LastUpdated); err != nil {
		return domain.Conversation{}, err
	}
	c.Status = domain.ConversationStatus(status)
	if leadJSON.Valid {
		c.Lead = s.openLead(c.ID, leadJSON.String)
	}
	return c, nil
}

func (s *Store) loadMessages(ctx context.Context, where sq.Sqlizer) (map[string][]domain.Message, error) {
	q := s.sql.Select("id", "conversation_id", "role", "content", "lead_json", "created_at").
		From("messages").
		OrderBy("conversation_id ASC", "seq ASC")
	if where != nil {
		q = q.Where(where)
	}
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build messages query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Message)
	for rows.Next() {
		var m domain.Message
		var convID, role string
		var leadJSON sql.NullString
		if err := rows.Scan(&m.ID, &convID, &role, &m.Content, &leadJSON, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = domain.Role(role)
		if leadJSON.Valid {
			m.Lead = s.openLead(convID, leadJSON.String)
		}
		out[convID] = append(out[convID], m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}

func (s *Store) sealLead(l domain.Lead) (string, error) {
	b, err := json.Marshal(l)
	if err != nil {
		return "", fmt.Errorf("marshal lead: %w", err)
	}
	sealed, err := s.sealer.SealString(string(b))
	if err != nil {
		return "", fmt.Errorf("seal lead: %w", err)
	}
	return sealed, nil
}

// openLead treats unreadable snapshots as absent.
func (s *Store) openLead(conversationID, raw string) *domain.Lead {
	plain, err := s.sealer.OpenString(raw)
	if err != nil {
		log.Warn().Err(err).Str("session_id", conversationID).Msg("open lead snapshot")
		return nil
	}
	var l domain.Lead
	if err := json.Unmarshal([]byte(plain), &l); err != nil {
		log.Warn().Err(err).Str("session_id", conversationID).Msg("malformed lead snapshot")
		return nil
	}
	return &l
}

func execTx(ctx context.Context, tx *sql.Tx, q sq.Sqlizer, what string) error {
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build %s query: %w", what, err)
	}
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}
