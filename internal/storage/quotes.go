package storage

import (
	"context"
	"fmt"
	"time"

	"empirepilot/internal/domain"
)

func (s *Store) CreateQuote(ctx context.Context, qt domain.Quote) error {
	if qt.CreatedAt.IsZero() {
		qt.CreatedAt = time.Now().UTC()
	}
	email, err := s.sealer.SealString(qt.Email)
	if err != nil {
		return fmt.Errorf("seal quote email: %w", err)
	}
	phone, err := s.sealer.SealString(qt.Phone)
	if err != nil {
		return fmt.Errorf("seal quote phone: %w", err)
	}
	q := s.sql.Insert("quotes").
		Columns("id", "project_type", "budget", "timeline", "address", "description",
			"contact_name", "contact_email", "contact_phone", "preferred_contact", "created_at").
		Values(qt.ID, qt.ProjectType, qt.Budget, qt.Timeline, qt.Address, qt.Description,
			qt.Name, email, phone, qt.PreferredContact, qt.CreatedAt)

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build create quote query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("create quote: %w", err)
	}
	return nil
}

// ListQuotes returns quotes newest first.
func (s *Store) ListQuotes(ctx context.Context) ([]domain.Quote, error) {
	q := s.sql.Select("id", "project_type", "budget", "timeline", "address", "description",
		"contact_name", "contact_email", "contact_phone", "preferred_contact", "created_at").
		From("quotes").
		OrderBy("created_at DESC", "id ASC")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list quotes query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Quote, 0)
	for rows.Next() {
		var qt domain.Quote
		if err := rows.Scan(&qt.ID, &qt.ProjectType, &qt.Budget, &qt.Timeline, &qt.Address, &qt.Description,
			&qt.Name, &qt.Email, &qt.Phone, &qt.PreferredContact, &qt.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		if qt.Email, err = s.sealer.OpenString(qt.Email); err != nil {
			return nil, fmt.Errorf("open quote email: %w", err)
		}
		if qt.Phone, err = s.sealer.OpenString(qt.Phone); err != nil {
			return nil, fmt.Errorf("open quote phone: %w", err)
		}
		out = append(out, qt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}
	return out, nil
}
