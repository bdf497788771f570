package storage

import (
	"context"
	"fmt"

	"empirepilot/internal/domain"
)

func (s *Store) LogAction(ctx context.Context, e domain.AuditEntry) error {
	if e.MetaJSON == "" {
		e.MetaJSON = "{}"
	}
	q := s.sql.Insert("audit_log").
		Columns("actor", "action", "meta_json", "created_at").
		Values(e.Actor, e.Action, e.MetaJSON, nowExpr(s.driver))

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build audit query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("log action: %w", err)
	}
	return nil
}
