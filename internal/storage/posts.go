package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog/log"

	"empirepilot/internal/domain"
)

func (s *Store) CreatePost(ctx context.Context, p domain.NewsPost) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	tags := p.Hashtags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("marshal hashtags: %w", err)
	}
	q := s.sql.Insert("news_posts").
		Columns("id", "original_text", "enhanced_text", "hashtags_json", "template", "image_url", "status", "created_at").
		Values(p.ID, p.OriginalText, p.EnhancedText, string(tagsJSON), p.Template, p.ImageURL, string(p.Status), p.CreatedAt)

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build create post query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// ListPosts returns posts newest first.
func (s *Store) ListPosts(ctx context.Context) ([]domain.NewsPost, error) {
	q := s.sql.Select("id", "original_text", "enhanced_text", "hashtags_json", "template", "image_url", "status", "created_at").
		From("news_posts").
		OrderBy("created_at DESC", "id ASC")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list posts query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.NewsPost, 0)
	for rows.Next() {
		var p domain.NewsPost
		var tagsJSON, status string
		if err := rows.Scan(&p.ID, &p.OriginalText, &p.EnhancedText, &tagsJSON, &p.Template, &p.ImageURL, &status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		p.Status = domain.PostStatus(status)
		if err := json.Unmarshal([]byte(tagsJSON), &p.Hashtags); err != nil {
			log.Warn().Err(err).Str("post_id", p.ID).Msg("malformed hashtags")
			p.Hashtags = nil
		}
		if p.Hashtags == nil {
			p.Hashtags = []string{}
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return out, nil
}

func (s *Store) SetPostStatus(ctx context.Context, id string, status domain.PostStatus) error {
	q := s.sql.Update("news_posts").Set("status", string(status)).Where(sq.Eq{"id": id})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build set post status query: %w", err)
	}
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("set post status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set post status rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
