// Package news drafts and lists site news posts built by the enhance templates.
package news

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"empirepilot/internal/domain"
	"empirepilot/internal/enhance"
	"empirepilot/internal/metrics"
)

var (
	ErrEmptyText    = errors.New("post text is empty")
	ErrInvalidImage = errors.New("image must be an http(s) or data:image URL")
)

type PostStore interface {
	CreatePost(ctx context.Context, p domain.NewsPost) error
	ListPosts(ctx context.Context) ([]domain.NewsPost, error)
	SetPostStatus(ctx context.Context, id string, status domain.PostStatus) error
}

// DemoSource supplies the bundled posts shown after stored ones.
type DemoSource interface {
	DemoPosts(now time.Time) []domain.NewsPost
}

type Draft struct {
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl,omitempty"`
	Publish  bool   `json:"publish"`
}

type Filter struct {
	Search        string
	Tag           string
	IncludeDrafts bool
}

type Config struct {
	Store   PostStore
	Demo    DemoSource
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

type Service struct {
	store   PostStore
	demo    DemoSource
	logger  zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(cfg Config) *Service {
	m := cfg.Metrics
	if m == nil {
		m = metrics.Global()
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		store:   cfg.Store,
		demo:    cfg.Demo,
		logger:  cfg.Logger,
		metrics: m,
		now:     cfg.Now,
	}
}

// Preview shows what Create would store for text without saving anything.
func (s *Service) Preview(text string) (enhance.Result, error) {
	if strings.TrimSpace(text) == "" {
		return enhance.Result{}, ErrEmptyText
	}
	return enhance.Enhance(text), nil
}

func (s *Service) Create(ctx context.Context, d Draft) (domain.NewsPost, error) {
	res, err := s.Preview(d.Text)
	if err != nil {
		return domain.NewsPost{}, err
	}
	image := strings.TrimSpace(d.ImageURL)
	if image != "" && !validImage(image) {
		return domain.NewsPost{}, ErrInvalidImage
	}

	status := domain.PostDraft
	if d.Publish {
		status = domain.PostPublished
	}
	p := domain.NewsPost{
		ID:           "post_" + uuid.NewString(),
		OriginalText: strings.TrimSpace(d.Text),
		EnhancedText: res.Text,
		Hashtags:     res.Hashtags,
		Template:     res.Template,
		ImageURL:     image,
		Status:       status,
		CreatedAt:    s.now(),
	}
	if err := s.store.CreatePost(ctx, p); err != nil {
		return domain.NewsPost{}, fmt.Errorf("create post: %w", err)
	}
	s.metrics.NewsPosts.Inc()
	s.logger.Info().Str("post_id", p.ID).Str("template", p.Template).Str("status", string(p.Status)).Msg("news post created")
	return p, nil
}

func (s *Service) Publish(ctx context.Context, id string) error {
	if err := s.store.SetPostStatus(ctx, id, domain.PostPublished); err != nil {
		return fmt.Errorf("publish post: %w", err)
	}
	return nil
}

// List returns stored posts newest first followed by the demo posts.
func (s *Service) List(ctx context.Context, f Filter) ([]domain.NewsPost, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]domain.NewsPost, 0, len(all))
	for _, p := range all {
		if !f.IncludeDrafts && p.Status != domain.PostPublished {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.EnhancedText), search) {
			continue
		}
		if f.Tag != "" && !p.HasTag(f.Tag) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Tags returns every hashtag of published posts in first-seen order.
func (s *Service) Tags(ctx context.Context) ([]string, error) {
	posts, err := s.List(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, p := range posts {
		for _, t := range p.Hashtags {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out, nil
}

// Count returns the number of stored posts, drafts included.
func (s *Service) Count(ctx context.Context) (int, error) {
	posts, err := s.store.ListPosts(ctx)
	if err != nil {
		return 0, fmt.Errorf("list posts: %w", err)
	}
	return len(posts), nil
}

func (s *Service) all(ctx context.Context) ([]domain.NewsPost, error) {
	stored, err := s.store.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if s.demo == nil {
		return stored, nil
	}
	return append(stored, s.demo.DemoPosts(s.now())...), nil
}

func validImage(u string) bool {
	lower := strings.ToLower(u)
	return strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "data:image/")
}
