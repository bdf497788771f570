// Package quote validates and stores submissions from the three-step quote
// wizard: project type, project details, contact details.
package quote

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"empirepilot/internal/domain"
	"empirepilot/internal/metrics"
	"empirepilot/internal/queue"
)

var (
	ErrInvalid     = errors.New("invalid quote")
	ErrUnknownStep = errors.New("unknown wizard step")
)

const (
	StepProject = 1
	StepDetails = 2
	StepContact = 3
)

// ValidationError lists the fields that keep a step from being completed.
type ValidationError struct {
	Step   int               `json:"step"`
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return fmt.Sprintf("step %d: invalid %s", e.Step, strings.Join(names, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

type Submission struct {
	ProjectType      string `json:"projectType"`
	Budget           string `json:"budget"`
	Timeline         string `json:"timeline"`
	Address          string `json:"address"`
	Description      string `json:"description"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	PreferredContact string `json:"preferredContact"`
}

// Summary is the confirmation shown once a quote is stored.
type Summary struct {
	ID               string    `json:"id"`
	ProjectType      string    `json:"projectType"`
	ProjectTypeLabel string    `json:"projectTypeLabel"`
	Budget           string    `json:"budget"`
	Timeline         string    `json:"timeline"`
	Email            string    `json:"email"`
	CreatedAt        time.Time `json:"createdAt"`
}

type Store interface {
	CreateQuote(ctx context.Context, q domain.Quote) error
	ListQuotes(ctx context.Context) ([]domain.Quote, error)
}

type Enqueuer interface {
	Enqueue(ctx context.Context, job queue.DeliveryJob) (string, error)
}

type Config struct {
	Store      Store
	Deliveries Enqueuer
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics
	Now        func() time.Time
}

type Service struct {
	store      Store
	deliveries Enqueuer
	logger     zerolog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
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
		store:      cfg.Store,
		deliveries: cfg.Deliveries,
		logger:     cfg.Logger,
		metrics:    m,
		now:        cfg.Now,
	}
}

// ValidateStep reports whether the fields a step collects are complete. Later
// steps do not re-check earlier ones.
func ValidateStep(step int, s Submission) error {
	fields := make(map[string]string)
	switch step {
	case StepProject:
		if _, ok := projectType(strings.TrimSpace(s.ProjectType)); !ok {
			fields["projectType"] = "choose a project type"
		}
	case StepDetails:
		if !contains(budgetRanges, strings.TrimSpace(s.Budget)) {
			fields["budget"] = "choose a budget range"
		}
		if !contains(timelines, strings.TrimSpace(s.Timeline)) {
			fields["timeline"] = "choose a timeline"
		}
		if strings.TrimSpace(s.Address) == "" {
			fields["address"] = "required"
		}
	case StepContact:
		if strings.TrimSpace(s.Name) == "" {
			fields["name"] = "required"
		}
		email := strings.TrimSpace(s.Email)
		if email == "" {
			fields["email"] = "required"
		} else if _, err := mail.ParseAddress(email); err != nil {
			fields["email"] = "not a valid email address"
		}
		if strings.TrimSpace(s.Phone) == "" {
			fields["phone"] = "required"
		}
		if pc := strings.TrimSpace(s.PreferredContact); pc != "" && !contains(contactMethods, pc) {
			fields["preferredContact"] = "choose email or phone"
		}
	default:
		return ErrUnknownStep
	}
	if len(fields) > 0 {
		return &ValidationError{Step: step, Fields: fields}
	}
	return nil
}

func (s *Service) Submit(ctx context.Context, sub Submission) (Summary, error) {
	for _, step := range []int{StepProject, StepDetails, StepContact} {
		if err := ValidateStep(step, sub); err != nil {
			return Summary{}, err
		}
	}

	pt, _ := projectType(strings.TrimSpace(sub.ProjectType))
	preferred := strings.TrimSpace(sub.PreferredContact)
	if preferred == "" {
		preferred = "email"
	}
	q := domain.Quote{
		ID:               "quote_" + uuid.NewString(),
		ProjectType:      pt.ID,
		Budget:           strings.TrimSpace(sub.Budget),
		Timeline:         strings.TrimSpace(sub.Timeline),
		Address:          strings.TrimSpace(sub.Address),
		Description:      strings.TrimSpace(sub.Description),
		Name:             strings.TrimSpace(sub.Name),
		Email:            strings.TrimSpace(sub.Email),
		Phone:            strings.TrimSpace(sub.Phone),
		PreferredContact: preferred,
		CreatedAt:        s.now(),
	}
	if err := s.store.CreateQuote(ctx, q); err != nil {
		return Summary{}, fmt.Errorf("store quote: %w", err)
	}
	s.metrics.QuotesSubmitted.Inc()
	s.logger.Info().Str("quote_id", q.ID).Str("project_type", q.ProjectType).Msg("quote submitted")

	if s.deliveries != nil {
		snapshot := q
		if _, err := s.deliveries.Enqueue(ctx, queue.DeliveryJob{Kind: queue.JobQuote, Quote: &snapshot}); err != nil {
			s.logger.Error().Err(err).Str("quote_id", q.ID).Msg("enqueue quote delivery")
		} else {
			s.metrics.EnqueuedJobs.Inc()
		}
	}

	return Summary{
		ID:               q.ID,
		ProjectType:      q.ProjectType,
		ProjectTypeLabel: pt.Label,
		Budget:           q.Budget,
		Timeline:         q.Timeline,
		Email:            q.Email,
		CreatedAt:        q.CreatedAt,
	}, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Quote, error) {
	qs, err := s.store.ListQuotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	return qs, nil
}

// Label returns the display name of a project type id.
func Label(id string) string {
	if pt, ok := projectType(id); ok {
		return pt.Label
	}
	return id
}
