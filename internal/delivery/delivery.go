// Package delivery announces qualified leads and quote submissions to the
// team through pluggable sinks.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"empirepilot/internal/queue"
)

var ErrEmptyJob = errors.New("delivery job has no payload")

type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Notice struct {
	Kind   string  `json:"kind"`
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
	Text   string  `json:"text"`
}

// Value returns the field called name, or "".
func (n Notice) Value(name string) string {
	for _, f := range n.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

type Sink interface {
	Deliver(ctx context.Context, n Notice) error
}

// LabelFunc maps a quote project type id to its display label.
type LabelFunc func(id string) string

// FromJob builds the notice for a delivery job.
func FromJob(job queue.DeliveryJob, label LabelFunc) (Notice, error) {
	switch job.Kind {
	case queue.JobLead:
		if job.Lead == nil {
			return Notice{}, ErrEmptyJob
		}
		l := job.Lead
		return build(string(job.Kind), "New qualified lead from Empire Pilot", []Field{
			{"Session", job.SessionID},
			{"Project type", l.ProjectType},
			{"Location", l.Location},
			{"Budget", l.Budget},
			{"Timeline", l.Timeline},
			{"Name", l.ContactName},
			{"Email", l.ContactEmail},
			{"Phone", l.ContactPhone},
		}), nil

	case queue.JobQuote:
		if job.Quote == nil {
			return Notice{}, ErrEmptyJob
		}
		q := job.Quote
		projectType := q.ProjectType
		if label != nil {
			projectType = label(q.ProjectType)
		}
		return build(string(job.Kind), "New quote request", []Field{
			{"Quote", q.ID},
			{"Project type", projectType},
			{"Budget", q.Budget},
			{"Timeline", q.Timeline},
			{"Address", q.Address},
			{"Description", q.Description},
			{"Name", q.Name},
			{"Email", q.Email},
			{"Phone", q.Phone},
			{"Preferred contact", q.PreferredContact},
		}), nil

	default:
		return Notice{}, fmt.Errorf("unknown delivery kind %q", job.Kind)
	}
}

func build(kind, title string, fields []Field) Notice {
	kept := make([]Field, 0, len(fields))
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	for _, f := range fields {
		if strings.TrimSpace(f.Value) == "" {
			continue
		}
		kept = append(kept, f)
		fmt.Fprintf(&b, "\n%s: %s", f.Name, f.Value)
	}
	return Notice{Kind: kind, Title: title, Fields: kept, Text: b.String()}
}

// LogSink writes notices to the log. Used when no other sink is configured.
type LogSink struct {
	Logger zerolog.Logger
}

func (s LogSink) Deliver(_ context.Context, n Notice) error {
	ev := s.Logger.Info().Str("kind", n.Kind)
	for _, f := range n.Fields {
		if f.Name == "Email" || f.Name == "Phone" {
			continue
		}
		ev = ev.Str(strings.ToLower(strings.ReplaceAll(f.Name, " ", "_")), f.Value)
	}
	ev.Msg(n.Title)
	return nil
}
