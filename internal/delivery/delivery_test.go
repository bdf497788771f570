package delivery

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"empirepilot/internal/domain"
	"empirepilot/internal/queue"
)

func TestFromJobLead(t *testing.T) {
	n, err := FromJob(queue.DeliveryJob{
		Kind:      queue.JobLead,
		SessionID: "session_1",
		Lead: &domain.Lead{
			ProjectType: "HMO Conversion", Location: "Southsea", Budget: "£100,000 - £250,000",
			Timeline: "ASAP", ContactName: "Jane", ContactEmail: "jane@x.com", ContactPhone: "Not provided",
			Status: domain.LeadQualified,
		},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "lead", n.Kind)
	assert.Equal(t, "Southsea", n.Value("Location"))
	assert.True(t, strings.HasPrefix(n.Text, "New qualified lead from Empire Pilot\n"))
	assert.Contains(t, n.Text, "Email: jane@x.com")
}

func TestFromJobQuoteSkipsEmptyFields(t *testing.T) {
	n, err := FromJob(queue.DeliveryJob{
		Kind:  queue.JobQuote,
		Quote: &domain.Quote{ID: "quote_1", ProjectType: "hmo", Name: "Ann", Email: "a@b.c"},
	}, func(id string) string { return strings.ToUpper(id) })
	require.NoError(t, err)
	assert.Equal(t, "HMO", n.Value("Project type"))
	assert.Equal(t, "", n.Value("Description"))
	assert.NotContains(t, n.Text, "Description:")
}

func TestFromJobRejectsEmptyPayload(t *testing.T) {
	_, err := FromJob(queue.DeliveryJob{Kind: queue.JobLead}, nil)
	assert.ErrorIs(t, err, ErrEmptyJob)

	_, err = FromJob(queue.DeliveryJob{Kind: "sms"}, nil)
	assert.Error(t, err)
}

func TestLogSinkOmitsContactDetails(t *testing.T) {
	var buf bytes.Buffer
	sink := LogSink{Logger: zerolog.New(&buf)}
	n := build("lead", "title", []Field{{"Name", "Jane"}, {"Email", "jane@x.com"}, {"Project type", "New Build"}})

	require.NoError(t, sink.Deliver(context.Background(), n))
	out := buf.String()
	assert.Contains(t, out, `"project_type":"New Build"`)
	assert.NotContains(t, out, "jane@x.com")
}
