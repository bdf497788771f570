package quote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"empirepilot/internal/queue"
	"empirepilot/internal/storage/memory"
)

type recordingEnqueuer struct {
	jobs []queue.DeliveryJob
	err  error
}

func (r *recordingEnqueuer) Enqueue(_ context.Context, job queue.DeliveryJob) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.jobs = append(r.jobs, job)
	return "1-0", nil
}

func validSubmission() Submission {
	return Submission{
		ProjectType: "hmo",
		Budget:      "£250,000 - £500,000",
		Timeline:    "6-12 months",
		Address:     "12 Albert Road, Southsea",
		Name:        "Priya",
		Email:       "priya@example.com",
		Phone:       "07700 900123",
	}
}

func TestValidateStepGating(t *testing.T) {
	s := Submission{}

	err := ValidateStep(StepProject, s)
	require.ErrorIs(t, err, ErrInvalid)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "projectType")

	s.ProjectType = "newbuild"
	assert.NoError(t, ValidateStep(StepProject, s))

	s.Budget = "Not sure yet"
	s.Timeline = "ASAP"
	err = ValidateStep(StepDetails, s)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, map[string]string{"address": "required"}, verr.Fields)

	s.Address = "1 High St"
	assert.NoError(t, ValidateStep(StepDetails, s))

	s.Budget = "a million quid"
	require.True(t, errors.As(ValidateStep(StepDetails, s), &verr))
	assert.Contains(t, verr.Fields, "budget")

	assert.ErrorIs(t, ValidateStep(7, s), ErrUnknownStep)
}

func TestValidateContactStep(t *testing.T) {
	s := validSubmission()
	assert.NoError(t, ValidateStep(StepContact, s))

	s.Email = "not-an-email"
	var verr *ValidationError
	require.True(t, errors.As(ValidateStep(StepContact, s), &verr))
	assert.Equal(t, "not a valid email address", verr.Fields["email"])

	s = validSubmission()
	s.PreferredContact = "pigeon"
	require.True(t, errors.As(ValidateStep(StepContact, s), &verr))
	assert.Contains(t, verr.Fields, "preferredContact")
}

func TestSubmitStoresAndEnqueues(t *testing.T) {
	store := memory.New()
	deliveries := &recordingEnqueuer{}
	now := time.Date(2026, 6, 1, 8, 30, 0, 0, time.UTC)
	svc := NewService(Config{
		Store:      store,
		Deliveries: deliveries,
		Logger:     zerolog.Nop(),
		Now:        func() time.Time { return now },
	})

	sum, err := svc.Submit(context.Background(), validSubmission())
	require.NoError(t, err)
	assert.Equal(t, "HMO Conversion", sum.ProjectTypeLabel)
	assert.Equal(t, now, sum.CreatedAt)

	quotes, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, sum.ID, quotes[0].ID)
	assert.Equal(t, "email", quotes[0].PreferredContact)

	require.Len(t, deliveries.jobs, 1)
	assert.Equal(t, queue.JobQuote, deliveries.jobs[0].Kind)
	assert.Equal(t, "Priya", deliveries.jobs[0].Quote.Name)
}

func TestSubmitRejectsIncompleteAndStoresNothing(t *testing.T) {
	store := memory.New()
	svc := NewService(Config{Store: store, Logger: zerolog.Nop()})

	s := validSubmission()
	s.Address = " "
	_, err := svc.Submit(context.Background(), s)
	assert.ErrorIs(t, err, ErrInvalid)

	quotes, err := store.ListQuotes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestSubmitSurvivesQueueFailure(t *testing.T) {
	svc := NewService(Config{
		Store:      memory.New(),
		Deliveries: &recordingEnqueuer{err: errors.New("redis down")},
		Logger:     zerolog.Nop(),
	})
	_, err := svc.Submit(context.Background(), validSubmission())
	assert.NoError(t, err)
}

func TestCatalogAndLabel(t *testing.T) {
	c := Catalog()
	assert.Len(t, c.ProjectTypes, 5)
	assert.Len(t, c.BudgetRanges, 6)
	assert.Len(t, c.Timelines, 5)
	assert.Equal(t, "New Build", Label("newbuild"))
	assert.Equal(t, "other", Label("other"))
}
