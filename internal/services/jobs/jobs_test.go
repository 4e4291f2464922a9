package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bookinsights/insights-backend/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) LatestPublishedInsight(ctx context.Context) (*models.Insight, error) {
	args := m.Called(ctx)
	insight, _ := args.Get(0).(*models.Insight)
	return insight, args.Error(1)
}

func (m *RepoMock) ListDigestRecipients(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	recipients, _ := args.Get(0).([]string)
	return recipients, args.Error(1)
}

func (m *RepoMock) ListPremiumRecipients(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	recipients, _ := args.Get(0).([]string)
	return recipients, args.Error(1)
}

func (m *RepoMock) ListUpcomingClasses(ctx context.Context, until time.Time) ([]*models.LiveClass, error) {
	args := m.Called(ctx, until)
	classes, _ := args.Get(0).([]*models.LiveClass)
	return classes, args.Error(1)
}

type SenderMock struct{ mock.Mock }

func (m *SenderMock) SendDailyDigest(ctx context.Context, recipients []string, insight *models.Insight) error {
	return m.Called(ctx, recipients, insight).Error(0)
}

func (m *SenderMock) SendClassReminder(ctx context.Context, recipients []string, class *models.LiveClass, startingSoon bool) error {
	return m.Called(ctx, recipients, class, startingSoon).Error(0)
}

func (m *SenderMock) Enabled() bool {
	return m.Called().Bool(0)
}

func NewNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestRunDailyDigest_SenderDisabled(t *testing.T) {
	repo := new(RepoMock)
	sender := new(SenderMock)
	sender.On("Enabled").Return(false).Once()
	svc := New(repo, sender, NewNoopLogger())

	result, err := svc.RunDailyDigest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "email provider is not configured", result.Skipped)
	repo.AssertNotCalled(t, "LatestPublishedInsight")
}

func TestRunDailyDigest_NoInsight(t *testing.T) {
	repo := new(RepoMock)
	sender := new(SenderMock)
	sender.On("Enabled").Return(true).Once()
	repo.On("LatestPublishedInsight", mock.Anything).Return(nil, nil).Once()
	svc := New(repo, sender, NewNoopLogger())

	result, err := svc.RunDailyDigest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "no published insight", result.Skipped)
}

func TestRunDailyDigest_Success(t *testing.T) {
	repo := new(RepoMock)
	sender := new(SenderMock)
	insight := &models.Insight{Slug: "atomic-habits", Title: "Atomic Habits"}
	recipients := []string{"a@example.com", "b@example.com"}

	sender.On("Enabled").Return(true).Once()
	repo.On("LatestPublishedInsight", mock.Anything).Return(insight, nil).Once()
	repo.On("ListDigestRecipients", mock.Anything).Return(recipients, nil).Once()
	sender.On("SendDailyDigest", mock.Anything, recipients, insight).Return(nil).Once()
	svc := New(repo, sender, NewNoopLogger())

	result, err := svc.RunDailyDigest(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Skipped)
	assert.Equal(t, 2, result.Sent)
	sender.AssertExpectations(t)
}

func TestRunDailyDigest_SendFailureIsSkipNotError(t *testing.T) {
	repo := new(RepoMock)
	sender := new(SenderMock)
	insight := &models.Insight{Slug: "deep-work", Title: "Deep Work"}

	sender.On("Enabled").Return(true).Once()
	repo.On("LatestPublishedInsight", mock.Anything).Return(insight, nil).Once()
	repo.On("ListDigestRecipients", mock.Anything).Return([]string{"a@example.com"}, nil).Once()
	sender.On("SendDailyDigest", mock.Anything, mock.Anything, insight).
		Return(errors.New("provider down")).Once()
	svc := New(repo, sender, NewNoopLogger())

	result, err := svc.RunDailyDigest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "send failed", result.Skipped)
	assert.Zero(t, result.Sent)
}

func TestRunLiveReminders_StartingSoonSubject(t *testing.T) {
	repo := new(RepoMock)
	sender := new(SenderMock)
	now := time.Now()
	soon := &models.LiveClass{ID: 1, Title: "Live Q&A", StartTime: now.Add(45 * time.Minute)}
	later := &models.LiveClass{ID: 2, Title: "Book Club", StartTime: now.Add(20 * time.Hour)}
	recipients := []string{"premium@example.com"}

	sender.On("Enabled").Return(true).Once()
	repo.On("ListUpcomingClasses", mock.Anything, mock.Anything).
		Return([]*models.LiveClass{soon, later}, nil).Once()
	repo.On("ListPremiumRecipients", mock.Anything).Return(recipients, nil).Once()
	sender.On("SendClassReminder", mock.Anything, recipients, soon, true).Return(nil).Once()
	sender.On("SendClassReminder", mock.Anything, recipients, later, false).Return(nil).Once()
	svc := New(repo, sender, NewNoopLogger())

	result, err := svc.RunLiveReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Classes)
	assert.Equal(t, 2, result.Sent)
	sender.AssertExpectations(t)
}

func TestRunLiveReminders_OneFailureDoesNotStopOthers(t *testing.T) {
	repo := new(RepoMock)
	sender := new(SenderMock)
	now := time.Now()
	first := &models.LiveClass{ID: 1, Title: "First", StartTime: now.Add(2 * time.Hour)}
	second := &models.LiveClass{ID: 2, Title: "Second", StartTime: now.Add(3 * time.Hour)}
	recipients := []string{"premium@example.com"}

	sender.On("Enabled").Return(true).Once()
	repo.On("ListUpcomingClasses", mock.Anything, mock.Anything).
		Return([]*models.LiveClass{first, second}, nil).Once()
	repo.On("ListPremiumRecipients", mock.Anything).Return(recipients, nil).Once()
	sender.On("SendClassReminder", mock.Anything, recipients, first, false).
		Return(errors.New("provider down")).Once()
	sender.On("SendClassReminder", mock.Anything, recipients, second, false).Return(nil).Once()
	svc := New(repo, sender, NewNoopLogger())

	result, err := svc.RunLiveReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Classes)
	assert.Equal(t, 1, result.Sent)
	sender.AssertExpectations(t)
}

func TestRunLiveReminders_NoClasses(t *testing.T) {
	repo := new(RepoMock)
	sender := new(SenderMock)
	sender.On("Enabled").Return(true).Once()
	repo.On("ListUpcomingClasses", mock.Anything, mock.Anything).Return(nil, nil).Once()
	svc := New(repo, sender, NewNoopLogger())

	result, err := svc.RunLiveReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "no upcoming classes", result.Skipped)
	repo.AssertNotCalled(t, "ListPremiumRecipients")
}
