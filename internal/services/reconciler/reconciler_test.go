package reconciler

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

func (m *RepoMock) FindSubscriptionByProviderID(ctx context.Context, providerSubID string) (*models.Subscription, error) {
	args := m.Called(ctx, providerSubID)
	sub, _ := args.Get(0).(*models.Subscription)
	return sub, args.Error(1)
}

func (m *RepoMock) SavePaymentEvent(ctx context.Context, event models.PaymentEvent) (int, error) {
	args := m.Called(ctx, event)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) UpdateSubscription(ctx context.Context, sub *models.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *RepoMock) GetUserByUID(ctx context.Context, uid string) (*models.User, error) {
	args := m.Called(ctx, uid)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

type NotifierMock struct{ mock.Mock }

func (m *NotifierMock) NotifyWelcome(ctx context.Context, email string, plan models.SubscriptionPlan) error {
	return m.Called(ctx, email, plan).Error(0)
}

func (m *NotifierMock) NotifyPaymentFailure(ctx context.Context, email string, plan models.SubscriptionPlan) error {
	return m.Called(ctx, email, plan).Error(0)
}

func NewNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func testSubscription() *models.Subscription {
	return &models.Subscription{
		ID:                     7,
		UserUID:                "uid-1",
		Plan:                   models.PlanDaily,
		Status:                 models.StatusPastDue,
		RazorpaySubscriptionID: "sub_123",
	}
}

func testUser() *models.User {
	return &models.User{UID: "uid-1", Email: "reader@example.com"}
}

func TestProcess_InvalidPayload(t *testing.T) {
	repo := new(RepoMock)
	svc := New(repo, nil, NewNoopLogger())

	_, err := svc.Process(context.Background(), []byte("not json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPayload)
	repo.AssertNotCalled(t, "SavePaymentEvent")
}

func TestProcess_UnmatchedSubscriptionStillAudited(t *testing.T) {
	repo := new(RepoMock)
	repo.On("FindSubscriptionByProviderID", mock.Anything, "sub_unknown").Return(nil, nil).Once()
	repo.On("SavePaymentEvent", mock.Anything, mock.MatchedBy(func(ev models.PaymentEvent) bool {
		return ev.Provider == models.ProviderRazorpay &&
			ev.EventType == "subscription.charged" &&
			ev.SubscriptionID == nil
	})).Return(1, nil).Once()
	svc := New(repo, nil, NewNoopLogger())

	raw := []byte(`{"event":"subscription.charged","payload":{"subscription":{"entity":{"id":"sub_unknown","status":"active"}}}}`)
	result, err := svc.Process(context.Background(), raw)
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, "subscription.charged", result.Event)
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "UpdateSubscription")
}

func TestProcess_PaymentCapturedActivates(t *testing.T) {
	repo := new(RepoMock)
	notifier := new(NotifierMock)
	sub := testSubscription()
	paidAt := int64(1699999000)

	repo.On("FindSubscriptionByProviderID", mock.Anything, "sub_123").Return(sub, nil).Once()
	repo.On("SavePaymentEvent", mock.Anything, mock.MatchedBy(func(ev models.PaymentEvent) bool {
		return ev.ProviderEventID != nil && *ev.ProviderEventID == "pay_456" &&
			ev.SubscriptionID != nil && *ev.SubscriptionID == 7
	})).Return(1, nil).Once()
	repo.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(s *models.Subscription) bool {
		return s.Status == models.StatusActive &&
			s.LastPaymentAt != nil && s.LastPaymentAt.Equal(time.Unix(paidAt, 0))
	})).Return(nil).Once()
	svc := New(repo, notifier, NewNoopLogger())

	raw := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_456","subscription_id":"sub_123","created_at":1699999000}}}}`)
	result, err := svc.Process(context.Background(), raw)
	require.NoError(t, err)
	assert.True(t, result.Matched)
	repo.AssertExpectations(t)
	// payment.captured не отправляет писем
	notifier.AssertNotCalled(t, "NotifyWelcome")
	notifier.AssertNotCalled(t, "NotifyPaymentFailure")
}

func TestProcess_SubscriptionActivatedSendsWelcome(t *testing.T) {
	repo := new(RepoMock)
	notifier := new(NotifierMock)
	sub := testSubscription()

	repo.On("FindSubscriptionByProviderID", mock.Anything, "sub_123").Return(sub, nil).Once()
	repo.On("SavePaymentEvent", mock.Anything, mock.Anything).Return(1, nil).Once()
	repo.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(s *models.Subscription) bool {
		return s.Status == models.StatusActive && s.CurrentPeriodEnd != nil && s.NextChargeAt != nil
	})).Return(nil).Once()
	repo.On("GetUserByUID", mock.Anything, "uid-1").Return(testUser(), nil).Once()
	notifier.On("NotifyWelcome", mock.Anything, "reader@example.com", models.PlanDaily).Return(nil).Once()
	svc := New(repo, notifier, NewNoopLogger())

	raw := []byte(`{"event":"subscription.activated","payload":{"subscription":{"entity":{"id":"sub_123","status":"active","current_start":1699000000,"current_end":1701592000}}}}`)
	_, err := svc.Process(context.Background(), raw)
	require.NoError(t, err)
	repo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestProcess_PaymentFailedSendsFailureEmail(t *testing.T) {
	repo := new(RepoMock)
	notifier := new(NotifierMock)
	sub := testSubscription()
	sub.Status = models.StatusActive

	repo.On("FindSubscriptionByProviderID", mock.Anything, "sub_123").Return(sub, nil).Once()
	repo.On("SavePaymentEvent", mock.Anything, mock.Anything).Return(1, nil).Once()
	repo.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(s *models.Subscription) bool {
		return s.Status == models.StatusPastDue
	})).Return(nil).Once()
	repo.On("GetUserByUID", mock.Anything, "uid-1").Return(testUser(), nil).Once()
	notifier.On("NotifyPaymentFailure", mock.Anything, "reader@example.com", models.PlanDaily).Return(nil).Once()
	svc := New(repo, notifier, NewNoopLogger())

	raw := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_9","subscription_id":"sub_123"}}}}`)
	_, err := svc.Process(context.Background(), raw)
	require.NoError(t, err)
	repo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestProcess_NotifierErrorDoesNotFailReconciliation(t *testing.T) {
	repo := new(RepoMock)
	notifier := new(NotifierMock)
	sub := testSubscription()

	repo.On("FindSubscriptionByProviderID", mock.Anything, "sub_123").Return(sub, nil).Once()
	repo.On("SavePaymentEvent", mock.Anything, mock.Anything).Return(1, nil).Once()
	repo.On("UpdateSubscription", mock.Anything, mock.Anything).Return(nil).Once()
	repo.On("GetUserByUID", mock.Anything, "uid-1").Return(testUser(), nil).Once()
	notifier.On("NotifyWelcome", mock.Anything, "reader@example.com", models.PlanDaily).
		Return(errors.New("smtp down")).Once()
	svc := New(repo, notifier, NewNoopLogger())

	raw := []byte(`{"event":"subscription.charged","payload":{"subscription":{"entity":{"id":"sub_123","status":"active"}}}}`)
	_, err := svc.Process(context.Background(), raw)
	assert.NoError(t, err)
}

func TestProcess_UnknownProviderStatusKeepsCurrent(t *testing.T) {
	repo := new(RepoMock)
	sub := testSubscription()
	sub.Status = models.StatusActive

	repo.On("FindSubscriptionByProviderID", mock.Anything, "sub_123").Return(sub, nil).Once()
	repo.On("SavePaymentEvent", mock.Anything, mock.Anything).Return(1, nil).Once()
	repo.On("UpdateSubscription", mock.Anything, mock.MatchedBy(func(s *models.Subscription) bool {
		return s.Status == models.StatusActive
	})).Return(nil).Once()
	svc := New(repo, nil, NewNoopLogger())

	raw := []byte(`{"event":"subscription.updated","payload":{"subscription":{"entity":{"id":"sub_123","status":"created"}}}}`)
	_, err := svc.Process(context.Background(), raw)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestProcess_AuditErrorStopsReconciliation(t *testing.T) {
	repo := new(RepoMock)
	sub := testSubscription()

	repo.On("FindSubscriptionByProviderID", mock.Anything, "sub_123").Return(sub, nil).Once()
	repo.On("SavePaymentEvent", mock.Anything, mock.Anything).Return(0, errors.New("db down")).Once()
	svc := New(repo, nil, NewNoopLogger())

	raw := []byte(`{"event":"subscription.charged","payload":{"subscription":{"entity":{"id":"sub_123","status":"active"}}}}`)
	_, err := svc.Process(context.Background(), raw)
	require.Error(t, err)
	repo.AssertNotCalled(t, "UpdateSubscription")
}
