package billing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bookinsights/insights-backend/internal/config"
	"github.com/bookinsights/insights-backend/internal/models"
	"github.com/bookinsights/insights-backend/internal/razorpay"
)

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) Configured() bool {
	return m.Called().Bool(0)
}

func (m *GatewayMock) CreateSubscription(ctx context.Context, req razorpay.CreateSubscriptionRequest) (*razorpay.SubscriptionResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*razorpay.SubscriptionResponse)
	return resp, args.Error(1)
}

func (m *GatewayMock) CancelSubscription(ctx context.Context, subscriptionID string) error {
	return m.Called(ctx, subscriptionID).Error(0)
}

type RepoMock struct{ mock.Mock }

func (m *RepoMock) UpsertSubscriptionByProviderID(ctx context.Context, sub models.Subscription) (int, error) {
	args := m.Called(ctx, sub)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) FindLatestNonCancelled(ctx context.Context, userUID string) (*models.Subscription, error) {
	args := m.Called(ctx, userUID)
	sub, _ := args.Get(0).(*models.Subscription)
	return sub, args.Error(1)
}

func (m *RepoMock) MarkSubscriptionCancelled(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func NewNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func testPlans() config.Razorpay {
	return config.Razorpay{
		KeyID:         "rzp_test_key",
		PlanIDDaily:   "plan_daily",
		PlanIDPremium: "plan_premium",
	}
}

func TestCheckout_NotConfigured(t *testing.T) {
	gateway := new(GatewayMock)
	repo := new(RepoMock)
	gateway.On("Configured").Return(false).Once()
	svc := New(gateway, repo, testPlans(), NewNoopLogger())

	_, err := svc.Checkout(context.Background(), "uid-1", "daily")
	assert.ErrorIs(t, err, ErrNotConfigured)
	repo.AssertNotCalled(t, "UpsertSubscriptionByProviderID")
}

func TestCheckout_MissingPlanID(t *testing.T) {
	gateway := new(GatewayMock)
	repo := new(RepoMock)
	plans := testPlans()
	plans.PlanIDPremium = ""
	gateway.On("Configured").Return(true).Once()
	svc := New(gateway, repo, plans, NewNoopLogger())

	_, err := svc.Checkout(context.Background(), "uid-1", "premium")
	assert.ErrorIs(t, err, ErrNotConfigured)
	gateway.AssertNotCalled(t, "CreateSubscription")
}

func TestCheckout_Success(t *testing.T) {
	gateway := new(GatewayMock)
	repo := new(RepoMock)

	gateway.On("Configured").Return(true).Once()
	gateway.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(req razorpay.CreateSubscriptionRequest) bool {
		return req.PlanID == "plan_premium" &&
			req.TotalCount == 12 &&
			req.CustomerNotify == 1 &&
			req.Notes["user_uid"] == "uid-1" &&
			req.Notes["plan"] == string(models.PlanPremium)
	})).Return(&razorpay.SubscriptionResponse{
		ID:         "sub_new",
		Status:     "created",
		CustomerID: "cust_1",
		ChargeAt:   1700000000,
		ShortURL:   "https://rzp.io/i/abc",
	}, nil).Once()
	repo.On("UpsertSubscriptionByProviderID", mock.Anything, mock.MatchedBy(func(sub models.Subscription) bool {
		return sub.UserUID == "uid-1" &&
			sub.Plan == models.PlanPremium &&
			sub.Status == models.StatusPastDue &&
			sub.RazorpaySubscriptionID == "sub_new" &&
			sub.RazorpayCustomerID != nil && *sub.RazorpayCustomerID == "cust_1" &&
			sub.NextChargeAt != nil
	})).Return(5, nil).Once()
	svc := New(gateway, repo, testPlans(), NewNoopLogger())

	result, err := svc.Checkout(context.Background(), "uid-1", "premium")
	require.NoError(t, err)
	assert.Equal(t, "sub_new", result.SubscriptionID)
	assert.Equal(t, "rzp_test_key", result.KeyID)
	assert.Equal(t, models.PlanPremium, result.Plan)
	gateway.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestCheckout_DefaultsToDailyPlan(t *testing.T) {
	gateway := new(GatewayMock)
	repo := new(RepoMock)

	gateway.On("Configured").Return(true).Once()
	gateway.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(req razorpay.CreateSubscriptionRequest) bool {
		return req.PlanID == "plan_daily"
	})).Return(&razorpay.SubscriptionResponse{ID: "sub_d"}, nil).Once()
	repo.On("UpsertSubscriptionByProviderID", mock.Anything, mock.MatchedBy(func(sub models.Subscription) bool {
		return sub.Plan == models.PlanDaily
	})).Return(1, nil).Once()
	svc := New(gateway, repo, testPlans(), NewNoopLogger())

	result, err := svc.Checkout(context.Background(), "uid-1", "daily")
	require.NoError(t, err)
	assert.Equal(t, models.PlanDaily, result.Plan)
}

func TestCancel_NoSubscription(t *testing.T) {
	gateway := new(GatewayMock)
	repo := new(RepoMock)
	repo.On("FindLatestNonCancelled", mock.Anything, "uid-1").Return(nil, nil).Once()
	svc := New(gateway, repo, testPlans(), NewNoopLogger())

	err := svc.Cancel(context.Background(), "uid-1")
	assert.ErrorIs(t, err, ErrNoSubscription)
}

func TestCancel_GatewayErrorStillCancelsLocally(t *testing.T) {
	gateway := new(GatewayMock)
	repo := new(RepoMock)
	sub := &models.Subscription{ID: 3, RazorpaySubscriptionID: "sub_3"}

	repo.On("FindLatestNonCancelled", mock.Anything, "uid-1").Return(sub, nil).Once()
	gateway.On("Configured").Return(true).Once()
	gateway.On("CancelSubscription", mock.Anything, "sub_3").
		Return(errors.New("gateway timeout")).Once()
	repo.On("MarkSubscriptionCancelled", mock.Anything, 3).Return(nil).Once()
	svc := New(gateway, repo, testPlans(), NewNoopLogger())

	err := svc.Cancel(context.Background(), "uid-1")
	require.NoError(t, err)
	repo.AssertExpectations(t)
}
