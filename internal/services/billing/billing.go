// Package billing управляет жизненным циклом подписки через Razorpay:
// создание чекаута и отмена. Подписка сразу сохраняется в статусе
// PAST_DUE и активируется вебхуком после оплаты.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookinsights/insights-backend/internal/config"
	"github.com/bookinsights/insights-backend/internal/lib/sl"
	"github.com/bookinsights/insights-backend/internal/models"
	"github.com/bookinsights/insights-backend/internal/razorpay"
)

// Ошибки сервиса биллинга.
var (
	ErrNotConfigured  = errors.New("payment gateway is not configured")
	ErrNoSubscription = errors.New("no subscription to cancel")
)

// Количество циклов списания при создании подписки: год помесячно.
const totalChargeCycles = 12

// Gateway операции платежного шлюза.
type Gateway interface {
	Configured() bool
	CreateSubscription(ctx context.Context, req razorpay.CreateSubscriptionRequest) (*razorpay.SubscriptionResponse, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
}

// Repository операции хранилища для биллинга.
type Repository interface {
	UpsertSubscriptionByProviderID(ctx context.Context, sub models.Subscription) (int, error)
	FindLatestNonCancelled(ctx context.Context, userUID string) (*models.Subscription, error)
	MarkSubscriptionCancelled(ctx context.Context, id int) error
}

// Service сервис биллинга.
type Service struct {
	gateway Gateway
	repo    Repository
	plans   config.Razorpay
	log     *slog.Logger
}

// New создает сервис биллинга.
func New(gateway Gateway, repo Repository, plans config.Razorpay, log *slog.Logger) *Service {
	return &Service{gateway: gateway, repo: repo, plans: plans, log: log}
}

// CheckoutResult данные для открытия виджета оплаты на клиенте.
type CheckoutResult struct {
	SubscriptionID string                  `json:"subscription_id"`
	KeyID          string                  `json:"key_id"`
	Plan           models.SubscriptionPlan `json:"plan"`
	ShortURL       string                  `json:"short_url,omitempty"`
}

// Checkout создает подписку в шлюзе и локальную запись PAST_DUE.
// План "premium" дает PREMIUM_499, любое другое значение - DAILY_99.
func (s *Service) Checkout(ctx context.Context, userUID, planRequest string) (*CheckoutResult, error) {
	const op = "billing.Checkout"

	plan := models.PlanDaily
	planID := s.plans.PlanIDDaily
	if planRequest == "premium" {
		plan = models.PlanPremium
		planID = s.plans.PlanIDPremium
	}
	if !s.gateway.Configured() || planID == "" {
		return nil, ErrNotConfigured
	}

	resp, err := s.gateway.CreateSubscription(ctx, razorpay.CreateSubscriptionRequest{
		PlanID:         planID,
		TotalCount:     totalChargeCycles,
		CustomerNotify: 1,
		Notes: map[string]string{
			"user_uid": userUID,
			"plan":     string(plan),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sub := models.Subscription{
		UserUID:                userUID,
		Plan:                   plan,
		Status:                 models.StatusPastDue,
		RazorpaySubscriptionID: resp.ID,
	}
	if resp.CustomerID != "" {
		sub.RazorpayCustomerID = &resp.CustomerID
	}
	if resp.ChargeAt > 0 {
		t := time.Unix(resp.ChargeAt, 0)
		sub.NextChargeAt = &t
	}
	if _, err := s.repo.UpsertSubscriptionByProviderID(ctx, sub); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &CheckoutResult{
		SubscriptionID: resp.ID,
		KeyID:          s.plans.KeyID,
		Plan:           plan,
		ShortURL:       resp.ShortURL,
	}, nil
}

// Cancel отменяет последнюю неотмененную подписку пользователя.
// Ошибка шлюза не блокирует локальную отмену: вебхук cancelled мог
// уже прийти или придет позже.
func (s *Service) Cancel(ctx context.Context, userUID string) error {
	const op = "billing.Cancel"

	sub, err := s.repo.FindLatestNonCancelled(ctx, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if sub == nil {
		return ErrNoSubscription
	}

	if s.gateway.Configured() {
		if err := s.gateway.CancelSubscription(ctx, sub.RazorpaySubscriptionID); err != nil {
			s.log.Error("gateway cancel failed, cancelling locally",
				slog.String("provider_subscription_id", sub.RazorpaySubscriptionID), sl.Err(err))
		}
	}

	if err := s.repo.MarkSubscriptionCancelled(ctx, sub.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
