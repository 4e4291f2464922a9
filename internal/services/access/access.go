// Package access вычисляет права доступа пользователя к контенту.
// Единственный источник истины: активная подписка с непросроченным
// оплаченным периодом.
package access

import (
	"context"
	"fmt"

	"github.com/bookinsights/insights-backend/internal/models"
)

// SubscriptionProvider отдает активную подписку пользователя.
type SubscriptionProvider interface {
	FindActiveSubscription(ctx context.Context, userUID string) (*models.Subscription, error)
}

// Entitlement права пользователя на момент запроса.
type Entitlement struct {
	Subscription *models.Subscription
	IsActive     bool
	IsPremium    bool
}

// Service сервис проверки доступа.
type Service struct {
	repo SubscriptionProvider
}

// New создает сервис доступа.
func New(repo SubscriptionProvider) *Service {
	return &Service{repo: repo}
}

// Resolve возвращает права пользователя. Хранилище само отбрасывает
// подписки с истекшим current_period_end, поэтому найденная подписка
// всегда означает активный доступ.
func (s *Service) Resolve(ctx context.Context, userUID string) (*Entitlement, error) {
	const op = "access.Resolve"

	sub, err := s.repo.FindActiveSubscription(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sub == nil {
		return &Entitlement{}, nil
	}
	return &Entitlement{
		Subscription: sub,
		IsActive:     true,
		IsPremium:    sub.Plan == models.PlanPremium,
	}, nil
}
