// Package reconciler приводит локальное состояние подписки в
// соответствие с событиями вебхуков Razorpay. Каждое событие сначала
// записывается в журнал платежей и только потом меняет подписку:
// журнал остается полным даже при неизвестных событиях.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/bookinsights/insights-backend/internal/lib/sl"
	"github.com/bookinsights/insights-backend/internal/metrics"
	"github.com/bookinsights/insights-backend/internal/models"
)

// ErrInvalidPayload возвращается при нечитаемом теле вебхука.
var ErrInvalidPayload = errors.New("invalid webhook payload")

// SubscriptionRepository описывает операции хранилища для сверки.
type SubscriptionRepository interface {
	FindSubscriptionByProviderID(ctx context.Context, providerSubID string) (*models.Subscription, error)
	SavePaymentEvent(ctx context.Context, event models.PaymentEvent) (int, error)
	UpdateSubscription(ctx context.Context, sub *models.Subscription) error
	GetUserByUID(ctx context.Context, uid string) (*models.User, error)
}

// Notifier отправляет письма о событиях подписки. Ошибки доставки
// не влияют на результат сверки.
type Notifier interface {
	NotifyWelcome(ctx context.Context, email string, plan models.SubscriptionPlan) error
	NotifyPaymentFailure(ctx context.Context, email string, plan models.SubscriptionPlan) error
}

// Service сервис сверки вебхуков.
type Service struct {
	repo     SubscriptionRepository
	notifier Notifier
	log      *slog.Logger
}

// New создает сервис сверки.
func New(repo SubscriptionRepository, notifier Notifier, log *slog.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, log: log}
}

// Result итог обработки одного вебхука.
type Result struct {
	Event   string
	Matched bool
}

// Process обрабатывает тело вебхука: журналирует событие, обновляет
// статус и период подписки, запускает уведомления. Событие без
// подходящей подписки не является ошибкой.
func (s *Service) Process(ctx context.Context, raw []byte) (*Result, error) {
	const op = "reconciler.Process"

	payload, err := ParsePayload(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, errors.Join(ErrInvalidPayload, err))
	}

	var subEnt *SubscriptionEntity
	if payload.Payload.Subscription != nil {
		subEnt = &payload.Payload.Subscription.Entity
	}
	var payEnt *PaymentEntity
	if payload.Payload.Payment != nil {
		payEnt = &payload.Payload.Payment.Entity
	}

	providerSubID := ""
	if subEnt != nil && subEnt.ID != "" {
		providerSubID = subEnt.ID
	} else if payEnt != nil && payEnt.SubscriptionID != "" {
		providerSubID = payEnt.SubscriptionID
	}

	var sub *models.Subscription
	if providerSubID != "" {
		sub, err = s.repo.FindSubscriptionByProviderID(ctx, providerSubID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := s.auditEvent(ctx, payload, payEnt, subEnt, sub, raw); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := &Result{Event: payload.Event, Matched: sub != nil}
	metrics.WebhookEvents.WithLabelValues(payload.Event, strconv.FormatBool(sub != nil)).Inc()

	if sub == nil {
		s.log.Info("webhook without matching subscription",
			slog.String("event", payload.Event),
			slog.String("provider_subscription_id", providerSubID))
		return result, nil
	}

	kind := ClassifyEvent(payload.Event)
	s.applyEntity(sub, subEnt)
	s.applyOverrides(sub, kind, payEnt)

	if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.notify(ctx, sub, kind)

	return result, nil
}

// auditEvent пишет строку журнала платежей. Вызывается до любых
// изменений подписки.
func (s *Service) auditEvent(ctx context.Context, payload *WebhookPayload,
	payEnt *PaymentEntity, subEnt *SubscriptionEntity, sub *models.Subscription, raw []byte) error {

	event := models.PaymentEvent{
		Provider:  models.ProviderRazorpay,
		EventType: payload.Event,
		Payload:   raw,
	}
	providerEventID := ""
	switch {
	case payEnt != nil && payEnt.ID != "":
		providerEventID = payEnt.ID
	case subEnt != nil && subEnt.ID != "":
		providerEventID = subEnt.ID
	case payload.Payload.ID != "":
		providerEventID = payload.Payload.ID
	case payload.ID != "":
		providerEventID = payload.ID
	}
	if providerEventID == "" {
		// У события нет ни одного идентификатора — генерируем свой,
		// чтобы строка журнала оставалась адресуемой.
		providerEventID = "local_" + uuid.NewString()
	}
	event.ProviderEventID = &providerEventID
	if sub != nil {
		event.SubscriptionID = &sub.ID
		event.UserUID = &sub.UserUID
	}
	_, err := s.repo.SavePaymentEvent(ctx, event)
	return err
}

// applyEntity переносит статус и период из сущности подписки вебхука.
// Незнакомый статус шлюза оставляет текущий статус без изменений.
func (s *Service) applyEntity(sub *models.Subscription, subEnt *SubscriptionEntity) {
	if subEnt == nil {
		return
	}
	if status, ok := MapProviderStatus(subEnt.Status); ok {
		sub.Status = status
	} else if subEnt.Status != "" {
		s.log.Warn("unknown provider subscription status",
			slog.String("status", subEnt.Status))
	}
	if subEnt.CurrentStart > 0 {
		t := time.Unix(subEnt.CurrentStart, 0)
		sub.CurrentPeriodStart = &t
	}
	if subEnt.CurrentEnd > 0 {
		t := time.Unix(subEnt.CurrentEnd, 0)
		sub.CurrentPeriodEnd = &t
		sub.NextChargeAt = &t
	}
	if subEnt.ChargeAt > 0 {
		t := time.Unix(subEnt.ChargeAt, 0)
		sub.NextChargeAt = &t
	}
	if subEnt.CustomerID != "" {
		sub.RazorpayCustomerID = &subEnt.CustomerID
	}
}

// applyOverrides применяет правила вида события поверх статуса шлюза.
func (s *Service) applyOverrides(sub *models.Subscription, kind EventKind, payEnt *PaymentEntity) {
	switch kind {
	case KindPaymentCaptured, KindSubscriptionCharged:
		sub.Status = models.StatusActive
		paidAt := time.Now()
		if payEnt != nil && payEnt.CreatedAt > 0 {
			paidAt = time.Unix(payEnt.CreatedAt, 0)
		}
		sub.LastPaymentAt = &paidAt
	case KindPaymentFailed:
		sub.Status = models.StatusPastDue
	case KindSubscriptionCancelled:
		sub.Status = models.StatusCancelled
	}
}

// notify запускает письма для значимых событий. Ошибки логируются
// и не возвращаются: сверка уже состоялась.
func (s *Service) notify(ctx context.Context, sub *models.Subscription, kind EventKind) {
	if s.notifier == nil {
		return
	}
	user, err := s.repo.GetUserByUID(ctx, sub.UserUID)
	if err != nil {
		s.log.Error("failed to load user for notification",
			slog.String("user_uid", sub.UserUID), sl.Err(err))
		return
	}
	if user == nil {
		s.log.Warn("subscription without user", slog.String("user_uid", sub.UserUID))
		return
	}
	switch kind {
	case KindSubscriptionActivated, KindSubscriptionCharged:
		if err := s.notifier.NotifyWelcome(ctx, user.Email, sub.Plan); err != nil {
			s.log.Error("failed to send welcome email", sl.Err(err))
		}
	case KindPaymentFailed:
		if err := s.notifier.NotifyPaymentFailure(ctx, user.Email, sub.Plan); err != nil {
			s.log.Error("failed to send payment failure email", sl.Err(err))
		}
	}
}
