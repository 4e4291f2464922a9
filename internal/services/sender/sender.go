// Package sender формирует и отправляет письма пользователям:
// приветствия после оплаты, уведомления о неудачном платеже,
// ежедневный дайджест и напоминания о живых занятиях.
package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bookinsights/insights-backend/internal/lib/sl"
	"github.com/bookinsights/insights-backend/internal/mailer"
	"github.com/bookinsights/insights-backend/internal/models"
	"github.com/bookinsights/insights-backend/internal/rabbitmq"
)

// SenderService собирает тексты писем и отдает их мейлеру.
type SenderService struct {
	mailer mailer.Mailer
	appURL string
	log    *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(m mailer.Mailer, appURL string, log *slog.Logger) *SenderService {
	return &SenderService{mailer: m, appURL: appURL, log: log}
}

// Enabled сообщает, настроен ли почтовый провайдер.
func (s *SenderService) Enabled() bool {
	return s.mailer.Enabled()
}

func planName(plan models.SubscriptionPlan) string {
	if plan == models.PlanPremium {
		return "Premium"
	}
	return "Daily Insights"
}

// NotifyWelcome отправляет приветственное письмо после активации
// или продления подписки.
func (s *SenderService) NotifyWelcome(ctx context.Context, email string, plan models.SubscriptionPlan) error {
	subject := fmt.Sprintf("Welcome to %s - Book Insights", planName(plan))
	body := fmt.Sprintf(
		`<p>Your <b>%s</b> subscription is active.</p>
<p>Fresh book insights are waiting for you: <a href="%s/insights">%s/insights</a></p>`,
		planName(plan), s.appURL, s.appURL)
	return s.mailer.Send(ctx, []string{email}, subject, body)
}

// NotifyPaymentFailure отправляет письмо о неудачном списании.
func (s *SenderService) NotifyPaymentFailure(ctx context.Context, email string, plan models.SubscriptionPlan) error {
	subject := fmt.Sprintf("Payment issue on your %s plan", planName(plan))
	body := fmt.Sprintf(
		`<p>We could not charge your <b>%s</b> subscription.</p>
<p>Please update your payment method to keep access: <a href="%s/billing">%s/billing</a></p>`,
		planName(plan), s.appURL, s.appURL)
	return s.mailer.Send(ctx, []string{email}, subject, body)
}

// SendDailyDigest отправляет свежий материал списку получателей.
func (s *SenderService) SendDailyDigest(ctx context.Context, recipients []string, insight *models.Insight) error {
	subject := fmt.Sprintf("Today's Insight: %s", insight.Title)
	body := fmt.Sprintf(
		`<h2>%s</h2>
<p>%s</p>
<p><a href="%s/insights/%s">Read the full insight</a></p>`,
		insight.Title, insight.ShortSummary, s.appURL, insight.Slug)
	return s.mailer.Send(ctx, recipients, subject, body)
}

// SendClassReminder отправляет напоминание о живом занятии.
// startingSoon переключает тему письма для занятий ближайшего часа.
func (s *SenderService) SendClassReminder(ctx context.Context, recipients []string, class *models.LiveClass, startingSoon bool) error {
	subject := fmt.Sprintf("Live class in 24h: %s", class.Title)
	if startingSoon {
		subject = fmt.Sprintf("Starting soon: %s", class.Title)
	}
	link := s.appURL + "/live-classes"
	if class.MeetingLink != nil && *class.MeetingLink != "" {
		link = *class.MeetingLink
	}
	body := fmt.Sprintf(
		`<h2>%s</h2>
<p>%s</p>
<p>Starts at %s.</p>
<p><a href="%s">Join the class</a></p>`,
		class.Title, class.Description, class.StartTime.Format("Mon, 2 Jan 15:04 MST"), link)
	return s.mailer.Send(ctx, recipients, subject, body)
}

// HandleQueueMessage обрабатывает сообщение очереди уведомлений.
// Используется воркером notification-sender.
func (s *SenderService) HandleQueueMessage(ctx context.Context, body []byte) error {
	var message rabbitmq.NotificationMessage
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal notification message", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	plan := models.SubscriptionPlan(message.Plan)
	switch message.Kind {
	case rabbitmq.KindWelcome:
		return s.NotifyWelcome(ctx, message.Email, plan)
	case rabbitmq.KindPaymentFailure:
		return s.NotifyPaymentFailure(ctx, message.Email, plan)
	default:
		s.log.Warn("unknown notification kind", slog.String("kind", message.Kind))
		return nil
	}
}
