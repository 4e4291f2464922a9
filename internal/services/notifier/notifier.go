// Package notifier публикует уведомления о подписках в очередь.
// Письмо отправляет отдельный воркер, вебхук не ждет почтовый провайдер.
package notifier

import (
	"context"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/bookinsights/insights-backend/internal/models"
	"github.com/bookinsights/insights-backend/internal/rabbitmq"
)

// QueueNotifier отправляет уведомления через RabbitMQ.
type QueueNotifier struct {
	ch *amqp.Channel
}

// NewQueueNotifier создает нотификатор поверх открытого канала.
func NewQueueNotifier(ch *amqp.Channel) *QueueNotifier {
	return &QueueNotifier{ch: ch}
}

// NotifyWelcome ставит в очередь приветственное письмо.
func (n *QueueNotifier) NotifyWelcome(_ context.Context, email string, plan models.SubscriptionPlan) error {
	const op = "notifier.NotifyWelcome"
	err := rabbitmq.PublishMessage(n.ch, rabbitmq.ExchangeName, rabbitmq.RoutingKeySubscription,
		rabbitmq.NotificationMessage{Kind: rabbitmq.KindWelcome, Email: email, Plan: string(plan)})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// NotifyPaymentFailure ставит в очередь письмо о неудачном платеже.
func (n *QueueNotifier) NotifyPaymentFailure(_ context.Context, email string, plan models.SubscriptionPlan) error {
	const op = "notifier.NotifyPaymentFailure"
	err := rabbitmq.PublishMessage(n.ch, rabbitmq.ExchangeName, rabbitmq.RoutingKeySubscription,
		rabbitmq.NotificationMessage{Kind: rabbitmq.KindPaymentFailure, Email: email, Plan: string(plan)})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
