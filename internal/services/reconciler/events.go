package reconciler

import (
	"encoding/json"
	"strings"

	"github.com/bookinsights/insights-backend/internal/models"
)

// WebhookPayload структура вебхука Razorpay. Сущности приходят во
// вложенных обертках payload.subscription.entity / payload.payment.entity,
// любая из них может отсутствовать.
type WebhookPayload struct {
	Event   string `json:"event"`
	ID      string `json:"id"`
	Payload struct {
		ID           string `json:"id"`
		Subscription *struct {
			Entity SubscriptionEntity `json:"entity"`
		} `json:"subscription"`
		Payment *struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// SubscriptionEntity сущность подписки из вебхука. Временные метки -
// epoch в секундах, ноль означает отсутствие значения.
type SubscriptionEntity struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	CurrentStart int64  `json:"current_start"`
	CurrentEnd   int64  `json:"current_end"`
	ChargeAt     int64  `json:"charge_at"`
	CustomerID   string `json:"customer_id"`
}

// PaymentEntity сущность платежа из вебхука.
type PaymentEntity struct {
	ID             string `json:"id"`
	SubscriptionID string `json:"subscription_id"`
	Status         string `json:"status"`
	CreatedAt      int64  `json:"created_at"`
}

// EventKind распознанный вид события вебхука. Влияет на финальный
// статус подписки и отправку уведомлений.
type EventKind int

const (
	KindUnrecognized EventKind = iota
	KindSubscriptionActivated
	KindSubscriptionCharged
	KindSubscriptionCancelled
	KindPaymentCaptured
	KindPaymentFailed
)

func (k EventKind) String() string {
	switch k {
	case KindSubscriptionActivated:
		return "subscription_activated"
	case KindSubscriptionCharged:
		return "subscription_charged"
	case KindSubscriptionCancelled:
		return "subscription_cancelled"
	case KindPaymentCaptured:
		return "payment_captured"
	case KindPaymentFailed:
		return "payment_failed"
	default:
		return "unrecognized"
	}
}

// classifyRules правила распознавания по подстроке имени события.
// Порядок имеет значение: применяется последнее совпавшее правило.
var classifyRules = []struct {
	substr string
	kind   EventKind
}{
	{"subscription.activated", KindSubscriptionActivated},
	{"payment.captured", KindPaymentCaptured},
	{"subscription.charged", KindSubscriptionCharged},
	{"payment.failed", KindPaymentFailed},
	{"subscription.cancelled", KindSubscriptionCancelled},
}

// ClassifyEvent определяет вид события по его имени.
func ClassifyEvent(event string) EventKind {
	kind := KindUnrecognized
	for _, rule := range classifyRules {
		if strings.Contains(event, rule.substr) {
			kind = rule.kind
		}
	}
	return kind
}

// MapProviderStatus переводит статус подписки Razorpay во внутренний.
// Второе значение false означает незнакомый статус: текущий статус
// подписки не меняется.
func MapProviderStatus(s string) (models.SubscriptionStatus, bool) {
	switch s {
	case "active", "authenticated":
		return models.StatusActive, true
	case "cancelled":
		return models.StatusCancelled, true
	case "completed", "expired":
		return models.StatusExpired, true
	case "pending":
		return models.StatusPastDue, true
	case "halted", "paused":
		return models.StatusPaused, true
	default:
		return "", false
	}
}

// ParsePayload разбирает тело вебхука.
func ParsePayload(raw []byte) (*WebhookPayload, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
