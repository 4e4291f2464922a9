package models

import "time"

// SubscriptionPlan — тарифный план подписки.
type SubscriptionPlan string

// Тарифные планы.
const (
	PlanDaily   SubscriptionPlan = "DAILY_99"
	PlanPremium SubscriptionPlan = "PREMIUM_499"
)

// SubscriptionStatus — внутренний статус подписки.
type SubscriptionStatus string

// Статусы подписки. Терминальные статусы CANCELLED и EXPIRED заново
// не открываются: при повторной подписке создается новая запись.
const (
	StatusActive    SubscriptionStatus = "ACTIVE"
	StatusPastDue   SubscriptionStatus = "PAST_DUE"
	StatusCancelled SubscriptionStatus = "CANCELLED"
	StatusExpired   SubscriptionStatus = "EXPIRED"
	StatusPaused    SubscriptionStatus = "PAUSED"
)

// Subscription представляет подписку пользователя на один из тарифов.
// Статус меняется только событиями вебхуков платежного шлюза;
// razorpay_subscription_id уникален на уровне базы данных.
type Subscription struct {
	ID                     int                // Внутренний идентификатор
	UserUID                string             // Владелец подписки
	Plan                   SubscriptionPlan   // Тарифный план
	Status                 SubscriptionStatus // Текущий статус
	CurrentPeriodStart     *time.Time         // Начало оплаченного периода
	CurrentPeriodEnd       *time.Time         // Конец оплаченного периода
	LastPaymentAt          *time.Time         // Время последнего успешного платежа
	NextChargeAt           *time.Time         // Время следующего списания
	RazorpayCustomerID     *string            // Идентификатор клиента в шлюзе
	RazorpaySubscriptionID string             // Идентификатор подписки в шлюзе (уникальный)
	CreatedAt              time.Time
}

// Subscriber — строка для админского списка и экспорта подписчиков.
type Subscriber struct {
	Email            string
	Name             string
	Plan             SubscriptionPlan
	Status           SubscriptionStatus
	CurrentPeriodEnd *time.Time
}
