package models

import (
	"encoding/json"
	"time"
)

// ProviderRazorpay — единственный поддерживаемый платежный провайдер.
const ProviderRazorpay = "RAZORPAY"

// PaymentEvent — неизменяемая запись аудита о принятом вебхуке.
// Создается ровно один раз на каждый проверенный вызов и никогда
// не обновляется и не удаляется. Записи не дедуплицируются по
// provider_event_id: повторная доставка вебхука дает повторную строку.
type PaymentEvent struct {
	ID              int
	Provider        string          // Платежный провайдер, например RAZORPAY
	EventType       string          // Имя события провайдера как пришло
	ProviderEventID *string         // Идентификатор события у провайдера
	SubscriptionID  *int            // Ссылка на подписку, если нашлась
	UserUID         *string         // Ссылка на пользователя, если нашлась
	Payload         json.RawMessage // Сырой payload вебхука
	CreatedAt       time.Time
}
