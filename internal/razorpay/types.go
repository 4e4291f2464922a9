package razorpay

// CreateSubscriptionRequest представляет запрос на создание подписки.
type CreateSubscriptionRequest struct {
	PlanID         string            `json:"plan_id"`         // идентификатор плана в Razorpay
	TotalCount     int               `json:"total_count"`     // число циклов списания
	CustomerNotify int               `json:"customer_notify"` // 1 — шлюз сам уведомляет клиента
	Notes          map[string]string `json:"notes,omitempty"` // дополнительная инфа: user_uid, plan
}

// SubscriptionResponse представляет ответ Razorpay на создание подписки.
// Поля с эпохами могут быть нулевыми, пока подписка не активирована.
type SubscriptionResponse struct {
	ID           string `json:"id"`            // идентификатор подписки, sub_*
	Status       string `json:"status"`        // статус, например "created"
	CustomerID   string `json:"customer_id"`   // идентификатор клиента, cust_*
	CurrentStart int64  `json:"current_start"` // начало периода, unix-секунды
	CurrentEnd   int64  `json:"current_end"`   // конец периода, unix-секунды
	ChargeAt     int64  `json:"charge_at"`     // следующее списание, unix-секунды
	ShortURL     string `json:"short_url"`     // ссылка на страницу оплаты
}
