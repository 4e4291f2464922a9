// Package metrics содержит счетчики Prometheus приложения.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WebhookEvents считает обработанные вебхуки платежного шлюза
// по виду события и результату сопоставления с подпиской.
var WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "webhook_events_total",
	Help: "Processed payment gateway webhook events.",
}, []string{"event", "matched"})
