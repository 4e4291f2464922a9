package reconciler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bookinsights/insights-backend/internal/models"
)

func TestClassifyEvent(t *testing.T) {
	tests := []struct {
		event string
		want  EventKind
	}{
		{"subscription.activated", KindSubscriptionActivated},
		{"subscription.charged", KindSubscriptionCharged},
		{"subscription.cancelled", KindSubscriptionCancelled},
		{"payment.captured", KindPaymentCaptured},
		{"payment.failed", KindPaymentFailed},
		{"subscription.pending", KindUnrecognized},
		{"invoice.paid", KindUnrecognized},
		{"", KindUnrecognized},
	}
	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyEvent(tt.event))
		})
	}
}

func TestMapProviderStatus(t *testing.T) {
	tests := []struct {
		status string
		want   models.SubscriptionStatus
		wantOk bool
	}{
		{"active", models.StatusActive, true},
		{"authenticated", models.StatusActive, true},
		{"cancelled", models.StatusCancelled, true},
		{"completed", models.StatusExpired, true},
		{"expired", models.StatusExpired, true},
		{"pending", models.StatusPastDue, true},
		{"halted", models.StatusPaused, true},
		{"paused", models.StatusPaused, true},
		{"created", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			got, ok := MapProviderStatus(tt.status)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePayload(t *testing.T) {
	raw := []byte(`{
		"event": "subscription.charged",
		"payload": {
			"subscription": {"entity": {"id": "sub_123", "status": "active", "current_end": 1700000000}},
			"payment": {"entity": {"id": "pay_456", "subscription_id": "sub_123", "created_at": 1699999000}}
		}
	}`)

	payload, err := ParsePayload(raw)
	assert.NoError(t, err)
	assert.Equal(t, "subscription.charged", payload.Event)
	assert.Equal(t, "sub_123", payload.Payload.Subscription.Entity.ID)
	assert.Equal(t, int64(1700000000), payload.Payload.Subscription.Entity.CurrentEnd)
	assert.Equal(t, "pay_456", payload.Payload.Payment.Entity.ID)

	_, err = ParsePayload([]byte("not json"))
	assert.Error(t, err)
}
