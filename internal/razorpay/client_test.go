package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)
	secret := "whsec_test"

	tests := []struct {
		name      string
		signature string
		secret    string
		want      bool
	}{
		{"valid signature", sign(body, secret), secret, true},
		{"wrong signature", sign(body, "other"), secret, false},
		{"garbage signature", "deadbeef", secret, false},
		{"empty signature", "", secret, false},
		{"empty secret", sign(body, secret), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifyWebhookSignature(body, tt.signature, tt.secret))
		})
	}
}

func TestConfigured(t *testing.T) {
	assert.True(t, NewClient("key", "secret").Configured())
	assert.False(t, NewClient("", "secret").Configured())
	assert.False(t, NewClient("key", "").Configured())
}
