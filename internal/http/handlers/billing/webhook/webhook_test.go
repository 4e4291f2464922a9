package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bookinsights/insights-backend/internal/services/reconciler"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) Process(ctx context.Context, raw []byte) (*reconciler.Result, error) {
	args := m.Called(ctx, raw)
	result, _ := args.Get(0).(*reconciler.Result)
	return result, args.Error(1)
}

func NewNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestWebhook_InvalidSignature(t *testing.T) {
	service := new(ServiceMock)
	handler := New(NewNoopLogger(), service, "whsec_test")

	body := []byte(`{"event":"payment.captured"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/razorpay", bytes.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", "bad")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid signature")
	service.AssertNotCalled(t, "Process")
}

func TestWebhook_MissingSignature(t *testing.T) {
	service := new(ServiceMock)
	handler := New(NewNoopLogger(), service, "whsec_test")

	body := []byte(`{"event":"payment.captured"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/razorpay", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	service.AssertNotCalled(t, "Process")
}

func TestWebhook_Processed(t *testing.T) {
	service := new(ServiceMock)
	handler := New(NewNoopLogger(), service, "whsec_test")

	body := []byte(`{"event":"subscription.charged"}`)
	service.On("Process", mock.Anything, body).
		Return(&reconciler.Result{Event: "subscription.charged", Matched: true}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/razorpay", bytes.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", sign(body, "whsec_test"))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "subscription.charged")
	service.AssertExpectations(t)
}

func TestWebhook_InvalidPayload(t *testing.T) {
	service := new(ServiceMock)
	handler := New(NewNoopLogger(), service, "whsec_test")

	body := []byte(`not json`)
	service.On("Process", mock.Anything, body).
		Return(nil, reconciler.ErrInvalidPayload).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/razorpay", bytes.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", sign(body, "whsec_test"))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
