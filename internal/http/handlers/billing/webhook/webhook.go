// Package webhook реализует HTTP-обработчик вебхуков Razorpay.
//
// Handler проверяет подпись X-Razorpay-Signature по HMAC-SHA256 и
// передает тело события сервису сверки. Событие без подходящей
// подписки не считается ошибкой и отвечает 200.
package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/bookinsights/insights-backend/internal/http/response"
	"github.com/bookinsights/insights-backend/internal/lib/sl"
	"github.com/bookinsights/insights-backend/internal/razorpay"
	"github.com/bookinsights/insights-backend/internal/services/reconciler"
)

// Handler управляет HTTP-запросами вебхуков платежного шлюза.
type Handler struct {
	log           *slog.Logger
	service       Service
	webhookSecret string
}

// Service описывает интерфейс сервиса сверки.
type Service interface {
	Process(ctx context.Context, raw []byte) (*reconciler.Result, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service, webhookSecret string) *Handler {
	return &Handler{log: log, service: service, webhookSecret: webhookSecret}
}

// ServeHTTP godoc
// @Summary Принять вебхук Razorpay
// @Description Проверяет подпись и сверяет состояние подписки с событием.
// @Tags Billing
// @Accept  json
// @Produce  json
// @Param X-Razorpay-Signature header string true "HMAC-SHA256 подпись тела"
// @Success 200 {object} map[string]any "Событие обработано"
// @Failure 400 {object} response.ErrorResponse "Неверная подпись или тело"
// @Router /webhooks/razorpay [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.webhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	signature := r.Header.Get("X-Razorpay-Signature")
	if !razorpay.VerifyWebhookSignature(body, signature, h.webhookSecret) {
		log.Warn("webhook signature verification failed")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}

	result, err := h.service.Process(r.Context(), body)
	if err != nil {
		if errors.Is(err, reconciler.ErrInvalidPayload) {
			log.Error("invalid webhook payload", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid webhook payload"))
			return
		}
		log.Error("failed to process webhook", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not process webhook"))
		return
	}

	log.Info("webhook processed",
		slog.String("event", result.Event),
		slog.Bool("matched", result.Matched))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"event":   result.Event,
		"matched": result.Matched,
	}))
}
