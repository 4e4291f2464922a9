// Package checkout реализует HTTP-обработчик запуска оплаты подписки.
//
// Handler создает подписку в платежном шлюзе и возвращает данные для
// открытия платежного виджета на клиенте.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/bookinsights/insights-backend/internal/http/middlewarectx"
	"github.com/bookinsights/insights-backend/internal/http/response"
	"github.com/bookinsights/insights-backend/internal/lib/sl"
	"github.com/bookinsights/insights-backend/internal/services/billing"
)

// Handler управляет HTTP-запросами создания чекаута.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики чекаута.
type Service interface {
	Checkout(ctx context.Context, userUID, planRequest string) (*billing.CheckoutResult, error)
}

// Request тело запроса чекаута.
type Request struct {
	Plan string `json:"plan" validate:"required,oneof=daily premium"`
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Начать оплату подписки
// @Description Создает подписку в Razorpay и возвращает данные для виджета оплаты.
// @Tags Billing
// @Accept  json
// @Produce  json
// @Param request body Request true "Выбранный план: daily или premium"
// @Success 200 {object} billing.CheckoutResult "Чекаут создан"
// @Failure 400 {object} response.ErrorResponse "Шлюз не настроен или некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /billing/checkout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.checkout"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	result, err := h.service.Checkout(r.Context(), userUID, req.Plan)
	if err != nil {
		if errors.Is(err, billing.ErrNotConfigured) {
			log.Error("payment gateway is not configured")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("payment gateway is not configured"))
			return
		}
		log.Error("failed to create checkout", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create checkout"))
		return
	}

	log.Info("checkout created",
		slog.String("subscription_id", result.SubscriptionID),
		slog.String("plan", string(result.Plan)))
	render.JSON(w, r, response.StatusOKWithData(result))
}
