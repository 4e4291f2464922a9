// Package preferences реализует HTTP-обработчик настроек пользователя:
// включение и отключение ежедневной почтовой рассылки.
package preferences

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/bookinsights/insights-backend/internal/http/middlewarectx"
	"github.com/bookinsights/insights-backend/internal/http/response"
	"github.com/bookinsights/insights-backend/internal/lib/sl"
)

// Handler управляет HTTP-запросами настроек.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс изменения настроек.
type Service interface {
	SetDailyEmailOptIn(ctx context.Context, uid string, optIn bool) error
}

// Request тело запроса настроек. Указатель отличает явное false
// от отсутствующего поля.
type Request struct {
	DailyEmailOptIn *bool `json:"daily_email_opt_in"`
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Изменить настройки рассылки
// @Description Включает или отключает ежедневный дайджест для пользователя.
// @Tags User
// @Accept  json
// @Produce  json
// @Param request body Request true "Новое значение daily_email_opt_in"
// @Success 200 {object} response.Response "Настройки сохранены"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /user/preferences [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.preferences"
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
	if req.DailyEmailOptIn == nil {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("daily_email_opt_in is required"))
		return
	}

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if err := h.service.SetDailyEmailOptIn(r.Context(), userUID, *req.DailyEmailOptIn); err != nil {
		log.Error("failed to update preferences", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not update preferences"))
		return
	}

	log.Info("preferences updated",
		slog.String("user_uid", userUID),
		slog.Bool("daily_email_opt_in", *req.DailyEmailOptIn))
	render.JSON(w, r, response.OK())
}
