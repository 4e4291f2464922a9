// Package livereminders реализует HTTP-обработчик запуска напоминаний
// о живых занятиях ближайших суток.
package livereminders

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/bookinsights/insights-backend/internal/http/response"
	"github.com/bookinsights/insights-backend/internal/lib/sl"
	"github.com/bookinsights/insights-backend/internal/services/jobs"
)

// Handler управляет HTTP-запросами запуска напоминаний.
type Handler struct {
	log        *slog.Logger
	service    Service
	cronSecret string
}

// Service описывает интерфейс задачи напоминаний.
type Service interface {
	RunLiveReminders(ctx context.Context) (*jobs.ReminderResult, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service, cronSecret string) *Handler {
	return &Handler{log: log, service: service, cronSecret: cronSecret}
}

// ServeHTTP godoc
// @Summary Запустить напоминания о занятиях
// @Description Отправляет премиум-подписчикам письма о занятиях ближайших 24 часов.
// @Tags Jobs
// @Produce  json
// @Param X-Cron-Secret header string false "Секрет планировщика"
// @Success 200 {object} jobs.ReminderResult "Итог рассылки"
// @Failure 401 {object} response.ErrorResponse "Неверный секрет"
// @Router /jobs/live-reminders [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.jobs.livereminders"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if h.cronSecret != "" && r.Header.Get("X-Cron-Secret") != h.cronSecret {
		log.Warn("cron secret mismatch")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	result, err := h.service.RunLiveReminders(r.Context())
	if err != nil {
		log.Error("failed to run live reminders", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not run live reminders"))
		return
	}

	log.Info("live reminders finished",
		slog.Int("classes", result.Classes),
		slog.Int("sent", result.Sent),
		slog.String("skipped", result.Skipped))
	render.JSON(w, r, response.StatusOKWithData(result))
}
