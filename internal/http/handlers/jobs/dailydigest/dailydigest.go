// Package dailydigest реализует HTTP-обработчик запуска ежедневной
// рассылки. Эндпоинт дергает внешний планировщик; при настроенном
// секрете запрос обязан нести заголовок X-Cron-Secret.
package dailydigest

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

// Handler управляет HTTP-запросами запуска дайджеста.
type Handler struct {
	log        *slog.Logger
	service    Service
	cronSecret string
}

// Service описывает интерфейс задачи дайджеста.
type Service interface {
	RunDailyDigest(ctx context.Context) (*jobs.DigestResult, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service, cronSecret string) *Handler {
	return &Handler{log: log, service: service, cronSecret: cronSecret}
}

// ServeHTTP godoc
// @Summary Запустить ежедневный дайджест
// @Description Отправляет свежий материал активным подписчикам.
// @Tags Jobs
// @Produce  json
// @Param X-Cron-Secret header string false "Секрет планировщика"
// @Success 200 {object} jobs.DigestResult "Итог рассылки"
// @Failure 401 {object} response.ErrorResponse "Неверный секрет"
// @Router /jobs/daily-digest [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.jobs.dailydigest"
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

	result, err := h.service.RunDailyDigest(r.Context())
	if err != nil {
		log.Error("failed to run daily digest", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not run daily digest"))
		return
	}

	log.Info("daily digest finished",
		slog.Int("sent", result.Sent), slog.String("skipped", result.Skipped))
	render.JSON(w, r, response.StatusOKWithData(result))
}
