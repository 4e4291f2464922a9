// Package subscribers реализует админские HTTP-обработчики списка
// подписчиков: постраничный JSON и выгрузку в CSV.
package subscribers

import (
	"context"
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/bookinsights/insights-backend/internal/http/response"
	"github.com/bookinsights/insights-backend/internal/lib/sl"
	"github.com/bookinsights/insights-backend/internal/models"
)

// Значения пагинации по умолчанию.
const (
	defaultLimit = 50
	maxLimit     = 500
	exportLimit  = 10000
)

// Service описывает интерфейс выборки подписчиков.
type Service interface {
	ListSubscribers(ctx context.Context, limit, offset int) ([]*models.Subscriber, error)
}

// ListHandler отдает страницу подписчиков в JSON.
type ListHandler struct {
	log     *slog.Logger
	service Service
}

// NewList создает обработчик списка.
func NewList(log *slog.Logger, service Service) *ListHandler {
	return &ListHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список подписчиков
// @Description Возвращает страницу подписчиков. Доступно только администратору.
// @Tags Admin
// @Produce  json
// @Param limit query int false "Размер страницы, по умолчанию 50"
// @Param offset query int false "Смещение"
// @Success 200 {array} models.Subscriber "Подписчики"
// @Failure 403 {object} response.ErrorResponse "Нет прав администратора"
// @Router /admin/subscribers [get]
func (h *ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.subscribers.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit := defaultLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= maxLimit {
		limit = v
	}
	offset := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}

	subscribers, err := h.service.ListSubscribers(r.Context(), limit, offset)
	if err != nil {
		log.Error("failed to list subscribers", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list subscribers"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"subscribers": subscribers,
	}))
}

// ExportHandler выгружает подписчиков в CSV-файл.
type ExportHandler struct {
	log     *slog.Logger
	service Service
}

// NewExport создает обработчик экспорта.
func NewExport(log *slog.Logger, service Service) *ExportHandler {
	return &ExportHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Экспорт подписчиков в CSV
// @Description Выгружает подписчиков файлом subscribers.csv. Доступно только администратору.
// @Tags Admin
// @Produce  text/csv
// @Success 200 {string} string "CSV-файл"
// @Failure 403 {object} response.ErrorResponse "Нет прав администратора"
// @Router /admin/subscribers/export [get]
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.subscribers.export"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	subscribers, err := h.service.ListSubscribers(r.Context(), exportLimit, 0)
	if err != nil {
		log.Error("failed to list subscribers", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not export subscribers"))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="subscribers.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"email", "name", "plan", "status", "current_period_end"})
	for _, sub := range subscribers {
		periodEnd := ""
		if sub.CurrentPeriodEnd != nil {
			periodEnd = sub.CurrentPeriodEnd.Format("2006-01-02")
		}
		if err := cw.Write([]string{
			sub.Email,
			sub.Name,
			string(sub.Plan),
			string(sub.Status),
			periodEnd,
		}); err != nil {
			log.Error("failed to write csv row", sl.Err(err))
			return
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		log.Error("failed to flush csv", sl.Err(err))
		return
	}

	log.Info("subscribers exported", slog.Int("count", len(subscribers)))
}
