// Package list реализует HTTP-обработчик списка опубликованных
// материалов. В списке отдаются только заголовки и краткие выжимки.
package list

import (
	"context"
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
	defaultLimit = 20
	maxLimit     = 100
)

// Handler управляет HTTP-запросами списка материалов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс выборки материалов.
type Service interface {
	ListInsights(ctx context.Context, limit, offset int) ([]*models.Insight, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список материалов
// @Description Возвращает страницу опубликованных материалов без полного текста.
// @Tags Insights
// @Produce  json
// @Param limit query int false "Размер страницы, по умолчанию 20"
// @Param offset query int false "Смещение"
// @Success 200 {array} models.Insight "Страница материалов"
// @Router /insights [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.insights.list"
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

	insights, err := h.service.ListInsights(r.Context(), limit, offset)
	if err != nil {
		log.Error("failed to list insights", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list insights"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"insights": insights,
	}))
}
