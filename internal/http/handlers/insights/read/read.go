// Package read реализует HTTP-обработчик чтения материала по slug.
//
// Полный текст видят только пользователи с активной подпиской,
// остальным отдается выжимка с флагом locked.
package read

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/bookinsights/insights-backend/internal/http/middlewarectx"
	"github.com/bookinsights/insights-backend/internal/http/response"
	"github.com/bookinsights/insights-backend/internal/lib/sl"
	"github.com/bookinsights/insights-backend/internal/services/access"
	"github.com/bookinsights/insights-backend/internal/services/content"
)

// Handler управляет HTTP-запросами чтения материала.
type Handler struct {
	log     *slog.Logger
	service Service
	access  AccessService
}

// Service описывает интерфейс выборки материала.
type Service interface {
	GetInsight(ctx context.Context, slug string, hasAccess bool) (*content.InsightView, error)
}

// AccessService описывает интерфейс проверки прав подписки.
type AccessService interface {
	Resolve(ctx context.Context, userUID string) (*access.Entitlement, error)
}

// New создает новый Handler с переданными логгером и сервисами.
func New(log *slog.Logger, service Service, accessService AccessService) *Handler {
	return &Handler{log: log, service: service, access: accessService}
}

// ServeHTTP godoc
// @Summary Прочитать материал
// @Description Возвращает материал по slug. Без активной подписки полный текст скрыт.
// @Tags Insights
// @Produce  json
// @Param slug path string true "Slug материала"
// @Success 200 {object} content.InsightView "Материал"
// @Failure 404 {object} response.ErrorResponse "Материал не найден"
// @Router /insights/{slug} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.insights.read"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	slug := chi.URLParam(r, "slug")
	if slug == "" {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("slug is required"))
		return
	}

	hasAccess := false
	if userUID, ok := r.Context().Value(middlewarectx.UserUID).(string); ok && userUID != "" {
		entitlement, err := h.access.Resolve(r.Context(), userUID)
		if err != nil {
			log.Error("failed to resolve entitlement", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not check subscription"))
			return
		}
		hasAccess = entitlement.IsActive
	}

	insight, err := h.service.GetInsight(r.Context(), slug, hasAccess)
	if err != nil {
		log.Error("failed to get insight", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not get insight"))
		return
	}
	if insight == nil {
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("insight not found"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(insight))
}
