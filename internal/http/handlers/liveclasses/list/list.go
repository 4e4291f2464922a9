// Package list реализует HTTP-обработчик расписания живых занятий.
//
// Расписание доступно только премиум-подписке, ссылки на встречи
// отдаются только ей же.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/bookinsights/insights-backend/internal/http/middlewarectx"
	"github.com/bookinsights/insights-backend/internal/http/response"
	"github.com/bookinsights/insights-backend/internal/lib/sl"
	"github.com/bookinsights/insights-backend/internal/models"
	"github.com/bookinsights/insights-backend/internal/services/access"
)

// Handler управляет HTTP-запросами расписания занятий.
type Handler struct {
	log     *slog.Logger
	service Service
	access  AccessService
}

// Service описывает интерфейс выборки занятий.
type Service interface {
	ListLiveClasses(ctx context.Context, isPremium bool) ([]*models.LiveClass, error)
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
// @Summary Расписание живых занятий
// @Description Возвращает запланированные занятия. Требуется премиум-подписка.
// @Tags LiveClasses
// @Produce  json
// @Success 200 {array} models.LiveClass "Занятия"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Нужна премиум-подписка"
// @Router /live-classes [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.liveclasses.list"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user uid not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	entitlement, err := h.access.Resolve(r.Context(), userUID)
	if err != nil {
		log.Error("failed to resolve entitlement", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not check subscription"))
		return
	}
	if !entitlement.IsPremium {
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error("premium subscription required"))
		return
	}

	classes, err := h.service.ListLiveClasses(r.Context(), entitlement.IsPremium)
	if err != nil {
		log.Error("failed to list live classes", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list live classes"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"classes": classes,
	}))
}
