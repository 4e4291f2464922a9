// Package liveclasscreate реализует HTTP-обработчик создания живого
// занятия администратором.
package liveclasscreate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/bookinsights/insights-backend/internal/http/response"
	"github.com/bookinsights/insights-backend/internal/lib/sl"
	"github.com/bookinsights/insights-backend/internal/models"
)

// Handler управляет HTTP-запросами создания занятий.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс создания занятия.
type Service interface {
	CreateLiveClass(ctx context.Context, class *models.LiveClass) (int, error)
}

// Request тело запроса создания занятия.
type Request struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description" validate:"required"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	MeetingLink string    `json:"meeting_link"`
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
// @Summary Создать живое занятие
// @Description Создает занятие в статусе SCHEDULED. Доступно только администратору.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные занятия"
// @Success 200 {object} map[string]any "Занятие создано"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Нет прав администратора"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /admin/live-classes [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.liveclasscreate"
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

	class := &models.LiveClass{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		Status:      models.ClassScheduled,
	}
	if req.MeetingLink != "" {
		class.MeetingLink = &req.MeetingLink
	}

	id, err := h.service.CreateLiveClass(r.Context(), class)
	if err != nil {
		log.Error("failed to create live class", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create live class"))
		return
	}

	log.Info("live class created", slog.Int("id", id), slog.String("title", req.Title))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"id": id,
	}))
}
