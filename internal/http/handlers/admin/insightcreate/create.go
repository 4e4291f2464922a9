// Package insightcreate реализует HTTP-обработчик создания материала
// администратором.
package insightcreate

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

// Handler управляет HTTP-запросами создания материалов.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс создания материала.
type Service interface {
	CreateInsight(ctx context.Context, insight *models.Insight) (int, error)
}

// Request тело запроса создания материала. Пустой publish_at
// означает немедленную публикацию.
type Request struct {
	Slug         string     `json:"slug" validate:"required"`
	Title        string     `json:"title" validate:"required"`
	ShortSummary string     `json:"short_summary" validate:"required"`
	Content      string     `json:"content" validate:"required"`
	Status       string     `json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED"`
	PublishAt    *time.Time `json:"publish_at"`
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
// @Summary Создать материал
// @Description Создает материал. Доступно только администратору.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные материала"
// @Success 200 {object} map[string]any "Материал создан"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Нет прав администратора"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /admin/insights [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.insightcreate"
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

	status := req.Status
	if status == "" {
		status = models.InsightPublished
	}
	publishAt := time.Now()
	if req.PublishAt != nil {
		publishAt = *req.PublishAt
	}

	insight := &models.Insight{
		Slug:         req.Slug,
		Title:        req.Title,
		ShortSummary: req.ShortSummary,
		Content:      req.Content,
		Status:       status,
		PublishAt:    publishAt,
	}
	id, err := h.service.CreateInsight(r.Context(), insight)
	if err != nil {
		log.Error("failed to create insight", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not create insight"))
		return
	}

	log.Info("insight created", slog.Int("id", id), slog.String("slug", req.Slug))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"id": id,
	}))
}
