// Package content отдает материалы и расписание занятий с учетом
// прав подписки. Открытая часть материала видна всем, полный текст -
// только активным подписчикам, занятия - только премиум-плану.
package content

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookinsights/insights-backend/internal/cache"
	"github.com/bookinsights/insights-backend/internal/lib/sl"
	"github.com/bookinsights/insights-backend/internal/models"
)

// Время жизни кэша материалов.
const insightCacheTTL = 5 * time.Minute

// Repository выборки хранилища контента.
type Repository interface {
	CreateInsight(ctx context.Context, insight models.Insight) (int, error)
	GetInsightBySlug(ctx context.Context, slug string) (*models.Insight, error)
	ListPublishedInsights(ctx context.Context, limit, offset int) ([]*models.Insight, error)
	CreateLiveClass(ctx context.Context, class models.LiveClass) (int, error)
	ListScheduledClasses(ctx context.Context) ([]*models.LiveClass, error)
}

// Service сервис контента.
type Service struct {
	repo  Repository
	cache *cache.Cache
	log   *slog.Logger
}

// New создает сервис контента. Кэш опционален.
func New(repo Repository, c *cache.Cache, log *slog.Logger) *Service {
	return &Service{repo: repo, cache: c, log: log}
}

func insightCacheKey(slug string) string {
	return "insight:" + slug
}

// InsightView материал с учетом прав: без активной подписки поле
// Content пустое, Locked выставлен.
type InsightView struct {
	models.Insight
	Locked bool `json:"locked"`
}

// ListInsights возвращает страницу опубликованных материалов.
// В списке полный текст не отдается никому.
func (s *Service) ListInsights(ctx context.Context, limit, offset int) ([]*models.Insight, error) {
	const op = "content.ListInsights"

	insights, err := s.repo.ListPublishedInsights(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for _, insight := range insights {
		insight.Content = ""
	}
	return insights, nil
}

// GetInsight возвращает материал по slug. При hasAccess=false полный
// текст вырезается. Материал кэшируется целиком, права применяются
// после чтения из кэша.
func (s *Service) GetInsight(ctx context.Context, slug string, hasAccess bool) (*InsightView, error) {
	const op = "content.GetInsight"

	var insight *models.Insight
	if s.cache != nil {
		var cached models.Insight
		found, err := s.cache.Get(insightCacheKey(slug), &cached)
		if err != nil {
			s.log.Warn("insight cache read failed", sl.Err(err))
		}
		if found {
			insight = &cached
		}
	}

	if insight == nil {
		var err error
		insight, err = s.repo.GetInsightBySlug(ctx, slug)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if insight == nil {
			return nil, nil
		}
		if s.cache != nil {
			if err := s.cache.Set(insightCacheKey(slug), insight, insightCacheTTL); err != nil {
				s.log.Warn("insight cache write failed", sl.Err(err))
			}
		}
	}

	view := &InsightView{Insight: *insight}
	if !hasAccess {
		view.Content = ""
		view.Locked = true
	}
	return view, nil
}

// CreateInsight сохраняет материал и сбрасывает кэш его slug.
func (s *Service) CreateInsight(ctx context.Context, insight *models.Insight) (int, error) {
	const op = "content.CreateInsight"

	id, err := s.repo.CreateInsight(ctx, *insight)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(insightCacheKey(insight.Slug)); err != nil {
			s.log.Warn("insight cache invalidate failed", sl.Err(err))
		}
	}
	return id, nil
}

// ListLiveClasses возвращает запланированные занятия. Без премиум-плана
// ссылки на встречи вырезаются.
func (s *Service) ListLiveClasses(ctx context.Context, isPremium bool) ([]*models.LiveClass, error) {
	const op = "content.ListLiveClasses"

	classes, err := s.repo.ListScheduledClasses(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !isPremium {
		for _, class := range classes {
			class.MeetingLink = nil
		}
	}
	return classes, nil
}

// CreateLiveClass сохраняет живое занятие.
func (s *Service) CreateLiveClass(ctx context.Context, class *models.LiveClass) (int, error) {
	const op = "content.CreateLiveClass"

	id, err := s.repo.CreateLiveClass(ctx, *class)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}
