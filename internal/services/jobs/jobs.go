// Package jobs реализует запускаемые по расписанию задачи:
// ежедневный дайджест и напоминания о живых занятиях. Задачи
// идемпотентны на уровне запуска и безопасны при пустых выборках.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookinsights/insights-backend/internal/lib/sl"
	"github.com/bookinsights/insights-backend/internal/models"
)

// Repository выборки хранилища для задач рассылки.
type Repository interface {
	LatestPublishedInsight(ctx context.Context) (*models.Insight, error)
	ListDigestRecipients(ctx context.Context) ([]string, error)
	ListPremiumRecipients(ctx context.Context) ([]string, error)
	ListUpcomingClasses(ctx context.Context, until time.Time) ([]*models.LiveClass, error)
}

// Sender отправляет письма рассылок.
type Sender interface {
	SendDailyDigest(ctx context.Context, recipients []string, insight *models.Insight) error
	SendClassReminder(ctx context.Context, recipients []string, class *models.LiveClass, startingSoon bool) error
	Enabled() bool
}

// Service сервис задач рассылки.
type Service struct {
	repo   Repository
	sender Sender
	log    *slog.Logger
}

// New создает сервис задач.
func New(repo Repository, sender Sender, log *slog.Logger) *Service {
	return &Service{repo: repo, sender: sender, log: log}
}

// DigestResult итог запуска дайджеста. Непустое поле Skipped
// объясняет, почему рассылка не состоялась.
type DigestResult struct {
	Skipped string `json:"skipped,omitempty"`
	Sent    int    `json:"sent"`
}

// RunDailyDigest отправляет свежий опубликованный материал всем
// активным подписчикам с включенной рассылкой.
func (s *Service) RunDailyDigest(ctx context.Context) (*DigestResult, error) {
	const op = "jobs.RunDailyDigest"

	if !s.sender.Enabled() {
		return &DigestResult{Skipped: "email provider is not configured"}, nil
	}

	insight, err := s.repo.LatestPublishedInsight(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if insight == nil {
		return &DigestResult{Skipped: "no published insight"}, nil
	}

	recipients, err := s.repo.ListDigestRecipients(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(recipients) == 0 {
		return &DigestResult{Skipped: "no recipients"}, nil
	}

	if err := s.sender.SendDailyDigest(ctx, recipients, insight); err != nil {
		s.log.Error("failed to send daily digest", sl.Err(err))
		return &DigestResult{Skipped: "send failed"}, nil
	}

	s.log.Info("daily digest sent",
		slog.String("insight", insight.Slug),
		slog.Int("recipients", len(recipients)))
	return &DigestResult{Sent: len(recipients)}, nil
}

// ReminderResult итог запуска напоминаний о занятиях.
type ReminderResult struct {
	Skipped string `json:"skipped,omitempty"`
	Classes int    `json:"classes"`
	Sent    int    `json:"sent"`
}

// RunLiveReminders отправляет премиум-подписчикам напоминания о
// занятиях ближайших суток. Занятие ближайшего часа получает тему
// "Starting soon". Ошибка по одному занятию не прерывает остальные.
func (s *Service) RunLiveReminders(ctx context.Context) (*ReminderResult, error) {
	const op = "jobs.RunLiveReminders"

	if !s.sender.Enabled() {
		return &ReminderResult{Skipped: "email provider is not configured"}, nil
	}

	now := time.Now()
	classes, err := s.repo.ListUpcomingClasses(ctx, now.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(classes) == 0 {
		return &ReminderResult{Skipped: "no upcoming classes"}, nil
	}

	recipients, err := s.repo.ListPremiumRecipients(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(recipients) == 0 {
		return &ReminderResult{Skipped: "no recipients", Classes: len(classes)}, nil
	}

	sent := 0
	for _, class := range classes {
		startingSoon := class.StartTime.Before(now.Add(time.Hour))
		if err := s.sender.SendClassReminder(ctx, recipients, class, startingSoon); err != nil {
			s.log.Error("failed to send class reminder",
				slog.Int("class_id", class.ID), sl.Err(err))
			continue
		}
		sent += len(recipients)
	}

	return &ReminderResult{Classes: len(classes), Sent: sent}, nil
}
