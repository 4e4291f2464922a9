package models

import "time"

// Статусы публикации инсайта.
const (
	InsightDraft     = "DRAFT"
	InsightPublished = "PUBLISHED"
)

// Insight — статья-инсайт, доступная по активной подписке.
type Insight struct {
	ID           int
	Slug         string // Уникальный человекочитаемый идентификатор
	Title        string
	ShortSummary string
	Content      string
	Status       string    // DRAFT или PUBLISHED
	PublishAt    time.Time // Статья видна, когда PublishAt <= now
	CreatedAt    time.Time
}

// Статусы живого занятия.
const (
	ClassScheduled = "SCHEDULED"
	ClassCompleted = "COMPLETED"
	ClassCancelled = "CANCELLED"
)

// LiveClass — живое занятие, доступное по премиум-подписке.
type LiveClass struct {
	ID          int
	Title       string
	Description string
	StartTime   time.Time
	MeetingLink *string
	Status      string // SCHEDULED, COMPLETED или CANCELLED
	CreatedAt   time.Time
}
