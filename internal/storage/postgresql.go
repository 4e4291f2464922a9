// Package storage реализует хранилище данных на основе PostgreSQL
// для пользователей, подписок, событий платежей и контента.
// Уникальный индекс по razorpay_subscription_id — механизм, который
// не даёт создать две подписки при конкурентной доставке вебхуков.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/bookinsights/insights-backend/internal/models"
)

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// ===== USER METHODS =====

// RegisterUser сохраняет нового пользователя в базу данных и возвращает его UID.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newUID string
	query := `INSERT INTO users (email, name, password_hash, role, daily_email_opt_in)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING uid;`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Email, user.Name, user.PasswordHash, user.Role,
		user.DailyEmailOptIn).Scan(&newUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// GetUserByEmail возвращает пользователя по email без учета регистра.
// Отсутствие пользователя не является ошибкой: возвращается (nil, nil).
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, name, password_hash, role, daily_email_opt_in, created_at
			  FROM users
			  WHERE lower(email) = lower($1)`
	return s.scanUser(s.DB.QueryRowContext(ctx, query, email), op)
}

// GetUserByUID возвращает пользователя по его UID или (nil, nil), если он не найден.
func (s *Storage) GetUserByUID(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUserByUID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, name, password_hash, role, daily_email_opt_in, created_at
			  FROM users
			  WHERE uid = $1`
	return s.scanUser(s.DB.QueryRowContext(ctx, query, userUID), op)
}

func (s *Storage) scanUser(row *sql.Row, op string) (*models.User, error) {
	u := &models.User{}
	var passwordHash sql.NullString
	if err := row.Scan(&u.UID, &u.Email, &u.Name, &passwordHash,
		&u.Role, &u.DailyEmailOptIn, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	u.PasswordHash = passwordHash.String
	return u, nil
}

// UpdateDailyEmailOptIn переключает согласие пользователя на рассылку.
func (s *Storage) UpdateDailyEmailOptIn(ctx context.Context, userUID string, optIn bool) error {
	const op = "storage.UpdateDailyEmailOptIn"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET daily_email_opt_in = $1
			  WHERE uid = $2`
	_, err := s.DB.ExecContext(ctx, query, optIn, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ===== SUBSCRIPTION METHODS =====

const subscriptionColumns = `id, user_uid, plan, status, current_period_start, current_period_end,
			  last_payment_at, next_charge_at, razorpay_customer_id, razorpay_subscription_id, created_at`

// UpsertSubscriptionByProviderID вставляет подписку или обновляет существующую
// по razorpay_subscription_id и возвращает её ID. Безопасен при конкурентных
// вызовах: конфликт разрешается на уникальном индексе.
func (s *Storage) UpsertSubscriptionByProviderID(ctx context.Context, sub models.Subscription) (int, error) {
	const op = "storage.UpsertSubscriptionByProviderID"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (user_uid, plan, status, current_period_start,
				  current_period_end, last_payment_at, next_charge_at,
				  razorpay_customer_id, razorpay_subscription_id)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			  ON CONFLICT (razorpay_subscription_id) DO UPDATE
			  SET plan = EXCLUDED.plan,
			      status = EXCLUDED.status,
			      current_period_start = EXCLUDED.current_period_start,
			      current_period_end = EXCLUDED.current_period_end,
			      last_payment_at = EXCLUDED.last_payment_at,
			      next_charge_at = EXCLUDED.next_charge_at,
			      razorpay_customer_id = COALESCE(EXCLUDED.razorpay_customer_id, subscriptions.razorpay_customer_id)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		sub.UserUID, sub.Plan, sub.Status, sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
		sub.LastPaymentAt, sub.NextChargeAt, sub.RazorpayCustomerID,
		sub.RazorpaySubscriptionID).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// FindSubscriptionByProviderID возвращает подписку по идентификатору шлюза.
// Отсутствие совпадения не является ошибкой: возвращается (nil, nil).
func (s *Storage) FindSubscriptionByProviderID(ctx context.Context, providerID string) (*models.Subscription, error) {
	const op = "storage.FindSubscriptionByProviderID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE razorpay_subscription_id = $1`
	return s.scanSubscription(s.DB.QueryRowContext(ctx, query, providerID), op)
}

// FindActiveSubscription возвращает самую позднюю действующую подписку
// пользователя: status = ACTIVE и current_period_end строго в будущем.
// Детерминированный tie-break: при дубликатах побеждает позже истекающая.
func (s *Storage) FindActiveSubscription(ctx context.Context, userUID string) (*models.Subscription, error) {
	const op = "storage.FindActiveSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE user_uid = $1
			    AND status = $2
			    AND current_period_end > NOW()
			  ORDER BY current_period_end DESC
			  LIMIT 1`
	return s.scanSubscription(s.DB.QueryRowContext(ctx, query, userUID, models.StatusActive), op)
}

// FindLatestNonCancelled возвращает последнюю не отмененную подписку пользователя.
func (s *Storage) FindLatestNonCancelled(ctx context.Context, userUID string) (*models.Subscription, error) {
	const op = "storage.FindLatestNonCancelled"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE user_uid = $1
			    AND status <> $2
			  ORDER BY created_at DESC
			  LIMIT 1`
	return s.scanSubscription(s.DB.QueryRowContext(ctx, query, userUID, models.StatusCancelled), op)
}

func (s *Storage) scanSubscription(row *sql.Row, op string) (*models.Subscription, error) {
	sub := &models.Subscription{}
	var periodStart, periodEnd, lastPayment, nextCharge sql.NullTime
	var customerID sql.NullString
	if err := row.Scan(&sub.ID, &sub.UserUID, &sub.Plan, &sub.Status,
		&periodStart, &periodEnd, &lastPayment, &nextCharge,
		&customerID, &sub.RazorpaySubscriptionID, &sub.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if periodStart.Valid {
		sub.CurrentPeriodStart = &periodStart.Time
	}
	if periodEnd.Valid {
		sub.CurrentPeriodEnd = &periodEnd.Time
	}
	if lastPayment.Valid {
		sub.LastPaymentAt = &lastPayment.Time
	}
	if nextCharge.Valid {
		sub.NextChargeAt = &nextCharge.Time
	}
	if customerID.Valid {
		sub.RazorpayCustomerID = &customerID.String
	}
	return sub, nil
}

// UpdateSubscription обновляет изменяемые поля подписки по её ID.
// Обновления идемпотентны: значения перезаписываются целиком, last-write-wins.
func (s *Storage) UpdateSubscription(ctx context.Context, sub *models.Subscription) error {
	const op = "storage.UpdateSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET plan = $1, status = $2, current_period_start = $3, current_period_end = $4,
			      last_payment_at = $5, next_charge_at = $6, razorpay_customer_id = $7
			  WHERE id = $8`
	_, err := s.DB.ExecContext(ctx, query,
		sub.Plan, sub.Status, sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
		sub.LastPaymentAt, sub.NextChargeAt, sub.RazorpayCustomerID, sub.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// MarkSubscriptionCancelled переводит подписку в статус CANCELLED.
// Конец периода проставляется, если его еще не было.
func (s *Storage) MarkSubscriptionCancelled(ctx context.Context, id int) error {
	const op = "storage.MarkSubscriptionCancelled"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET status = $1,
			      current_period_end = COALESCE(current_period_end, NOW())
			  WHERE id = $2`
	_, err := s.DB.ExecContext(ctx, query, models.StatusCancelled, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListSubscribers возвращает подписчиков для админского списка с пагинацией.
func (s *Storage) ListSubscribers(ctx context.Context, limit, offset int) ([]*models.Subscriber, error) {
	const op = "storage.ListSubscribers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT u.email, u.name, s.plan, s.status, s.current_period_end
			  FROM subscriptions s
			  JOIN users u ON s.user_uid = u.uid
			  ORDER BY s.created_at DESC
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscriber
	for rows.Next() {
		var item models.Subscriber
		var periodEnd sql.NullTime
		if err := rows.Scan(&item.Email, &item.Name, &item.Plan, &item.Status, &periodEnd); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if periodEnd.Valid {
			item.CurrentPeriodEnd = &periodEnd.Time
		}
		result = append(result, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ===== PAYMENT EVENT METHODS =====

// SavePaymentEvent добавляет запись аудита о принятом вебхуке и возвращает её ID.
// Таблица append-only: записи никогда не обновляются и не удаляются.
func (s *Storage) SavePaymentEvent(ctx context.Context, ev models.PaymentEvent) (int, error) {
	const op = "storage.SavePaymentEvent"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payment_events (provider, event_type, provider_event_id,
				  subscription_id, user_uid, payload)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		ev.Provider, ev.EventType, ev.ProviderEventID, ev.SubscriptionID,
		ev.UserUID, []byte(ev.Payload)).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ===== RECIPIENT METHODS =====

// ListDigestRecipients возвращает адреса пользователей с действующей подпиской
// и включенной ежедневной рассылкой.
func (s *Storage) ListDigestRecipients(ctx context.Context) ([]string, error) {
	const op = "storage.ListDigestRecipients"
	return s.listRecipients(ctx, op, `SELECT DISTINCT u.email
			  FROM subscriptions s
			  JOIN users u ON s.user_uid = u.uid
			  WHERE s.status = 'ACTIVE'
			    AND s.current_period_end > NOW()
			    AND u.daily_email_opt_in = true`)
}

// ListPremiumRecipients возвращает адреса премиум-подписчиков
// с включенной рассылкой для напоминаний о занятиях.
func (s *Storage) ListPremiumRecipients(ctx context.Context) ([]string, error) {
	const op = "storage.ListPremiumRecipients"
	return s.listRecipients(ctx, op, `SELECT DISTINCT u.email
			  FROM subscriptions s
			  JOIN users u ON s.user_uid = u.uid
			  WHERE s.status = 'ACTIVE'
			    AND s.plan = 'PREMIUM_499'
			    AND s.current_period_end > NOW()
			    AND u.daily_email_opt_in = true`)
}

func (s *Storage) listRecipients(ctx context.Context, op, query string) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, email)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ===== INSIGHT METHODS =====

// CreateInsight вставляет новую статью и возвращает её ID.
func (s *Storage) CreateInsight(ctx context.Context, in models.Insight) (int, error) {
	const op = "storage.CreateInsight"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO insights (slug, title, short_summary, content, status, publish_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		in.Slug, in.Title, in.ShortSummary, in.Content, in.Status, in.PublishAt).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// LatestPublishedInsight возвращает самую свежую опубликованную статью
// с publish_at <= now или (nil, nil), если такой нет.
func (s *Storage) LatestPublishedInsight(ctx context.Context) (*models.Insight, error) {
	const op = "storage.LatestPublishedInsight"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, slug, title, short_summary, content, status, publish_at, created_at
			  FROM insights
			  WHERE status = 'PUBLISHED'
			    AND publish_at <= NOW()
			  ORDER BY publish_at DESC
			  LIMIT 1`
	return s.scanInsight(s.DB.QueryRowContext(ctx, query), op)
}

// GetInsightBySlug возвращает опубликованную статью по slug или (nil, nil).
func (s *Storage) GetInsightBySlug(ctx context.Context, slug string) (*models.Insight, error) {
	const op = "storage.GetInsightBySlug"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, slug, title, short_summary, content, status, publish_at, created_at
			  FROM insights
			  WHERE slug = $1
			    AND status = 'PUBLISHED'
			    AND publish_at <= NOW()`
	return s.scanInsight(s.DB.QueryRowContext(ctx, query, slug), op)
}

func (s *Storage) scanInsight(row *sql.Row, op string) (*models.Insight, error) {
	in := &models.Insight{}
	if err := row.Scan(&in.ID, &in.Slug, &in.Title, &in.ShortSummary,
		&in.Content, &in.Status, &in.PublishAt, &in.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return in, nil
}

// ListPublishedInsights возвращает опубликованные статьи с пагинацией,
// от свежих к старым.
func (s *Storage) ListPublishedInsights(ctx context.Context, limit, offset int) ([]*models.Insight, error) {
	const op = "storage.ListPublishedInsights"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, slug, title, short_summary, content, status, publish_at, created_at
			  FROM insights
			  WHERE status = 'PUBLISHED'
			    AND publish_at <= NOW()
			  ORDER BY publish_at DESC
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Insight
	for rows.Next() {
		var item models.Insight
		if err := rows.Scan(&item.ID, &item.Slug, &item.Title, &item.ShortSummary,
			&item.Content, &item.Status, &item.PublishAt, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ===== LIVE CLASS METHODS =====

// CreateLiveClass вставляет новое занятие и возвращает его ID.
func (s *Storage) CreateLiveClass(ctx context.Context, lc models.LiveClass) (int, error) {
	const op = "storage.CreateLiveClass"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO live_classes (title, description, start_time, meeting_link, status)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		lc.Title, lc.Description, lc.StartTime, lc.MeetingLink, lc.Status).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListUpcomingClasses возвращает запланированные занятия,
// начинающиеся в интервале от текущего момента до until.
func (s *Storage) ListUpcomingClasses(ctx context.Context, until time.Time) ([]*models.LiveClass, error) {
	const op = "storage.ListUpcomingClasses"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, title, description, start_time, meeting_link, status, created_at
			  FROM live_classes
			  WHERE status = 'SCHEDULED'
			    AND start_time >= NOW()
			    AND start_time <= $1
			  ORDER BY start_time`
	return s.queryClasses(ctx, op, query, until)
}

// ListScheduledClasses возвращает все будущие запланированные занятия.
func (s *Storage) ListScheduledClasses(ctx context.Context) ([]*models.LiveClass, error) {
	const op = "storage.ListScheduledClasses"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, title, description, start_time, meeting_link, status, created_at
			  FROM live_classes
			  WHERE status = 'SCHEDULED'
			    AND start_time >= NOW()
			  ORDER BY start_time`
	return s.queryClasses(ctx, op, query)
}

func (s *Storage) queryClasses(ctx context.Context, op, query string, args ...any) ([]*models.LiveClass, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.LiveClass
	for rows.Next() {
		var item models.LiveClass
		var meetingLink sql.NullString
		if err := rows.Scan(&item.ID, &item.Title, &item.Description, &item.StartTime,
			&meetingLink, &item.Status, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if meetingLink.Valid {
			item.MeetingLink = &meetingLink.String
		}
		result = append(result, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
