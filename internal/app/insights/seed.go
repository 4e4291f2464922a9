package insights

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookinsights/insights-backend/internal/config"
	"github.com/bookinsights/insights-backend/internal/lib/password"
	"github.com/bookinsights/insights-backend/internal/models"
	"github.com/bookinsights/insights-backend/internal/storage"
)

// seed создает стартовые учетные записи: администратора и демо-читателя
// с активной подпиской. Повторный запуск ничего не перезаписывает.
func seed(ctx context.Context, cfg config.Seed, db *storage.Storage, log *slog.Logger) error {
	const op = "insights.seed"

	if cfg.SeedAdminEmail == "" {
		return nil
	}

	adminUID, err := seedUser(ctx, db, cfg.SeedAdminEmail, cfg.SeedAdminPassword,
		"Admin", models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if adminUID != "" {
		log.Info("seeded admin user", slog.String("email", cfg.SeedAdminEmail))
	}

	if cfg.SeedDemoEmail == "" {
		return nil
	}
	demoUID, err := seedUser(ctx, db, cfg.SeedDemoEmail, cfg.SeedDemoPassword,
		"Demo Reader", models.RoleUser)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if demoUID == "" {
		return nil
	}

	periodStart := time.Now()
	periodEnd := periodStart.AddDate(0, 1, 0)
	_, err = db.UpsertSubscriptionByProviderID(ctx, models.Subscription{
		UserUID:                demoUID,
		Plan:                   models.PlanPremium,
		Status:                 models.StatusActive,
		CurrentPeriodStart:     &periodStart,
		CurrentPeriodEnd:       &periodEnd,
		RazorpaySubscriptionID: "sub_seed_demo",
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("seeded demo reader with active subscription",
		slog.String("email", cfg.SeedDemoEmail))
	return nil
}

// seedUser регистрирует пользователя, если его еще нет.
// Возвращает пустой uid, когда пользователь уже существует.
func seedUser(ctx context.Context, db *storage.Storage,
	email, rawPassword, name, role string) (string, error) {

	existing, err := db.GetUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", nil
	}

	hash, err := password.GetHash(rawPassword)
	if err != nil {
		return "", err
	}
	return db.RegisterUser(ctx, models.User{
		Email:           email,
		Name:            name,
		PasswordHash:    hash,
		Role:            role,
		DailyEmailOptIn: true,
	})
}
