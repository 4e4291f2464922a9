// Package insights собирает основное приложение: хранилище, кэш,
// платежный шлюз, сервисы и HTTP-сервер.
package insights

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/bookinsights/insights-backend/internal/cache"
	"github.com/bookinsights/insights-backend/internal/config"
	"github.com/bookinsights/insights-backend/internal/lib/jwt"
	"github.com/bookinsights/insights-backend/internal/lib/sl"
	"github.com/bookinsights/insights-backend/internal/mailer"
	"github.com/bookinsights/insights-backend/internal/migrations"
	"github.com/bookinsights/insights-backend/internal/rabbitmq"
	"github.com/bookinsights/insights-backend/internal/razorpay"
	accessservice "github.com/bookinsights/insights-backend/internal/services/access"
	authservice "github.com/bookinsights/insights-backend/internal/services/auth"
	billingservice "github.com/bookinsights/insights-backend/internal/services/billing"
	contentservice "github.com/bookinsights/insights-backend/internal/services/content"
	jobsservice "github.com/bookinsights/insights-backend/internal/services/jobs"
	"github.com/bookinsights/insights-backend/internal/services/notifier"
	"github.com/bookinsights/insights-backend/internal/services/reconciler"
	senderservice "github.com/bookinsights/insights-backend/internal/services/sender"
	"github.com/bookinsights/insights-backend/internal/storage"
)

// App основное приложение.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	amqp   *amqp.Connection
}

// New инициализирует зависимости и собирает HTTP-сервер.
// Redis и RabbitMQ опциональны: без адреса Redis кэш отключен,
// без URL брокера уведомления отправляются напрямую.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}
	if err = seed(ctx, cfg.Seed, db, logger); err != nil {
		return nil, err
	}

	var cacheRedis *cache.Cache
	if cfg.AddressRedis != "" {
		cacheRedis, err = cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			return nil, err
		}
	}

	mail := mailer.New(cfg.Email)
	senderService := senderservice.NewSenderService(mail, cfg.AppURL, logger)

	var amqpConn *amqp.Connection
	var webhookNotifier reconciler.Notifier = senderService
	if cfg.RabbitMQURL != "" {
		amqpConn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			return nil, err
		}
		ch, err := rabbitmq.SetupChannel(amqpConn)
		if err != nil {
			amqpConn.Close()
			return nil, err
		}
		webhookNotifier = notifier.NewQueueNotifier(ch)
	}

	gateway := razorpay.NewClient(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret)
	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	authService := authservice.New(db, jwtMaker)
	accessService := accessservice.New(db)
	contentService := contentservice.New(db, cacheRedis, logger)
	billingService := billingservice.New(gateway, db, cfg.Razorpay, logger)
	reconcilerService := reconciler.New(db, webhookNotifier, logger)
	jobsService := jobsservice.New(db, senderService, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, &Services{
		Auth:        authService,
		Access:      accessService,
		Content:     contentService,
		Billing:     billingService,
		Reconciler:  reconcilerService,
		Jobs:        jobsService,
		Subscribers: db,
		JWTMaker:    jwtMaker,
	}, cfg)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		amqp:   amqpConn,
	}, nil
}

// Run запускает HTTP-сервер и блокируется до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.db.DB.Close()
		if a.amqp != nil {
			if closeErr := a.amqp.Close(); closeErr != nil {
				a.logger.Error("failed to close rabbitmq connection", sl.Err(closeErr))
			}
		}
		return err
	}
}
