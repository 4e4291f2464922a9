package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bookinsights/insights-backend/internal/config"
	"github.com/bookinsights/insights-backend/internal/lib/sl"
	"github.com/bookinsights/insights-backend/internal/mailer"
	"github.com/bookinsights/insights-backend/internal/rabbitmq"
	senderservice "github.com/bookinsights/insights-backend/internal/services/sender"
)

func main() {
	ctx := context.Background()
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	logger.Info("starting notification-sender", slog.String("env", cfg.Env))

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", sl.Err(err))
		os.Exit(1)
	}
	logger.Info("connected to RabbitMQ", slog.String("URL", cfg.RabbitMQURL))
	defer func() {
		_ = conn.Close()
	}()

	ch, err := rabbitmq.SetupChannel(conn)
	if err != nil {
		logger.Error("failed to setup RabbitMQ channel", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		_ = ch.Close()
	}()

	mail := mailer.New(cfg.Email)
	senderService := senderservice.NewSenderService(mail, cfg.AppURL, logger)

	err = rabbitmq.ConsumerMessage(ctx, ch, rabbitmq.QueueSubscription, func(body []byte) error {
		return senderService.HandleQueueMessage(ctx, body)
	})
	if err != nil {
		logger.Error("failed to start consumer", sl.Err(err))
		os.Exit(1)
	}

	sigterm := make(chan os.Signal, 1)
	signal.Notify(sigterm, syscall.SIGINT, syscall.SIGTERM)
	<-sigterm

	logger.Info("notification sender shutting down gracefully")
}
