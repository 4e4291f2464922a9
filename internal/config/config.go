// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	AppURL                  string `yaml:"app_url" env:"APP_URL"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	CronSecret              string `yaml:"cron_secret" env:"CRON_SECRET"`
	HTTPServer              `yaml:"http_server"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	JWTToken                `yaml:"jwttoken"`
	Razorpay                `yaml:"razorpay"`
	Email                   `yaml:"email"`
	Seed                    `yaml:"seed"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// RabbitMQ структура для настройки подключения к брокеру уведомлений.
// Пустой URL отключает очередь: уведомления отправляются напрямую.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// Razorpay структура с ключами платежного шлюза и идентификаторами планов.
type Razorpay struct {
	KeyID         string `yaml:"key_id" env:"RAZORPAY_KEY_ID"`
	KeySecret     string `yaml:"key_secret" env:"RAZORPAY_KEY_SECRET"`
	WebhookSecret string `yaml:"webhook_secret" env:"RAZORPAY_WEBHOOK_SECRET"`
	PlanIDDaily   string `yaml:"plan_id_daily" env:"RAZORPAY_PLAN_ID_DAILY"`
	PlanIDPremium string `yaml:"plan_id_premium" env:"RAZORPAY_PLAN_ID_PREMIUM"`
}

// Email структура для настройки почтового провайдера.
// Пустой server_token переводит рассылку в режим no-op.
type Email struct {
	PostmarkServerToken  string `yaml:"postmark_server_token" env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `yaml:"postmark_account_token" env:"POSTMARK_ACCOUNT_TOKEN"`
	EmailFrom            string `yaml:"from" env:"EMAIL_FROM" env-default:"no-reply@bookinsights.test"`
}

// Seed структура для начального наполнения базы. Пустой admin_email
// отключает сидирование.
type Seed struct {
	SeedAdminEmail    string `yaml:"admin_email" env:"SEED_ADMIN_EMAIL"`
	SeedAdminPassword string `yaml:"admin_password" env:"SEED_ADMIN_PASSWORD"`
	SeedDemoEmail     string `yaml:"demo_email" env:"SEED_DEMO_EMAIL"`
	SeedDemoPassword  string `yaml:"demo_password" env:"SEED_DEMO_PASSWORD"`
}

// MustLoad функция для загрузки конфига, путь берется из переменной CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
