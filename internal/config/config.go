// Package config предоставляет структуры и функции для загрузки и проверки
// конфигурации бота. Конфиг читается из YAML-файла по пути CONFIG_PATH,
// отдельные значения можно переопределить переменными окружения.
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек.
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	Telegram                `yaml:"telegram"`
	Subscription            `yaml:"subscription"`
	Tribute                 `yaml:"tribute"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	Admin                   `yaml:"admin"`
}

// Telegram содержит настройки подключения к Telegram Bot API.
type Telegram struct {
	BotToken      string  `yaml:"bot_token" env:"BOT_TOKEN"`
	ChannelID     int64   `yaml:"channel_id" env:"CHANNEL_ID"`
	SupportUserID int64   `yaml:"support_user_id" env:"SUPPORT_USER_ID"`
	SupportName   string  `yaml:"support_username" env:"SUPPORT_USERNAME" env-default:"@support"`
	AdminIDs      []int64 `yaml:"admin_ids" env:"ADMIN_IDS"`
}

// Subscription содержит параметры продаваемой подписки и планировщика.
type Subscription struct {
	Price                 float64       `yaml:"price" env:"SUBSCRIPTION_PRICE" env-default:"19"`
	Currency              string        `yaml:"currency" env:"SUBSCRIPTION_CURRENCY" env-default:"USD"`
	DurationDays          int           `yaml:"duration_days" env:"SUBSCRIPTION_DAYS" env-default:"30"`
	CheckHour             int           `yaml:"check_hour" env:"SUBSCRIPTION_CHECK_HOUR" env-default:"12"`
	CheckTZOffset         int           `yaml:"check_tz_offset" env:"SUBSCRIPTION_CHECK_TZ_OFFSET" env-default:"0"`
	WarningDays           int           `yaml:"warning_days" env:"SUBSCRIPTION_WARNING_DAYS" env-default:"3"`
	MarkWarningOnFailure  bool          `yaml:"mark_warning_on_failure" env:"MARK_WARNING_ON_FAILURE" env-default:"false"`
	MaxCancelReasonLength int           `yaml:"max_cancel_reason_length" env:"MAX_CANCEL_REASON_LENGTH" env-default:"1000"`
	BroadcastInterval     time.Duration `yaml:"broadcast_interval" env:"BROADCAST_INTERVAL" env-default:"50ms"`
}

// Tribute содержит настройки платёжного провайдера Tribute.
type Tribute struct {
	Enabled       bool   `yaml:"enabled" env:"TRIBUTE_ENABLED" env-default:"true"`
	APIKey        string `yaml:"api_key" env:"TRIBUTE_API_KEY"`
	WebhookSecret string `yaml:"webhook_secret" env:"TRIBUTE_WEBHOOK_SECRET"`
	ProductURL    string `yaml:"product_url" env:"TRIBUTE_PRODUCT_URL"`
}

// RedisConnection структура для настройки подключения к redis.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user" env:"REDIS_USER"`
	DB           int           `yaml:"db" env:"REDIS_DB"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// HTTPServer структура для настройки сервера webhook и административного API.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:"0.0.0.0:9443"`
	WebhookPath string        `yaml:"webhook_path" env:"WEBHOOK_PATH" env-default:"/webhook/tribute"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// Admin содержит настройки доступа к административному API.
type Admin struct {
	KeyHash      string        `yaml:"key_hash" env:"ADMIN_KEY_HASH"`
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"12h"`
}

// MustLoad загружает конфиг по пути из CONFIG_PATH и завершает процесс,
// если файл отсутствует или не читается.
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
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %s", err)
	}
	return &cfg
}

// Validate проверяет обязательные настройки. Ошибка здесь фатальна:
// процесс не должен начинать обслуживание с неполной конфигурацией.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.ChannelID == 0 {
		return fmt.Errorf("telegram.channel_id is required")
	}
	if c.StorageConnectionString == "" {
		return fmt.Errorf("storage_connection_string is required")
	}
	if !strings.HasPrefix(c.WebhookPath, "/") {
		return fmt.Errorf("http_server.webhook_path must start with /")
	}
	if c.CheckHour < 0 || c.CheckHour > 23 {
		return fmt.Errorf("subscription.check_hour must be in range 0..23")
	}
	if c.CheckTZOffset < -23 || c.CheckTZOffset > 23 {
		return fmt.Errorf("subscription.check_tz_offset must be in range -23..23")
	}
	if c.DurationDays <= 0 {
		return fmt.Errorf("subscription.duration_days must be positive")
	}
	if c.Tribute.Enabled && c.Tribute.ProductURL == "" {
		return fmt.Errorf("tribute.product_url is required when tribute is enabled")
	}
	return nil
}
