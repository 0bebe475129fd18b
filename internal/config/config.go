// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	RabbitMQ                `yaml:"rabbitmq"`
	SMTP                    `yaml:"smtp"`
	Quota                   `yaml:"quota"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// RabbitMQ структура для настройки подключения к брокеру уведомлений
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"rabbitmq_url"`
	RabbitMQMaxRetries int           `yaml:"rabbitmq_max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"rabbitmq_retry_delay" env-default:"3s"`
}

// SMTP структура для настройки отправки почты
type SMTP struct {
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort string `yaml:"smtp_port"`
	SMTPUser string `yaml:"smtp_user"`
	SMTPPass string `yaml:"smtp_pass"`
}

// Quota структура с константами движка квот и грейс-периодов.
// Все пороги заданы конфигом, а не литералами в коде.
type Quota struct {
	// FreeTierLimitBytes байтовый бюджет бесплатного тарифа (по умолчанию 30MB).
	FreeTierLimitBytes int64 `yaml:"free_tier_limit_bytes" env-default:"31457280"`
	// GracePeriodDays длительность грейс-периода после даунгрейда.
	GracePeriodDays int `yaml:"grace_period_days" env-default:"90"`
	// GracePeriodCooldown минимальный интервал между выдачами грейс-периода
	// одному аккаунту, защита от циклов подписка-даунгрейд.
	GracePeriodCooldown time.Duration `yaml:"grace_period_cooldown" env-default:"8760h"`
	// SweepSchedule cron-выражение запуска свипера.
	SweepSchedule string `yaml:"sweep_schedule" env-default:"0 3 * * *"`
	// SweepWorkers число аккаунтов, обрабатываемых свипером параллельно.
	SweepWorkers int `yaml:"sweep_workers" env-default:"4"`
	// StatusCacheTTL время жизни кеша статуса хранилища.
	StatusCacheTTL time.Duration `yaml:"status_cache_ttl" env-default:"30s"`
	// WebhookSecret секрет подписи вебхука биллинга.
	WebhookSecret string `yaml:"webhook_secret"`
}

// MustLoad функция для загрузки конфига, путь берётся из CONFIG_PATH
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

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"MigrationsPath: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  User: %s\n"+
			"  DB: %d\n"+
			"  MaxRetries: %d\n"+
			"  DialTimeout: %s\n"+
			"  Timeout: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"RabbitMQ:\n"+
			"  URL: %s\n"+
			"Quota:\n"+
			"  FreeTierLimitBytes: %d\n"+
			"  GracePeriodDays: %d\n"+
			"  GracePeriodCooldown: %s\n"+
			"  SweepSchedule: %s\n"+
			"  SweepWorkers: %d\n",
		c.Env,
		c.StorageConnectionString,
		c.MigrationsPath,
		c.AddressRedis,
		c.User,
		c.DB,
		c.MaxRetries,
		c.DialTimeout,
		c.TimeoutRedis,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.RabbitMQURL,
		c.FreeTierLimitBytes,
		c.GracePeriodDays,
		c.GracePeriodCooldown,
		c.SweepSchedule,
		c.SweepWorkers,
	)
}
