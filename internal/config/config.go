package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	AllowedOrigin   string        `envconfig:"ALLOWED_ORIGIN" default:"http://127.0.0.1:3000"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	RateLimitPerMin int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"300"`
	LoginRateLimit  int           `envconfig:"LOGIN_RATE_LIMIT_PER_MINUTE" default:"10"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	Production      bool          `envconfig:"PRODUCTION" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	AutoMigrate bool   `envconfig:"AUTO_MIGRATE" default:"true"`

	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	AlertCacheTTL time.Duration `envconfig:"ALERT_CACHE_TTL" default:"30s"`

	AuthSecret            string `envconfig:"AUTH_SECRET"`
	AccessTokenTTLMinutes int    `envconfig:"ACCESS_TOKEN_TTL_MINUTES" default:"480"`
	SeedAdminPassword     string `envconfig:"SEED_ADMIN_PASSWORD"`

	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"stock.movements"`

	WorkerConcurrency int    `envconfig:"WORKER_CONCURRENCY" default:"5"`
	ReconcileCron     string `envconfig:"RECONCILE_CRON" default:"0 2 * * *"`
	LowStockCron      string `envconfig:"LOW_STOCK_CRON" default:"*/30 * * * *"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg.AuthSecret = strings.TrimSpace(cfg.AuthSecret)
	if cfg.AccessTokenTTLMinutes < 1 {
		cfg.AccessTokenTTLMinutes = 480
	}
	if cfg.AlertCacheTTL <= 0 {
		cfg.AlertCacheTTL = 30 * time.Second
	}
	if cfg.WorkerConcurrency < 1 {
		cfg.WorkerConcurrency = 5
	}
	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}
