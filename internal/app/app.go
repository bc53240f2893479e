// Package app assembles the repository, caches and publishers shared by the
// server and worker binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"retailhub/backend/internal/alerts"
	"retailhub/backend/internal/cache"
	"retailhub/backend/internal/config"
	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/events"
	"retailhub/backend/internal/httpapi"
	"retailhub/backend/internal/jobs"
	"retailhub/backend/internal/metrics"
	"retailhub/backend/internal/service"
	"retailhub/backend/internal/store"
	"retailhub/backend/internal/store/memory"
	pgstore "retailhub/backend/internal/store/postgres"
)

type Deps struct {
	Repo    store.Repository
	Service *service.Service
	Metrics *metrics.Metrics

	logger  *zap.Logger
	closers []func() error
}

// Build connects every backend named by cfg. A configured Postgres that
// cannot be reached is fatal; Redis and Kafka degrade to no-ops.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Deps, error) {
	d := &Deps{Metrics: metrics.New(), logger: logger}

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres unavailable and DATABASE_URL is set: %w", err)
		}
		d.closers = append(d.closers, pg.Close)
		if cfg.AutoMigrate {
			if err := pg.Migrate(ctx); err != nil {
				d.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		d.Repo = pg
		logger.Info("repository ready", zap.String("kind", "postgres"))
		if err := bootstrapAdmin(ctx, pg, cfg.SeedAdminPassword, logger); err != nil {
			d.Close()
			return nil, err
		}
	} else {
		d.Repo = memory.NewSeeded(logger)
		logger.Info("repository ready", zap.String("kind", "memory"))
	}

	alertCache := cache.AlertCache(cache.NoopAlertCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisAlertCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, alert cache disabled", zap.Error(err))
			_ = redisCache.Close()
		} else {
			alertCache = redisCache
			d.closers = append(d.closers, redisCache.Close)
			logger.Info("alert cache ready", zap.String("kind", "redis"))
		}
	}

	opts := []service.Option{service.WithLogger(logger), service.WithMetrics(d.Metrics)}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		d.closers = append(d.closers, publisher.Close)
		opts = append(opts, service.WithPublisher(publisher))
		logger.Info("movement events enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}
	if cfg.RedisAddr != "" {
		client := jobs.NewClient(RedisOpts(cfg))
		d.closers = append(d.closers, client.Close)
		opts = append(opts, service.WithNotifier(client))
	}

	d.Service = service.New(d.Repo, alerts.NewEngine(alertCache, cfg.AlertCacheTTL), opts...)
	return d, nil
}

func RedisOpts(cfg config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
}

// Close releases resources in reverse order of acquisition.
func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.logger.Warn("close failed", zap.Error(err))
		}
	}
	d.closers = nil
}

type userRepository interface {
	CreateUser(ctx context.Context, user domain.UserAccount) (domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
}

// bootstrapAdmin creates the first admin of an empty user table.
func bootstrapAdmin(ctx context.Context, users userRepository, password string, logger *zap.Logger) error {
	existing, err := users.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	password = strings.TrimSpace(password)
	if password == "" {
		logger.Warn("no users exist and SEED_ADMIN_PASSWORD is empty; nobody can log in")
		return nil
	}
	hash, err := httpapi.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	_, err = users.CreateUser(ctx, domain.UserAccount{
		Username: "admin",
		Email:    "admin@retailhub.local",
		Password: hash,
		Role:     domain.RoleAdmin,
		Active:   true,
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	logger.Info("bootstrapped admin account", zap.String("username", "admin"))
	return nil
}
