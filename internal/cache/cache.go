package cache

import (
	"context"
	"time"

	"retailhub/backend/internal/domain"
)

// AlertCache stores computed low-stock reports keyed by shop scope.
type AlertCache interface {
	Get(ctx context.Context, key string) (*domain.AlertReport, bool, error)
	Set(ctx context.Context, key string, value *domain.AlertReport, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type NoopAlertCache struct{}

func (NoopAlertCache) Get(_ context.Context, _ string) (*domain.AlertReport, bool, error) {
	return nil, false, nil
}

func (NoopAlertCache) Set(_ context.Context, _ string, _ *domain.AlertReport, _ time.Duration) error {
	return nil
}

func (NoopAlertCache) Delete(_ context.Context, _ ...string) error {
	return nil
}
