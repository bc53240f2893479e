package service

import (
	"context"

	"retailhub/backend/internal/domain"
)

// LowStockAlerts reports rows at or below their minimum level.
func (s *Service) LowStockAlerts(ctx context.Context, filter domain.AlertFilter) (domain.AlertReport, error) {
	if filter.Level != "" && !filter.Level.Valid() {
		return domain.AlertReport{}, invalid("unknown alert level %q", filter.Level)
	}
	return s.alerts.Report(ctx, filter, s.repo.ListLowStock)
}
