package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"retailhub/backend/internal/domain"
)

// Reconcile compares each stock row with the sum of its ledger deltas and
// returns the rows where they disagree. shopID zero checks every shop.
func (s *Service) Reconcile(ctx context.Context, shopID int64) (domain.ReconcileReport, error) {
	balances, err := s.repo.LedgerBalances(ctx, shopID)
	if err != nil {
		return domain.ReconcileReport{}, fmt.Errorf("load ledger balances: %w", err)
	}

	report := domain.ReconcileReport{
		Checked:   len(balances),
		Drifts:    make([]domain.LedgerDrift, 0),
		CheckedAt: s.now(),
	}
	for _, balance := range balances {
		if balance.Quantity == balance.LedgerSum {
			continue
		}
		balance.Drift = balance.Quantity - balance.LedgerSum
		report.Drifts = append(report.Drifts, balance)
		s.logger.Warn("ledger drift",
			zap.Int64("shop_id", balance.ShopID),
			zap.Int64("product_id", balance.ProductID),
			zap.Int64("quantity", balance.Quantity),
			zap.Int64("ledger_sum", balance.LedgerSum))
	}
	s.metrics.Drift(len(report.Drifts))
	return report, nil
}
