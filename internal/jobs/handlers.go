package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/metrics"
)

// Inventory is the part of the service the jobs drive.
type Inventory interface {
	Reconcile(ctx context.Context, shopID int64) (domain.ReconcileReport, error)
	LowStockAlerts(ctx context.Context, filter domain.AlertFilter) (domain.AlertReport, error)
}

type Handlers struct {
	inventory Inventory
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func NewHandlers(inventory Inventory, logger *zap.Logger, m *metrics.Metrics) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{inventory: inventory, logger: logger, metrics: m}
}

// Registrations lists every task handler for NewWorker.
func (h *Handlers) Registrations() []TaskHandler {
	return []TaskHandler{
		{Type: TaskLedgerReconcile, Handler: h.HandleLedgerReconcile},
		{Type: TaskLowStockScan, Handler: h.HandleLowStockScan},
		{Type: TaskQuotationDeliver, Handler: h.HandleQuotationDeliver},
	}
}

func (h *Handlers) HandleLedgerReconcile(ctx context.Context, t *asynq.Task) error {
	var payload ScopePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", t.Type(), errors.Join(err, asynq.SkipRetry))
	}

	report, err := h.inventory.Reconcile(ctx, payload.ShopID)
	if err != nil {
		h.logger.Error("ledger reconcile failed", zap.Int64("shop_id", payload.ShopID), zap.Error(err))
		return h.metrics.Job(TaskLedgerReconcile, err)
	}
	h.logger.Info("ledger reconciled",
		zap.Int64("shop_id", payload.ShopID),
		zap.Int("checked", report.Checked),
		zap.Int("drifts", len(report.Drifts)))
	return h.metrics.Job(TaskLedgerReconcile, nil)
}

func (h *Handlers) HandleLowStockScan(ctx context.Context, t *asynq.Task) error {
	var payload ScopePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", t.Type(), errors.Join(err, asynq.SkipRetry))
	}

	report, err := h.inventory.LowStockAlerts(ctx, domain.AlertFilter{ShopID: payload.ShopID})
	if err != nil {
		h.logger.Error("low stock scan failed", zap.Int64("shop_id", payload.ShopID), zap.Error(err))
		return h.metrics.Job(TaskLowStockScan, err)
	}
	for _, alert := range report.Alerts {
		if alert.Level == domain.AlertLow {
			continue
		}
		h.logger.Warn("stock alert",
			zap.Int64("shop_id", alert.ShopID),
			zap.Int64("product_id", alert.ProductID),
			zap.String("sku", alert.SKU),
			zap.String("level", string(alert.Level)),
			zap.Int64("quantity", alert.Quantity),
			zap.Int64("shortage", alert.Shortage))
	}
	h.logger.Info("low stock scan complete",
		zap.Int64("shop_id", payload.ShopID),
		zap.Int("total", report.Summary.Total),
		zap.Int("out_of_stock", report.Summary.OutOfStock),
		zap.Int("critical", report.Summary.Critical))
	return h.metrics.Job(TaskLowStockScan, nil)
}

// HandleQuotationDeliver records the hand-off of a sent quotation. Mail
// transport is not part of this service.
func (h *Handlers) HandleQuotationDeliver(_ context.Context, t *asynq.Task) error {
	var payload QuotationDeliveryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", t.Type(), errors.Join(err, asynq.SkipRetry))
	}
	if payload.SupplierEmail == "" {
		h.logger.Warn("quotation delivery without recipient", zap.String("quotation_number", payload.QuotationNumber))
		return h.metrics.Job(TaskQuotationDeliver, fmt.Errorf("quotation %s has no recipient: %w", payload.QuotationNumber, asynq.SkipRetry))
	}
	h.logger.Info("quotation handed off for delivery",
		zap.Int64("quotation_id", payload.QuotationID),
		zap.String("quotation_number", payload.QuotationNumber),
		zap.String("to", payload.SupplierEmail))
	return h.metrics.Job(TaskQuotationDeliver, nil)
}
