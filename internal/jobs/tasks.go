package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	QueueDefault = "default"

	TaskLedgerReconcile  = "ledger:reconcile"
	TaskLowStockScan     = "stock:low-scan"
	TaskQuotationDeliver = "quotation:deliver"
)

// ScopePayload narrows a scan to one shop. ShopID zero means every shop.
type ScopePayload struct {
	ShopID int64 `json:"shop_id"`
}

type QuotationDeliveryPayload struct {
	QuotationID     int64  `json:"quotation_id"`
	QuotationNumber string `json:"quotation_number"`
	SupplierName    string `json:"supplier_name"`
	SupplierEmail   string `json:"supplier_email"`
}

func NewLedgerReconcileTask(shopID int64) (*asynq.Task, error) {
	return newTask(TaskLedgerReconcile, ScopePayload{ShopID: shopID})
}

func NewLowStockScanTask(shopID int64) (*asynq.Task, error) {
	return newTask(TaskLowStockScan, ScopePayload{ShopID: shopID})
}

func NewQuotationDeliverTask(payload QuotationDeliveryPayload) (*asynq.Task, error) {
	return newTask(TaskQuotationDeliver, payload)
}

func newTask(taskType string, payload any) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, data), nil
}
