package memory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/store"
)

// tx mutates a private copy of the store state. The store-wide write lock
// held by WithTx stands in for row locks.
type tx struct {
	st *state
}

func (t *tx) GetShop(_ context.Context, id int64) (domain.Shop, error) {
	return t.st.getShop(id)
}

func (t *tx) GetProduct(_ context.Context, id int64) (domain.Product, error) {
	return t.st.getProduct(id)
}

func (t *tx) LockStock(_ context.Context, shopID int64, productID int64) (store.StockLookup, error) {
	row, ok := t.st.stock[stockKey{shopID, productID}]
	return store.StockLookup{Row: row, Found: ok}, nil
}

func (t *tx) InsertStock(_ context.Context, row domain.StockRow) (domain.StockRow, error) {
	key := stockKey{row.ShopID, row.ProductID}
	if _, exists := t.st.stock[key]; exists {
		return domain.StockRow{}, store.ErrDuplicate
	}
	if row.Quantity < 0 {
		return domain.StockRow{}, store.ErrInsufficientStock
	}
	row.ID = t.st.next("stock")
	row.LastUpdated = time.Now().UTC()
	t.st.stock[key] = row
	return row, nil
}

func (t *tx) UpdateStock(_ context.Context, row domain.StockRow) (domain.StockRow, error) {
	key := stockKey{row.ShopID, row.ProductID}
	existing, ok := t.st.stock[key]
	if !ok {
		return domain.StockRow{}, store.ErrNotFound
	}
	if row.Quantity < 0 {
		return domain.StockRow{}, store.ErrInsufficientStock
	}
	row.ID = existing.ID
	row.LastUpdated = time.Now().UTC()
	t.st.stock[key] = row
	return row, nil
}

func (t *tx) AppendLedger(_ context.Context, entry domain.LedgerEntry) (domain.LedgerEntry, error) {
	entry.ID = t.st.next("ledger")
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	t.st.ledger = append(t.st.ledger, entry)
	return entry, nil
}

func (t *tx) InsertSale(_ context.Context, sale domain.Sale) (domain.Sale, error) {
	for _, existing := range t.st.sales {
		if existing.SaleNumber == sale.SaleNumber {
			return domain.Sale{}, store.ErrDuplicate
		}
	}
	sale.ID = t.st.next("sales")
	if sale.SaleDate.IsZero() {
		sale.SaleDate = time.Now().UTC()
	}
	sale.Items = nil
	sale.Payments = nil
	t.st.sales[sale.ID] = sale
	return sale, nil
}

func (t *tx) InsertSaleItem(_ context.Context, item domain.SaleItem) (domain.SaleItem, error) {
	if _, ok := t.st.sales[item.SaleID]; !ok {
		return domain.SaleItem{}, store.ErrNotFound
	}
	item.ID = t.st.next("sale_items")
	t.st.saleItems[item.SaleID] = append(t.st.saleItems[item.SaleID], item)
	return item, nil
}

func (t *tx) LockSale(_ context.Context, id int64) (domain.Sale, error) {
	return t.st.getSale(id)
}

func (t *tx) SetSaleStatus(_ context.Context, id int64, status domain.SaleStatus) error {
	sale, ok := t.st.sales[id]
	if !ok {
		return store.ErrNotFound
	}
	sale.Status = status
	t.st.sales[id] = sale
	return nil
}

func (t *tx) InsertTransfer(_ context.Context, transfer domain.StockTransfer) (domain.StockTransfer, error) {
	transfer.ID = t.st.next("transfers")
	if transfer.CreatedAt.IsZero() {
		transfer.CreatedAt = time.Now().UTC()
	}
	t.st.transfers[transfer.ID] = transfer
	return transfer, nil
}

func (t *tx) LockTransfer(_ context.Context, id int64) (domain.StockTransfer, error) {
	return t.st.getTransfer(id)
}

func (t *tx) UpdateTransfer(_ context.Context, transfer domain.StockTransfer) error {
	if _, ok := t.st.transfers[transfer.ID]; !ok {
		return store.ErrNotFound
	}
	t.st.transfers[transfer.ID] = transfer
	return nil
}

func (t *tx) InsertPayment(_ context.Context, payment domain.Payment) (domain.Payment, error) {
	if _, ok := t.st.sales[payment.SaleID]; !ok {
		return domain.Payment{}, store.ErrNotFound
	}
	payment.ID = t.st.next("payments")
	if payment.PaymentDate.IsZero() {
		payment.PaymentDate = time.Now().UTC()
	}
	t.st.payments[payment.ID] = payment
	return payment, nil
}

func (t *tx) LockPayment(_ context.Context, id int64) (domain.Payment, error) {
	return t.st.getPayment(id)
}

func (t *tx) SetPaymentStatus(_ context.Context, id int64, status domain.PaymentStatus, notes string) error {
	payment, ok := t.st.payments[id]
	if !ok {
		return store.ErrNotFound
	}
	payment.Status = status
	if notes != "" {
		payment.Notes = notes
	}
	t.st.payments[id] = payment
	return nil
}

func (t *tx) SumCompletedPayments(_ context.Context, saleID int64) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, payment := range t.st.payments {
		if payment.SaleID == saleID && payment.Status == domain.PaymentCompleted {
			total = total.Add(payment.Amount)
		}
	}
	return total, nil
}

func (t *tx) InsertQuotation(ctx context.Context, quotation domain.Quotation) (domain.Quotation, error) {
	for _, existing := range t.st.quotations {
		if existing.QuotationNumber == quotation.QuotationNumber {
			return domain.Quotation{}, store.ErrDuplicate
		}
	}
	quotation.ID = t.st.next("quotations")
	if quotation.QuotationDate.IsZero() {
		quotation.QuotationDate = time.Now().UTC()
	}
	items := quotation.Items
	quotation.Items = nil
	t.st.quotations[quotation.ID] = quotation

	saved, err := t.ReplaceQuotationItems(ctx, quotation.ID, items)
	if err != nil {
		return domain.Quotation{}, err
	}
	quotation.Items = saved
	return quotation, nil
}

func (t *tx) LockQuotation(_ context.Context, id int64) (domain.Quotation, error) {
	return t.st.getQuotation(id)
}

func (t *tx) UpdateQuotation(_ context.Context, quotation domain.Quotation) error {
	existing, ok := t.st.quotations[quotation.ID]
	if !ok || existing.DeletedAt != nil {
		return store.ErrNotFound
	}
	quotation.Items = nil
	t.st.quotations[quotation.ID] = quotation
	return nil
}

func (t *tx) ReplaceQuotationItems(_ context.Context, quotationID int64, items []domain.QuotationItem) ([]domain.QuotationItem, error) {
	if _, ok := t.st.quotations[quotationID]; !ok {
		return nil, store.ErrNotFound
	}
	saved := make([]domain.QuotationItem, 0, len(items))
	for _, item := range items {
		item.ID = t.st.next("quotation_items")
		item.QuotationID = quotationID
		saved = append(saved, item)
	}
	t.st.quotationItems[quotationID] = saved
	return saved, nil
}

func (t *tx) SoftDeleteQuotation(_ context.Context, id int64, at time.Time) error {
	quotation, ok := t.st.quotations[id]
	if !ok || quotation.DeletedAt != nil {
		return store.ErrNotFound
	}
	quotation.DeletedAt = &at
	t.st.quotations[id] = quotation
	return nil
}
