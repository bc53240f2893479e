package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/store"
)

type tx struct {
	tx *sqlx.Tx
}

func (t *tx) GetShop(ctx context.Context, id int64) (domain.Shop, error) {
	return getShop(ctx, t.tx, id)
}

func (t *tx) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	return getProduct(ctx, t.tx, id)
}

func (t *tx) LockStock(ctx context.Context, shopID int64, productID int64) (store.StockLookup, error) {
	var row domain.StockRow
	err := t.tx.GetContext(ctx, &row, `
		SELECT `+stockColumns+` FROM stock WHERE shop_id = $1 AND product_id = $2 FOR UPDATE
	`, shopID, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.StockLookup{}, nil
	}
	if err != nil {
		return store.StockLookup{}, persistence("lock stock", err)
	}
	return store.StockLookup{Row: row, Found: true}, nil
}

func (t *tx) InsertStock(ctx context.Context, row domain.StockRow) (domain.StockRow, error) {
	if row.Quantity < 0 {
		return domain.StockRow{}, store.ErrInsufficientStock
	}
	var saved domain.StockRow
	err := t.tx.GetContext(ctx, &saved, `
		INSERT INTO stock (shop_id, product_id, quantity, min_stock_level, max_stock_level, buy_price, sale_price, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING `+stockColumns,
		row.ShopID, row.ProductID, row.Quantity, row.MinStockLevel, row.MaxStockLevel, row.BuyPrice, row.SalePrice)
	if err != nil {
		return domain.StockRow{}, stockError("insert stock", err)
	}
	return saved, nil
}

func (t *tx) UpdateStock(ctx context.Context, row domain.StockRow) (domain.StockRow, error) {
	if row.Quantity < 0 {
		return domain.StockRow{}, store.ErrInsufficientStock
	}
	var saved domain.StockRow
	err := t.tx.GetContext(ctx, &saved, `
		UPDATE stock
		SET quantity = $3, min_stock_level = $4, max_stock_level = $5,
		    buy_price = $6, sale_price = $7, last_updated = now()
		WHERE shop_id = $1 AND product_id = $2
		RETURNING `+stockColumns,
		row.ShopID, row.ProductID, row.Quantity, row.MinStockLevel, row.MaxStockLevel, row.BuyPrice, row.SalePrice)
	if err != nil {
		return domain.StockRow{}, stockError("update stock", err)
	}
	return saved, nil
}

func stockError(op string, err error) error {
	if isCheckViolation(err) {
		return store.ErrInsufficientStock
	}
	return translate(op, err)
}

func (t *tx) AppendLedger(ctx context.Context, entry domain.LedgerEntry) (domain.LedgerEntry, error) {
	err := t.tx.QueryRowxContext(ctx, `
		INSERT INTO stock_transactions (
			shop_id, product_id, transaction_type, quantity,
			reference_id, reference_type, notes, created_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, now()))
		RETURNING id, created_at
	`, entry.ShopID, entry.ProductID, entry.Type, entry.Quantity,
		entry.ReferenceID, entry.ReferenceType, entry.Notes, entry.CreatedBy,
		nullTime(entry.CreatedAt)).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return domain.LedgerEntry{}, translate("append ledger", err)
	}
	return entry, nil
}

func (t *tx) InsertSale(ctx context.Context, sale domain.Sale) (domain.Sale, error) {
	err := t.tx.QueryRowxContext(ctx, `
		INSERT INTO sales (
			sale_number, shop_id, customer_name, customer_email, customer_phone,
			subtotal, tax_amount, discount_amount, total_amount,
			status, sale_date, created_by, notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, now()), $12, $13)
		RETURNING id, sale_date
	`, sale.SaleNumber, sale.ShopID, sale.CustomerName, sale.CustomerEmail, sale.CustomerPhone,
		sale.Subtotal, sale.TaxAmount, sale.DiscountAmount, sale.TotalAmount,
		sale.Status, nullTime(sale.SaleDate), sale.CreatedBy, sale.Notes).Scan(&sale.ID, &sale.SaleDate)
	if err != nil {
		return domain.Sale{}, translate("insert sale", err)
	}
	sale.Items = nil
	sale.Payments = nil
	return sale, nil
}

func (t *tx) InsertSaleItem(ctx context.Context, item domain.SaleItem) (domain.SaleItem, error) {
	err := t.tx.QueryRowxContext(ctx, `
		INSERT INTO sale_items (sale_id, product_id, quantity, unit_price, discount, total_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, item.SaleID, item.ProductID, item.Quantity, item.UnitPrice, item.Discount, item.TotalPrice).Scan(&item.ID)
	if err != nil {
		return domain.SaleItem{}, translate("insert sale item", err)
	}
	return item, nil
}

func (t *tx) LockSale(ctx context.Context, id int64) (domain.Sale, error) {
	return getSale(ctx, t.tx, id, true)
}

func (t *tx) SetSaleStatus(ctx context.Context, id int64, status domain.SaleStatus) error {
	return t.exec(ctx, "set sale status", `UPDATE sales SET status = $2 WHERE id = $1`, id, status)
}

func (t *tx) InsertTransfer(ctx context.Context, transfer domain.StockTransfer) (domain.StockTransfer, error) {
	err := t.tx.QueryRowxContext(ctx, `
		INSERT INTO stock_transfers (
			transfer_number, from_shop_id, to_shop_id, product_id, quantity,
			status, notes, created_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, now()))
		RETURNING id, created_at
	`, transfer.TransferNumber, transfer.FromShopID, transfer.ToShopID, transfer.ProductID, transfer.Quantity,
		transfer.Status, transfer.Notes, transfer.CreatedBy, nullTime(transfer.CreatedAt)).Scan(&transfer.ID, &transfer.CreatedAt)
	if err != nil {
		return domain.StockTransfer{}, translate("insert transfer", err)
	}
	return transfer, nil
}

func (t *tx) LockTransfer(ctx context.Context, id int64) (domain.StockTransfer, error) {
	return getTransfer(ctx, t.tx, id, true)
}

func (t *tx) UpdateTransfer(ctx context.Context, transfer domain.StockTransfer) error {
	return t.exec(ctx, "update transfer", `
		UPDATE stock_transfers
		SET status = $2, notes = $3, received_by = $4, completed_at = $5
		WHERE id = $1
	`, transfer.ID, transfer.Status, transfer.Notes, transfer.ReceivedBy, transfer.CompletedAt)
}

func (t *tx) InsertPayment(ctx context.Context, payment domain.Payment) (domain.Payment, error) {
	err := t.tx.QueryRowxContext(ctx, `
		INSERT INTO payments (
			sale_id, payment_method, amount, reference_number,
			status, payment_date, processed_by, notes
		)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()), $7, $8)
		RETURNING id, payment_date
	`, payment.SaleID, payment.Method, payment.Amount, payment.ReferenceNumber,
		payment.Status, nullTime(payment.PaymentDate), payment.ProcessedBy, payment.Notes).Scan(&payment.ID, &payment.PaymentDate)
	if err != nil {
		return domain.Payment{}, translate("insert payment", err)
	}
	return payment, nil
}

func (t *tx) LockPayment(ctx context.Context, id int64) (domain.Payment, error) {
	return getPayment(ctx, t.tx, id, true)
}

func (t *tx) SetPaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus, notes string) error {
	return t.exec(ctx, "set payment status", `
		UPDATE payments
		SET status = $2, notes = CASE WHEN $3 = '' THEN notes ELSE $3 END
		WHERE id = $1
	`, id, status, notes)
}

func (t *tx) SumCompletedPayments(ctx context.Context, saleID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := t.tx.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(amount), 0) FROM payments WHERE sale_id = $1 AND status = $2
	`, saleID, domain.PaymentCompleted)
	if err != nil {
		return decimal.Zero, translate("sum payments", err)
	}
	return total, nil
}

func (t *tx) InsertQuotation(ctx context.Context, quotation domain.Quotation) (domain.Quotation, error) {
	err := t.tx.QueryRowxContext(ctx, `
		INSERT INTO quotations (
			quotation_number, supplier_name, supplier_email, supplier_phone, supplier_address, shop_id,
			subtotal, tax_amount, discount_amount, total_amount,
			status, valid_until, quotation_date, created_by, notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, COALESCE($13, now()), $14, $15)
		RETURNING id, quotation_date
	`, quotation.QuotationNumber, quotation.SupplierName, quotation.SupplierEmail, quotation.SupplierPhone,
		quotation.SupplierAddress, quotation.ShopID,
		quotation.Subtotal, quotation.TaxAmount, quotation.DiscountAmount, quotation.TotalAmount,
		quotation.Status, quotation.ValidUntil, nullTime(quotation.QuotationDate), quotation.CreatedBy,
		quotation.Notes).Scan(&quotation.ID, &quotation.QuotationDate)
	if err != nil {
		return domain.Quotation{}, translate("insert quotation", err)
	}

	items, err := t.ReplaceQuotationItems(ctx, quotation.ID, quotation.Items)
	if err != nil {
		return domain.Quotation{}, err
	}
	quotation.Items = items
	return quotation, nil
}

func (t *tx) LockQuotation(ctx context.Context, id int64) (domain.Quotation, error) {
	return getQuotation(ctx, t.tx, id, true)
}

func (t *tx) UpdateQuotation(ctx context.Context, q domain.Quotation) error {
	return t.exec(ctx, "update quotation", `
		UPDATE quotations
		SET supplier_name = $2, supplier_email = $3, supplier_phone = $4, supplier_address = $5,
		    subtotal = $6, tax_amount = $7, discount_amount = $8, total_amount = $9,
		    status = $10, valid_until = $11, notes = $12
		WHERE id = $1 AND deleted_at IS NULL
	`, q.ID, q.SupplierName, q.SupplierEmail, q.SupplierPhone, q.SupplierAddress,
		q.Subtotal, q.TaxAmount, q.DiscountAmount, q.TotalAmount,
		q.Status, q.ValidUntil, q.Notes)
}

func (t *tx) ReplaceQuotationItems(ctx context.Context, quotationID int64, items []domain.QuotationItem) ([]domain.QuotationItem, error) {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM quotation_items WHERE quotation_id = $1`, quotationID); err != nil {
		return nil, translate("delete quotation items", err)
	}

	saved := make([]domain.QuotationItem, 0, len(items))
	for _, item := range items {
		item.QuotationID = quotationID
		err := t.tx.QueryRowxContext(ctx, `
			INSERT INTO quotation_items (
				quotation_id, item_name, item_description, item_sku,
				quantity, unit_price, discount, total_price
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id
		`, quotationID, item.ItemName, item.ItemDescription, item.ItemSKU,
			item.Quantity, item.UnitPrice, item.Discount, item.TotalPrice).Scan(&item.ID)
		if err != nil {
			return nil, translate("insert quotation item", err)
		}
		saved = append(saved, item)
	}
	return saved, nil
}

func (t *tx) SoftDeleteQuotation(ctx context.Context, id int64, at time.Time) error {
	return t.exec(ctx, "delete quotation", `
		UPDATE quotations SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL
	`, id, at)
}

// exec runs a single-row write and reports ErrNotFound when nothing matched.
func (t *tx) exec(ctx context.Context, op string, query string, args ...any) error {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return translate(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistence(op, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
