package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/store"
)

// movement describes one signed change to a stock row. qty is always
// positive; the direction comes from the operation applying it.
type movement struct {
	shopID    int64
	productID int64
	qty       int64
	txType    domain.TransactionType
	ref       *domain.Reference
	actorID   int64
	notes     string
}

// pricing carries the optional row fields an addition may overwrite.
type pricing struct {
	buyPrice  *decimal.Decimal
	salePrice *decimal.Decimal
	minLevel  *int64
}

func (p pricing) applyTo(row *domain.StockRow) {
	if p.buyPrice != nil {
		row.BuyPrice = decimal.NewNullDecimal(*p.buyPrice)
	}
	if p.salePrice != nil {
		row.SalePrice = decimal.NewNullDecimal(*p.salePrice)
	}
	if p.minLevel != nil {
		row.MinStockLevel = *p.minLevel
	}
}

// credit adds m.qty to the row, inserting it when the pair has no row yet.
func credit(ctx context.Context, tx store.Tx, m movement, p pricing) (domain.StockRow, domain.LedgerEntry, error) {
	lookup, err := tx.LockStock(ctx, m.shopID, m.productID)
	if err != nil {
		return domain.StockRow{}, domain.LedgerEntry{}, err
	}

	var row domain.StockRow
	switch {
	case lookup.Found:
		row = lookup.Row
		row.Quantity += m.qty
		p.applyTo(&row)
		row, err = tx.UpdateStock(ctx, row)
	default:
		product, perr := tx.GetProduct(ctx, m.productID)
		if perr != nil {
			return domain.StockRow{}, domain.LedgerEntry{}, perr
		}
		row = domain.StockRow{
			ShopID:        m.shopID,
			ProductID:     m.productID,
			Quantity:      m.qty,
			MinStockLevel: product.DefaultMinStockLevel,
		}
		p.applyTo(&row)
		row, err = tx.InsertStock(ctx, row)
	}
	if err != nil {
		return domain.StockRow{}, domain.LedgerEntry{}, err
	}

	entry, err := record(ctx, tx, m, m.qty)
	return row, entry, err
}

// debit removes m.qty from an existing row. The check and the write happen
// under the same lock, so two concurrent debits cannot both pass.
func debit(ctx context.Context, tx store.Tx, m movement) (domain.StockRow, domain.LedgerEntry, error) {
	lookup, err := tx.LockStock(ctx, m.shopID, m.productID)
	if err != nil {
		return domain.StockRow{}, domain.LedgerEntry{}, err
	}
	if !lookup.Found {
		return domain.StockRow{}, domain.LedgerEntry{}, fmt.Errorf("%w for product %d in shop %d: no stock record", store.ErrInsufficientStock, m.productID, m.shopID)
	}
	if lookup.Row.Quantity < m.qty {
		return domain.StockRow{}, domain.LedgerEntry{}, fmt.Errorf("%w for product %d in shop %d: available %d, requested %d",
			store.ErrInsufficientStock, m.productID, m.shopID, lookup.Row.Quantity, m.qty)
	}

	row := lookup.Row
	row.Quantity -= m.qty
	row, err = tx.UpdateStock(ctx, row)
	if err != nil {
		return domain.StockRow{}, domain.LedgerEntry{}, err
	}
	entry, err := record(ctx, tx, m, -m.qty)
	return row, entry, err
}

// reset sets the row to m.qty and records the difference from the prior
// quantity, which is zero when the row did not exist.
func reset(ctx context.Context, tx store.Tx, m movement) (domain.StockRow, domain.LedgerEntry, error) {
	lookup, err := tx.LockStock(ctx, m.shopID, m.productID)
	if err != nil {
		return domain.StockRow{}, domain.LedgerEntry{}, err
	}

	var row domain.StockRow
	var delta int64
	if lookup.Found {
		row = lookup.Row
		delta = m.qty - row.Quantity
		row.Quantity = m.qty
		row, err = tx.UpdateStock(ctx, row)
	} else {
		product, perr := tx.GetProduct(ctx, m.productID)
		if perr != nil {
			return domain.StockRow{}, domain.LedgerEntry{}, perr
		}
		delta = m.qty
		row, err = tx.InsertStock(ctx, domain.StockRow{
			ShopID:        m.shopID,
			ProductID:     m.productID,
			Quantity:      m.qty,
			MinStockLevel: product.DefaultMinStockLevel,
		})
	}
	if err != nil {
		return domain.StockRow{}, domain.LedgerEntry{}, err
	}
	entry, err := record(ctx, tx, m, delta)
	return row, entry, err
}

func record(ctx context.Context, tx store.Tx, m movement, delta int64) (domain.LedgerEntry, error) {
	entry := domain.LedgerEntry{
		ShopID:    m.shopID,
		ProductID: m.productID,
		Type:      m.txType,
		Quantity:  delta,
		Notes:     strings.TrimSpace(m.notes),
		CreatedBy: m.actorID,
	}
	if m.ref != nil {
		id := m.ref.ID
		entry.ReferenceID = &id
		entry.ReferenceType = m.ref.Type
	} else {
		entry.ReferenceType = domain.ReferenceManual
	}
	return tx.AppendLedger(ctx, entry)
}

// ensureShopAndProduct rejects movements against unknown shops or products
// before any row is touched.
func ensureShopAndProduct(ctx context.Context, tx store.Tx, shopID int64, productID int64) error {
	if _, err := tx.GetShop(ctx, shopID); err != nil {
		return wrapNotFound(err, "shop %d", shopID)
	}
	if _, err := tx.GetProduct(ctx, productID); err != nil {
		return wrapNotFound(err, "product %d", productID)
	}
	return nil
}

func wrapNotFound(err error, format string, args ...any) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), store.ErrNotFound)
	}
	return err
}

func (s *Service) AddStock(ctx context.Context, req domain.AddStockRequest) (domain.StockResult, error) {
	defer s.metrics.Track("add_stock", time.Now())

	if req.Quantity <= 0 {
		return s.stockOutcome("add_stock", invalid("quantity must be greater than zero"))
	}
	if req.MinStockLevel != nil && *req.MinStockLevel < 0 {
		return s.stockOutcome("add_stock", invalid("min_stock_level must not be negative"))
	}
	if isNegative(req.BuyPrice) || isNegative(req.SalePrice) {
		return s.stockOutcome("add_stock", invalid("prices must not be negative"))
	}

	var res domain.StockResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := ensureShopAndProduct(ctx, tx, req.ShopID, req.ProductID); err != nil {
			return err
		}
		row, entry, err := credit(ctx, tx, movement{
			shopID:    req.ShopID,
			productID: req.ProductID,
			qty:       req.Quantity,
			txType:    domain.TxPurchase,
			actorID:   actorID(ctx),
			notes:     req.Notes,
		}, pricing{buyPrice: req.BuyPrice, salePrice: req.SalePrice, minLevel: req.MinStockLevel})
		if err != nil {
			return err
		}
		res = domain.StockResult{Result: ok("stock added successfully"), Stock: &row, Entry: &entry}
		return nil
	})
	if err != nil {
		return s.stockOutcome("add_stock", err)
	}
	s.afterCommit(ctx, "add_stock", []domain.LedgerEntry{*res.Entry})
	return res, nil
}

// ReduceStock removes stock outside of a sale. The ledger type defaults to
// sale, matching a counter sale recorded without line items.
func (s *Service) ReduceStock(ctx context.Context, req domain.ReduceStockRequest) (domain.StockResult, error) {
	return s.Reduce(ctx, req, domain.TxSale, nil)
}

// Reduce is ReduceStock with a caller-supplied ledger type and reference.
func (s *Service) Reduce(ctx context.Context, req domain.ReduceStockRequest, txType domain.TransactionType, ref *domain.Reference) (domain.StockResult, error) {
	defer s.metrics.Track("reduce_stock", time.Now())

	if req.Quantity <= 0 {
		return s.stockOutcome("reduce_stock", invalid("quantity must be greater than zero"))
	}
	if !txType.Valid() || !txType.Outbound() {
		return s.stockOutcome("reduce_stock", invalid("transaction type %q cannot reduce stock", txType))
	}

	var res domain.StockResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := ensureShopAndProduct(ctx, tx, req.ShopID, req.ProductID); err != nil {
			return err
		}
		row, entry, err := debit(ctx, tx, movement{
			shopID:    req.ShopID,
			productID: req.ProductID,
			qty:       req.Quantity,
			txType:    txType,
			ref:       ref,
			actorID:   actorID(ctx),
			notes:     req.Notes,
		})
		if err != nil {
			return err
		}
		res = domain.StockResult{Result: ok("stock reduced successfully"), Stock: &row, Entry: &entry}
		return nil
	})
	if err != nil {
		return s.stockOutcome("reduce_stock", err)
	}
	s.afterCommit(ctx, "reduce_stock", []domain.LedgerEntry{*res.Entry})
	return res, nil
}

func (s *Service) AdjustStock(ctx context.Context, req domain.AdjustStockRequest) (domain.StockResult, error) {
	defer s.metrics.Track("adjust_stock", time.Now())

	if req.Quantity < 0 {
		return s.stockOutcome("adjust_stock", invalid("quantity must not be negative"))
	}

	var res domain.StockResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := ensureShopAndProduct(ctx, tx, req.ShopID, req.ProductID); err != nil {
			return err
		}
		row, entry, err := reset(ctx, tx, movement{
			shopID:    req.ShopID,
			productID: req.ProductID,
			qty:       req.Quantity,
			txType:    domain.TxAdjustment,
			actorID:   actorID(ctx),
			notes:     req.Notes,
		})
		if err != nil {
			return err
		}
		res = domain.StockResult{Result: ok("stock adjusted successfully"), Stock: &row, Entry: &entry}
		return nil
	})
	if err != nil {
		return s.stockOutcome("adjust_stock", err)
	}
	s.afterCommit(ctx, "adjust_stock", []domain.LedgerEntry{*res.Entry})
	return res, nil
}

func (s *Service) GetStock(ctx context.Context, shopID int64, productID int64) (domain.StockRow, error) {
	return s.repo.GetStock(ctx, shopID, productID)
}

func (s *Service) ListStock(ctx context.Context, filter domain.StockFilter) ([]domain.StockRow, domain.Pagination, error) {
	filter.Page = normalizePage(filter.Page.Page, filter.Page.Limit)
	rows, total, err := s.repo.ListStock(ctx, filter)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return rows, domain.NewPagination(filter.Page.Page, filter.Page.Limit, total), nil
}

func (s *Service) ListLedger(ctx context.Context, filter domain.LedgerFilter) ([]domain.LedgerEntry, domain.Pagination, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, domain.Pagination{}, invalid("unknown transaction type %q", filter.Type)
	}
	filter.Page = normalizePage(filter.Page.Page, filter.Page.Limit)
	entries, total, err := s.repo.ListLedger(ctx, filter)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return entries, domain.NewPagination(filter.Page.Page, filter.Page.Limit, total), nil
}

func (s *Service) stockOutcome(op string, err error) (domain.StockResult, error) {
	res, err := s.outcome(op, err)
	return domain.StockResult{Result: res}, err
}

func isNegative(d *decimal.Decimal) bool {
	return d != nil && d.IsNegative()
}
