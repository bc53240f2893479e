package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/store"
	"retailhub/backend/internal/xid"
)

// lineTotal is qty × unit price − discount.
func lineTotal(qty decimal.Decimal, unitPrice decimal.Decimal, discount decimal.Decimal) decimal.Decimal {
	return qty.Mul(unitPrice).Sub(discount)
}

type totals struct {
	subtotal decimal.Decimal
	tax      decimal.Decimal
	discount decimal.Decimal
	total    decimal.Decimal
}

func computeTotals(lines []decimal.Decimal, tax decimal.Decimal, discount decimal.Decimal) (totals, error) {
	if tax.IsNegative() {
		return totals{}, invalid("tax_amount must not be negative")
	}
	if discount.IsNegative() {
		return totals{}, invalid("discount_amount must not be negative")
	}
	subtotal := decimal.Zero
	for i, line := range lines {
		if line.IsNegative() {
			return totals{}, invalid("item %d total must not be negative", i+1)
		}
		subtotal = subtotal.Add(line)
	}
	total := subtotal.Add(tax).Sub(discount)
	if total.IsNegative() {
		return totals{}, invalid("total amount must not be negative")
	}
	return totals{subtotal: subtotal, tax: tax, discount: discount, total: total}, nil
}

func validateSaleItems(items []domain.SaleItemRequest) ([]decimal.Decimal, error) {
	if len(items) == 0 {
		return nil, invalid("sale must contain at least one item")
	}
	lines := make([]decimal.Decimal, 0, len(items))
	for i, item := range items {
		if item.ProductID <= 0 {
			return nil, invalid("item %d: product_id is required", i+1)
		}
		if item.Quantity <= 0 {
			return nil, invalid("item %d: quantity must be greater than zero", i+1)
		}
		if item.UnitPrice.IsNegative() || item.Discount.IsNegative() {
			return nil, invalid("item %d: unit_price and discount must not be negative", i+1)
		}
		lines = append(lines, lineTotal(decimal.NewFromInt(item.Quantity), item.UnitPrice, item.Discount))
	}
	return lines, nil
}

// CreateSale records a completed sale and removes its items from stock.
// Either every item is deducted or the sale does not exist.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.SaleResult, error) {
	defer s.metrics.Track("create_sale", time.Now())

	if req.ShopID <= 0 {
		return s.saleOutcome("create_sale", invalid("shop_id is required"))
	}
	lines, err := validateSaleItems(req.Items)
	if err != nil {
		return s.saleOutcome("create_sale", err)
	}
	sum, err := computeTotals(lines, req.TaxAmount, req.DiscountAmount)
	if err != nil {
		return s.saleOutcome("create_sale", err)
	}

	actor := actorID(ctx)
	var created domain.Sale
	var entries []domain.LedgerEntry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		entries = entries[:0]
		if _, err := tx.GetShop(ctx, req.ShopID); err != nil {
			return wrapNotFound(err, "shop %d", req.ShopID)
		}

		sale, err := tx.InsertSale(ctx, domain.Sale{
			SaleNumber:     xid.Number(xid.PrefixSale),
			ShopID:         req.ShopID,
			CustomerName:   strings.TrimSpace(req.CustomerName),
			CustomerEmail:  strings.TrimSpace(req.CustomerEmail),
			CustomerPhone:  strings.TrimSpace(req.CustomerPhone),
			Subtotal:       sum.subtotal,
			TaxAmount:      sum.tax,
			DiscountAmount: sum.discount,
			TotalAmount:    sum.total,
			Status:         domain.SaleCompleted,
			SaleDate:       s.now(),
			CreatedBy:      actor,
			Notes:          strings.TrimSpace(req.Notes),
		})
		if err != nil {
			return err
		}

		// Lock every touched row up front in product order so two sales over
		// the same products cannot wait on each other.
		products := make([]int64, 0, len(req.Items))
		for _, item := range req.Items {
			if !slices.Contains(products, item.ProductID) {
				products = append(products, item.ProductID)
			}
		}
		slices.Sort(products)
		for _, productID := range products {
			if _, err := tx.GetProduct(ctx, productID); err != nil {
				return wrapNotFound(err, "product %d", productID)
			}
			if _, err := tx.LockStock(ctx, req.ShopID, productID); err != nil {
				return err
			}
		}

		ref := &domain.Reference{Type: domain.ReferenceSale, ID: sale.ID}
		for i, item := range req.Items {
			saved, err := tx.InsertSaleItem(ctx, domain.SaleItem{
				SaleID:     sale.ID,
				ProductID:  item.ProductID,
				Quantity:   item.Quantity,
				UnitPrice:  item.UnitPrice,
				Discount:   item.Discount,
				TotalPrice: lines[i],
			})
			if err != nil {
				return err
			}
			_, entry, err := debit(ctx, tx, movement{
				shopID:    req.ShopID,
				productID: item.ProductID,
				qty:       item.Quantity,
				txType:    domain.TxSale,
				ref:       ref,
				actorID:   actor,
				notes:     "Sale " + sale.SaleNumber,
			})
			if err != nil {
				return err
			}
			sale.Items = append(sale.Items, saved)
			entries = append(entries, entry)
		}
		created = sale
		return nil
	})
	if err != nil {
		return s.saleOutcome("create_sale", err)
	}

	s.afterCommit(ctx, "create_sale", entries)
	return domain.SaleResult{
		Result:      ok("sale created successfully"),
		SaleID:      created.ID,
		SaleNumber:  created.SaleNumber,
		TotalAmount: created.TotalAmount,
		Sale:        &created,
	}, nil
}

// CancelSale returns every item of a completed sale to stock.
func (s *Service) CancelSale(ctx context.Context, saleID int64) (domain.SaleResult, error) {
	defer s.metrics.Track("cancel_sale", time.Now())

	actor := actorID(ctx)
	var cancelled domain.Sale
	var entries []domain.LedgerEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		entries = entries[:0]
		sale, err := tx.LockSale(ctx, saleID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return store.ErrNotCancellable
			}
			return err
		}
		if sale.Status != domain.SaleCompleted || !sale.Status.CanTransitionTo(domain.SaleCancelled) {
			return store.ErrNotCancellable
		}

		ref := &domain.Reference{Type: domain.ReferenceSale, ID: sale.ID}
		for _, item := range sale.Items {
			_, entry, err := credit(ctx, tx, movement{
				shopID:    sale.ShopID,
				productID: item.ProductID,
				qty:       item.Quantity,
				txType:    domain.TxReturn,
				ref:       ref,
				actorID:   actor,
				notes:     "Cancelled sale " + sale.SaleNumber,
			}, pricing{})
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		if err := tx.SetSaleStatus(ctx, sale.ID, domain.SaleCancelled); err != nil {
			return err
		}
		sale.Status = domain.SaleCancelled
		cancelled = sale
		return nil
	})
	if err != nil {
		return s.saleOutcome("cancel_sale", err)
	}

	s.afterCommit(ctx, "cancel_sale", entries)
	return domain.SaleResult{
		Result:      ok("sale cancelled successfully"),
		SaleID:      cancelled.ID,
		SaleNumber:  cancelled.SaleNumber,
		TotalAmount: cancelled.TotalAmount,
		Sale:        &cancelled,
	}, nil
}

// GetSale loads a sale with its items, payments and derived payment state.
func (s *Service) GetSale(ctx context.Context, saleID int64) (domain.Sale, error) {
	sale, err := s.repo.GetSale(ctx, saleID)
	if err != nil {
		return domain.Sale{}, err
	}
	sale.TotalPaid = TotalPaid(sale.Payments)
	sale.PaymentStatus = paymentStatus(sale.TotalPaid, sale.TotalAmount)
	return sale, nil
}

func (s *Service) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, domain.Pagination, error) {
	filter.Page = normalizePage(filter.Page.Page, filter.Page.Limit)
	sales, total, err := s.repo.ListSales(ctx, filter)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return sales, domain.NewPagination(filter.Page.Page, filter.Page.Limit, total), nil
}

func paymentStatus(paid decimal.Decimal, total decimal.Decimal) string {
	switch {
	case paid.GreaterThanOrEqual(total):
		return domain.PaymentStatusPaid
	case paid.IsPositive():
		return domain.PaymentStatusPartial
	default:
		return domain.PaymentStatusUnpaid
	}
}

func (s *Service) saleOutcome(op string, err error) (domain.SaleResult, error) {
	res, err := s.outcome(op, err)
	return domain.SaleResult{Result: res}, err
}
