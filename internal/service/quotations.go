package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/store"
	"retailhub/backend/internal/xid"
)

// TaxRate is applied to the subtotal when a quotation asks for tax.
var TaxRate = decimal.RequireFromString("0.16")

func quotationItems(reqs []domain.QuotationItemRequest) ([]domain.QuotationItem, []decimal.Decimal, error) {
	if len(reqs) == 0 {
		return nil, nil, invalid("quotation must contain at least one item")
	}
	items := make([]domain.QuotationItem, 0, len(reqs))
	lines := make([]decimal.Decimal, 0, len(reqs))
	for i, req := range reqs {
		name := strings.TrimSpace(req.ItemName)
		switch {
		case name == "":
			return nil, nil, invalid("item %d: item_name is required", i+1)
		case !req.Quantity.IsPositive():
			return nil, nil, invalid("item %d: quantity must be greater than zero", i+1)
		case req.UnitPrice.IsNegative() || req.Discount.IsNegative():
			return nil, nil, invalid("item %d: unit_price and discount must not be negative", i+1)
		}
		line := lineTotal(req.Quantity, req.UnitPrice, req.Discount)
		items = append(items, domain.QuotationItem{
			ItemName:        name,
			ItemDescription: strings.TrimSpace(req.ItemDescription),
			ItemSKU:         strings.TrimSpace(req.ItemSKU),
			Quantity:        req.Quantity,
			UnitPrice:       req.UnitPrice,
			Discount:        req.Discount,
			TotalPrice:      line,
		})
		lines = append(lines, line)
	}
	return items, lines, nil
}

func quotationTax(subtotal decimal.Decimal, applyTax bool, tax decimal.Decimal) decimal.Decimal {
	if applyTax {
		return subtotal.Mul(TaxRate).Round(2)
	}
	return tax
}

func (s *Service) CreateQuotation(ctx context.Context, req domain.QuotationCreateRequest) (domain.QuotationResult, error) {
	defer s.metrics.Track("create_quotation", time.Now())

	if strings.TrimSpace(req.SupplierName) == "" {
		return s.quotationOutcome("create_quotation", invalid("supplier_name is required"))
	}
	items, lines, err := quotationItems(req.Items)
	if err != nil {
		return s.quotationOutcome("create_quotation", err)
	}
	subtotal := decimal.Sum(decimal.Zero, lines...)
	sum, err := computeTotals(lines, quotationTax(subtotal, req.ApplyTax, req.TaxAmount), req.DiscountAmount)
	if err != nil {
		return s.quotationOutcome("create_quotation", err)
	}

	var created domain.Quotation
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if req.ShopID != nil {
			if _, err := tx.GetShop(ctx, *req.ShopID); err != nil {
				return wrapNotFound(err, "shop %d", *req.ShopID)
			}
		}
		var err error
		created, err = tx.InsertQuotation(ctx, domain.Quotation{
			QuotationNumber: xid.Number(xid.PrefixQuotation),
			SupplierName:    strings.TrimSpace(req.SupplierName),
			SupplierEmail:   strings.TrimSpace(req.SupplierEmail),
			SupplierPhone:   strings.TrimSpace(req.SupplierPhone),
			SupplierAddress: strings.TrimSpace(req.SupplierAddress),
			ShopID:          req.ShopID,
			Subtotal:        sum.subtotal,
			TaxAmount:       sum.tax,
			DiscountAmount:  sum.discount,
			TotalAmount:     sum.total,
			Status:          domain.QuotationDraft,
			ValidUntil:      req.ValidUntil,
			QuotationDate:   s.now(),
			CreatedBy:       actorID(ctx),
			Notes:           strings.TrimSpace(req.Notes),
			Items:           items,
		})
		return err
	})
	if err != nil {
		return s.quotationOutcome("create_quotation", err)
	}
	return domain.QuotationResult{Result: ok("quotation created successfully"), Quotation: &created}, nil
}

// UpdateQuotation applies the fields set on req. Items replace the current
// list; any change to items, tax or discount recomputes the totals.
func (s *Service) UpdateQuotation(ctx context.Context, id int64, req domain.QuotationUpdateRequest) (domain.QuotationResult, error) {
	defer s.metrics.Track("update_quotation", time.Now())

	var updated domain.Quotation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		q, err := lockQuotation(ctx, tx, id)
		if err != nil {
			return err
		}
		if !q.Status.Editable() {
			return fmt.Errorf("quotation %s is %s: %w", q.QuotationNumber, q.Status, store.ErrInvalidStateTransition)
		}

		if req.SupplierName != nil {
			name := strings.TrimSpace(*req.SupplierName)
			if name == "" {
				return invalid("supplier_name must not be empty")
			}
			q.SupplierName = name
		}
		if req.SupplierEmail != nil {
			q.SupplierEmail = strings.TrimSpace(*req.SupplierEmail)
		}
		if req.SupplierPhone != nil {
			q.SupplierPhone = strings.TrimSpace(*req.SupplierPhone)
		}
		if req.SupplierAddress != nil {
			q.SupplierAddress = strings.TrimSpace(*req.SupplierAddress)
		}
		if req.ValidUntil != nil {
			q.ValidUntil = req.ValidUntil
		}
		if req.Notes != nil {
			q.Notes = strings.TrimSpace(*req.Notes)
		}
		if req.Status != nil && *req.Status != q.Status {
			if *req.Status == domain.QuotationSent {
				return invalid("use send to move quotation %s to sent", q.QuotationNumber)
			}
			if !q.Status.CanTransitionTo(*req.Status) {
				return fmt.Errorf("quotation %s cannot move from %s to %s: %w", q.QuotationNumber, q.Status, *req.Status, store.ErrInvalidStateTransition)
			}
			q.Status = *req.Status
		}

		var items []domain.QuotationItem
		lines := []decimal.Decimal{q.Subtotal}
		if len(req.Items) > 0 {
			if items, lines, err = quotationItems(req.Items); err != nil {
				return err
			}
		}
		if len(req.Items) > 0 || req.ApplyTax != nil || req.TaxAmount != nil || req.DiscountAmount != nil {
			tax, discount := q.TaxAmount, q.DiscountAmount
			if req.TaxAmount != nil {
				tax = *req.TaxAmount
			}
			if req.DiscountAmount != nil {
				discount = *req.DiscountAmount
			}
			subtotal := decimal.Sum(decimal.Zero, lines...)
			sum, err := computeTotals(lines, quotationTax(subtotal, req.ApplyTax != nil && *req.ApplyTax, tax), discount)
			if err != nil {
				return err
			}
			q.Subtotal, q.TaxAmount, q.DiscountAmount, q.TotalAmount = sum.subtotal, sum.tax, sum.discount, sum.total
		}

		if err := tx.UpdateQuotation(ctx, q); err != nil {
			return err
		}
		if items != nil {
			if q.Items, err = tx.ReplaceQuotationItems(ctx, q.ID, items); err != nil {
				return err
			}
		}
		updated = q
		return nil
	})
	if err != nil {
		return s.quotationOutcome("update_quotation", err)
	}
	return domain.QuotationResult{Result: ok("quotation updated successfully"), Quotation: &updated}, nil
}

func (s *Service) DeleteQuotation(ctx context.Context, id int64) (domain.QuotationResult, error) {
	defer s.metrics.Track("delete_quotation", time.Now())

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := lockQuotation(ctx, tx, id); err != nil {
			return err
		}
		return tx.SoftDeleteQuotation(ctx, id, s.now())
	})
	if err != nil {
		return s.quotationOutcome("delete_quotation", err)
	}
	return domain.QuotationResult{Result: ok("quotation deleted successfully")}, nil
}

// SendQuotation marks a quotation sent and hands it to the notifier once
// the status change has committed.
func (s *Service) SendQuotation(ctx context.Context, id int64) (domain.QuotationResult, error) {
	defer s.metrics.Track("send_quotation", time.Now())

	var sent domain.Quotation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		q, err := lockQuotation(ctx, tx, id)
		if err != nil {
			return err
		}
		if q.SupplierEmail == "" {
			return invalid("quotation %s has no supplier email", q.QuotationNumber)
		}
		if q.Status != domain.QuotationDraft && q.Status != domain.QuotationExpired {
			return fmt.Errorf("quotation %s is %s: %w", q.QuotationNumber, q.Status, store.ErrInvalidStateTransition)
		}
		q.Status = domain.QuotationSent
		if err := tx.UpdateQuotation(ctx, q); err != nil {
			return err
		}
		sent = q
		return nil
	})
	if err != nil {
		return s.quotationOutcome("send_quotation", err)
	}

	if err := s.notifier.NotifyQuotationSent(ctx, sent); err != nil {
		s.logger.Warn("enqueue quotation delivery",
			zap.Int64("quotation_id", sent.ID),
			zap.String("quotation_number", sent.QuotationNumber),
			zap.Error(err))
	}
	return domain.QuotationResult{Result: ok("quotation sent successfully"), Quotation: &sent}, nil
}

func lockQuotation(ctx context.Context, tx store.Tx, id int64) (domain.Quotation, error) {
	q, err := tx.LockQuotation(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Quotation{}, fmt.Errorf("quotation %d: %w", id, store.ErrNotFound)
	}
	return q, err
}

func (s *Service) GetQuotation(ctx context.Context, id int64) (domain.Quotation, error) {
	return s.repo.GetQuotation(ctx, id)
}

func (s *Service) ListQuotations(ctx context.Context, filter domain.QuotationFilter) ([]domain.Quotation, domain.Pagination, error) {
	filter.Page = normalizePage(filter.Page.Page, filter.Page.Limit)
	quotations, total, err := s.repo.ListQuotations(ctx, filter)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return quotations, domain.NewPagination(filter.Page.Page, filter.Page.Limit, total), nil
}

func (s *Service) quotationOutcome(op string, err error) (domain.QuotationResult, error) {
	res, err := s.outcome(op, err)
	return domain.QuotationResult{Result: res}, err
}
