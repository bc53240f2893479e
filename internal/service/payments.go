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

// settle promotes a pending sale to completed once its completed payments
// cover the total. A sale never moves backwards from here.
func settle(ctx context.Context, tx store.Tx, sale domain.Sale) (domain.SaleStatus, error) {
	if sale.Status != domain.SalePending {
		return sale.Status, nil
	}
	paid, err := tx.SumCompletedPayments(ctx, sale.ID)
	if err != nil {
		return "", err
	}
	if paid.LessThan(sale.TotalAmount) || !paid.IsPositive() {
		return sale.Status, nil
	}
	if err := tx.SetSaleStatus(ctx, sale.ID, domain.SaleCompleted); err != nil {
		return "", err
	}
	return domain.SaleCompleted, nil
}

func (s *Service) CreatePayment(ctx context.Context, req domain.PaymentCreateRequest) (domain.PaymentResult, error) {
	defer s.metrics.Track("create_payment", time.Now())

	switch {
	case req.SaleID <= 0:
		return s.paymentOutcome("create_payment", invalid("sale_id is required"))
	case !req.Method.Valid():
		return s.paymentOutcome("create_payment", invalid("unknown payment method %q", req.Method))
	case !req.Amount.IsPositive():
		return s.paymentOutcome("create_payment", invalid("amount must be greater than zero"))
	}

	var created domain.Payment
	var status domain.SaleStatus
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		sale, err := tx.LockSale(ctx, req.SaleID)
		if err != nil {
			return wrapNotFound(err, "sale %d", req.SaleID)
		}
		if sale.Status != domain.SalePending && sale.Status != domain.SaleCompleted {
			return fmt.Errorf("sale %s is %s: %w", sale.SaleNumber, sale.Status, store.ErrInvalidStateTransition)
		}

		created, err = tx.InsertPayment(ctx, domain.Payment{
			SaleID:          sale.ID,
			Method:          req.Method,
			Amount:          req.Amount,
			ReferenceNumber: strings.TrimSpace(req.ReferenceNumber),
			Status:          domain.PaymentCompleted,
			PaymentDate:     s.now(),
			ProcessedBy:     actorID(ctx),
			Notes:           strings.TrimSpace(req.Notes),
		})
		if err != nil {
			return err
		}
		status, err = settle(ctx, tx, sale)
		return err
	})
	if err != nil {
		return s.paymentOutcome("create_payment", err)
	}
	return domain.PaymentResult{
		Result:     ok("payment recorded successfully"),
		PaymentID:  created.ID,
		SaleStatus: status,
		Payment:    &created,
	}, nil
}

// RefundPayment marks a completed payment refunded. The sale status is left
// as it is; returning the goods is CancelSale's job.
func (s *Service) RefundPayment(ctx context.Context, paymentID int64, req domain.PaymentRefundRequest) (domain.PaymentResult, error) {
	defer s.metrics.Track("refund_payment", time.Now())

	var refunded domain.Payment
	var status domain.SaleStatus
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		payment, err := tx.LockPayment(ctx, paymentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("payment %d: %w", paymentID, store.ErrNotFound)
			}
			return err
		}
		if !payment.Status.CanTransitionTo(domain.PaymentRefunded) {
			return fmt.Errorf("payment %d is %s: %w", payment.ID, payment.Status, store.ErrAlreadyProcessed)
		}
		sale, err := tx.LockSale(ctx, payment.SaleID)
		if err != nil {
			return wrapNotFound(err, "sale %d", payment.SaleID)
		}

		notes := strings.TrimSpace(req.Notes)
		if err := tx.SetPaymentStatus(ctx, payment.ID, domain.PaymentRefunded, notes); err != nil {
			return err
		}
		payment.Status = domain.PaymentRefunded
		if notes != "" {
			payment.Notes = notes
		}
		refunded = payment
		status = sale.Status
		return nil
	})
	if err != nil {
		return s.paymentOutcome("refund_payment", err)
	}
	return domain.PaymentResult{
		Result:     ok("payment refunded successfully"),
		PaymentID:  refunded.ID,
		SaleStatus: status,
		Payment:    &refunded,
	}, nil
}

func (s *Service) GetPayment(ctx context.Context, id int64) (domain.Payment, error) {
	return s.repo.GetPayment(ctx, id)
}

func (s *Service) ListPayments(ctx context.Context, filter domain.PaymentFilter) ([]domain.Payment, domain.Pagination, error) {
	if filter.Method != "" && !filter.Method.Valid() {
		return nil, domain.Pagination{}, invalid("unknown payment method %q", filter.Method)
	}
	filter.Page = normalizePage(filter.Page.Page, filter.Page.Limit)
	payments, total, err := s.repo.ListPayments(ctx, filter)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return payments, domain.NewPagination(filter.Page.Page, filter.Page.Limit, total), nil
}

// TotalPaid sums the completed payments for a sale.
func TotalPaid(payments []domain.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, payment := range payments {
		if payment.Status == domain.PaymentCompleted {
			total = total.Add(payment.Amount)
		}
	}
	return total
}

func (s *Service) paymentOutcome(op string, err error) (domain.PaymentResult, error) {
	res, err := s.outcome(op, err)
	return domain.PaymentResult{Result: res}, err
}
