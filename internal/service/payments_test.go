package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailhub/backend/internal/domain"
)

func newSale(t *testing.T, svc *Service, ctx context.Context, total string) domain.SaleResult {
	t.Helper()
	res, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		ShopID: 1,
		Items:  []domain.SaleItemRequest{{ProductID: 1, Quantity: 1, UnitPrice: dec(total)}},
	})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	return res
}

func TestPaymentsKeepCompletedSaleCompleted(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asAdmin()
	sale := newSale(t, svc, ctx, "100")

	first, err := svc.CreatePayment(ctx, domain.PaymentCreateRequest{SaleID: sale.SaleID, Method: domain.MethodCard, Amount: dec("40"), ReferenceNumber: " ref-1 "})
	require.NoError(t, err)
	require.True(t, first.Success, first.Message)
	assert.Equal(t, domain.SaleCompleted, first.SaleStatus)
	assert.Equal(t, "ref-1", first.Payment.ReferenceNumber)
	assert.Equal(t, domain.PaymentCompleted, first.Payment.Status)

	got, err := svc.GetSale(ctx, sale.SaleID)
	require.NoError(t, err)
	assert.Equal(t, domain.SaleCompleted, got.Status)
	assert.Equal(t, domain.PaymentStatusPartial, got.PaymentStatus)

	second, err := svc.CreatePayment(ctx, domain.PaymentCreateRequest{SaleID: sale.SaleID, Method: domain.MethodCash, Amount: dec("60")})
	require.NoError(t, err)
	assert.Equal(t, domain.SaleCompleted, second.SaleStatus)

	got, err = svc.GetSale(ctx, sale.SaleID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, got.PaymentStatus)
	assert.Len(t, got.Payments, 2)
}

func TestPartiallyPaidSaleCanStillBeCancelled(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := asAdmin()
	before := stockQty(t, repo, 1, 1)
	sale := newSale(t, svc, ctx, "100")

	_, err := svc.CreatePayment(ctx, domain.PaymentCreateRequest{SaleID: sale.SaleID, Method: domain.MethodCash, Amount: dec("30")})
	require.NoError(t, err)

	res, err := svc.CancelSale(ctx, sale.SaleID)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, before, stockQty(t, repo, 1, 1))
}

func TestRefundLeavesSaleStatusAlone(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := asAdmin()
	before := stockQty(t, repo, 1, 1)
	sale := newSale(t, svc, ctx, "100")

	a, err := svc.CreatePayment(ctx, domain.PaymentCreateRequest{SaleID: sale.SaleID, Method: domain.MethodCash, Amount: dec("70")})
	require.NoError(t, err)
	b, err := svc.CreatePayment(ctx, domain.PaymentCreateRequest{SaleID: sale.SaleID, Method: domain.MethodCard, Amount: dec("30")})
	require.NoError(t, err)
	require.Equal(t, domain.SaleCompleted, b.SaleStatus)

	refund, err := svc.RefundPayment(ctx, b.PaymentID, domain.PaymentRefundRequest{Notes: "card chargeback"})
	require.NoError(t, err)
	require.True(t, refund.Success, refund.Message)
	assert.Equal(t, domain.SaleCompleted, refund.SaleStatus)
	assert.Equal(t, domain.PaymentRefunded, refund.Payment.Status)
	assert.Equal(t, "card chargeback", refund.Payment.Notes)

	again, err := svc.RefundPayment(ctx, b.PaymentID, domain.PaymentRefundRequest{})
	require.NoError(t, err)
	assert.Equal(t, domain.CodeAlreadyProcessed, again.Code)

	last, err := svc.RefundPayment(ctx, a.PaymentID, domain.PaymentRefundRequest{})
	require.NoError(t, err)
	assert.Equal(t, domain.SaleCompleted, last.SaleStatus)

	got, err := svc.GetSale(ctx, sale.SaleID)
	require.NoError(t, err)
	assert.Equal(t, domain.SaleCompleted, got.Status)
	assert.True(t, got.TotalPaid.IsZero())

	cancelled, err := svc.CancelSale(ctx, sale.SaleID)
	require.NoError(t, err)
	require.True(t, cancelled.Success, cancelled.Message)
	assert.Equal(t, before, stockQty(t, repo, 1, 1))

	late, err := svc.CreatePayment(ctx, domain.PaymentCreateRequest{SaleID: sale.SaleID, Method: domain.MethodCash, Amount: dec("1")})
	require.NoError(t, err)
	assert.Equal(t, domain.CodeInvalidTransition, late.Code)
}

func TestPaymentRejectedForCancelledSale(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asAdmin()
	sale := newSale(t, svc, ctx, "20")
	_, err := svc.CancelSale(ctx, sale.SaleID)
	require.NoError(t, err)

	res, err := svc.CreatePayment(ctx, domain.PaymentCreateRequest{SaleID: sale.SaleID, Method: domain.MethodCash, Amount: dec("20")})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, domain.CodeInvalidTransition, res.Code)
}

func TestPaymentValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asAdmin()
	sale := newSale(t, svc, ctx, "20")

	res, err := svc.CreatePayment(ctx, domain.PaymentCreateRequest{SaleID: sale.SaleID, Method: "barter", Amount: dec("1")})
	require.NoError(t, err)
	assert.Equal(t, domain.CodeValidation, res.Code)

	res, err = svc.CreatePayment(ctx, domain.PaymentCreateRequest{SaleID: sale.SaleID, Method: domain.MethodCash, Amount: dec("0")})
	require.NoError(t, err)
	assert.Equal(t, domain.CodeValidation, res.Code)

	res, err = svc.CreatePayment(ctx, domain.PaymentCreateRequest{SaleID: 999, Method: domain.MethodCash, Amount: dec("1")})
	require.NoError(t, err)
	assert.Equal(t, domain.CodeNotFound, res.Code)

	refund, err := svc.RefundPayment(ctx, 999, domain.PaymentRefundRequest{})
	require.NoError(t, err)
	assert.Equal(t, domain.CodeNotFound, refund.Code)
}

func TestListPaymentsFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asAdmin()
	sale := newSale(t, svc, ctx, "50")
	for _, m := range []domain.PaymentMethod{domain.MethodCash, domain.MethodMobileMoney, domain.MethodCash} {
		_, err := svc.CreatePayment(ctx, domain.PaymentCreateRequest{SaleID: sale.SaleID, Method: m, Amount: dec("10")})
		require.NoError(t, err)
	}

	list, page, err := svc.ListPayments(ctx, domain.PaymentFilter{SaleID: sale.SaleID, Method: domain.MethodCash})
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, 2, page.Total)

	_, _, err = svc.ListPayments(ctx, domain.PaymentFilter{Method: "iou"})
	require.Error(t, err)
}
