package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailhub/backend/internal/domain"
)

type recordingNotifier struct {
	sent []domain.Quotation
	err  error
}

func (n *recordingNotifier) NotifyQuotationSent(_ context.Context, q domain.Quotation) error {
	n.sent = append(n.sent, q)
	return n.err
}

func quotationRequest() domain.QuotationCreateRequest {
	return domain.QuotationCreateRequest{
		SupplierName:  "Acme Supplies",
		SupplierEmail: "sales@acme.test",
		Items: []domain.QuotationItemRequest{
			{ItemName: "Pallet wrap", Quantity: dec("4"), UnitPrice: dec("12.50")},
			{ItemName: "Labels", Quantity: dec("1.5"), UnitPrice: dec("10"), Discount: dec("1")},
		},
		ApplyTax: true,
	}
}

func TestCreateQuotationAppliesTax(t *testing.T) {
	svc, _ := newTestService(t)
	res, err := svc.CreateQuotation(asAdmin(), quotationRequest())
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)

	q := res.Quotation
	assert.Regexp(t, `^QUO-\d+-[0-9A-F]{9}$`, q.QuotationNumber)
	assert.Equal(t, domain.QuotationDraft, q.Status)
	assert.True(t, q.Subtotal.Equal(dec("64")), q.Subtotal.String())
	assert.True(t, q.TaxAmount.Equal(dec("10.24")), q.TaxAmount.String())
	assert.True(t, q.TotalAmount.Equal(dec("74.24")), q.TotalAmount.String())
	require.Len(t, q.Items, 2)
	assert.True(t, q.Items[1].TotalPrice.Equal(dec("14")))
}

func TestCreateQuotationRejectsNegativeTotal(t *testing.T) {
	svc, _ := newTestService(t)
	req := quotationRequest()
	req.ApplyTax = false
	req.DiscountAmount = dec("100")

	res, err := svc.CreateQuotation(asAdmin(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.CodeValidation, res.Code)

	req = quotationRequest()
	req.Items[0].Discount = dec("60")
	res, err = svc.CreateQuotation(asAdmin(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.CodeValidation, res.Code)
}

func TestUpdateQuotationReplacesItemsAndFollowsTransitions(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := New(newSeededRepo(), nil, WithNotifier(notifier))
	ctx := asAdmin()
	created, err := svc.CreateQuotation(ctx, quotationRequest())
	require.NoError(t, err)
	id := created.Quotation.ID

	name := "Acme Wholesale"
	res, err := svc.UpdateQuotation(ctx, id, domain.QuotationUpdateRequest{
		SupplierName: &name,
		Items:        []domain.QuotationItemRequest{{ItemName: "Tape", Quantity: dec("10"), UnitPrice: dec("2")}},
	})
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, name, res.Quotation.SupplierName)
	require.Len(t, res.Quotation.Items, 1)
	assert.True(t, res.Quotation.Subtotal.Equal(dec("20")))
	// tax keeps its stored value when apply_tax is not repeated
	assert.True(t, res.Quotation.TaxAmount.Equal(dec("10.24")))

	accepted := domain.QuotationAccepted
	res, err = svc.UpdateQuotation(ctx, id, domain.QuotationUpdateRequest{Status: &accepted})
	require.NoError(t, err)
	assert.Equal(t, domain.CodeInvalidTransition, res.Code, "draft cannot jump to accepted")

	sent := domain.QuotationSent
	res, err = svc.UpdateQuotation(ctx, id, domain.QuotationUpdateRequest{Status: &sent})
	require.NoError(t, err)
	assert.Equal(t, domain.CodeValidation, res.Code, "sending goes through SendQuotation")
	assert.Empty(t, notifier.sent)

	res, err = svc.SendQuotation(ctx, id)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	require.Len(t, notifier.sent, 1)
	res, err = svc.UpdateQuotation(ctx, id, domain.QuotationUpdateRequest{Status: &accepted})
	require.NoError(t, err)
	require.True(t, res.Success)

	res, err = svc.UpdateQuotation(ctx, id, domain.QuotationUpdateRequest{SupplierName: &name})
	require.NoError(t, err)
	assert.Equal(t, domain.CodeInvalidTransition, res.Code, "accepted quotations are frozen")
}

func TestSendQuotationNotifies(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := New(newSeededRepo(), nil, WithNotifier(notifier))
	ctx := asAdmin()

	created, err := svc.CreateQuotation(ctx, quotationRequest())
	require.NoError(t, err)

	res, err := svc.SendQuotation(ctx, created.Quotation.ID)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, domain.QuotationSent, res.Quotation.Status)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "sales@acme.test", notifier.sent[0].SupplierEmail)

	again, err := svc.SendQuotation(ctx, created.Quotation.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CodeInvalidTransition, again.Code)
}

func TestSendQuotationSurvivesNotifierFailure(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("queue unavailable")}
	svc := New(newSeededRepo(), nil, WithNotifier(notifier))
	ctx := asAdmin()

	created, err := svc.CreateQuotation(ctx, quotationRequest())
	require.NoError(t, err)
	res, err := svc.SendQuotation(ctx, created.Quotation.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestSendQuotationRequiresEmail(t *testing.T) {
	svc, _ := newTestService(t)
	req := quotationRequest()
	req.SupplierEmail = ""
	created, err := svc.CreateQuotation(asAdmin(), req)
	require.NoError(t, err)

	res, err := svc.SendQuotation(asAdmin(), created.Quotation.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CodeValidation, res.Code)
}

func TestDeleteQuotationIsSoft(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asAdmin()
	created, err := svc.CreateQuotation(ctx, quotationRequest())
	require.NoError(t, err)

	res, err := svc.DeleteQuotation(ctx, created.Quotation.ID)
	require.NoError(t, err)
	require.True(t, res.Success)

	_, err = svc.GetQuotation(ctx, created.Quotation.ID)
	require.Error(t, err)
	list, _, err := svc.ListQuotations(ctx, domain.QuotationFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	res, err = svc.DeleteQuotation(ctx, created.Quotation.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CodeNotFound, res.Code)
}
