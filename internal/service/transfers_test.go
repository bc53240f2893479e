package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailhub/backend/internal/domain"
)

func TestTransferLifecycleConservesStock(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := asAdmin()

	created, err := svc.CreateTransfer(ctx, domain.TransferCreateRequest{FromShopID: 1, ToShopID: 2, ProductID: 1, Quantity: 12})
	require.NoError(t, err)
	require.True(t, created.Success, created.Message)
	assert.Equal(t, domain.TransferPending, created.Transfer.Status)
	assert.Regexp(t, `^TRF-\d+-[0-9A-F]{9}$`, created.TransferNumber)
	assert.Equal(t, int64(40), stockQty(t, repo, 1, 1), "creation must not move stock")

	completed, err := svc.CompleteTransfer(ctx, created.TransferID)
	require.NoError(t, err)
	require.True(t, completed.Success, completed.Message)
	assert.Equal(t, domain.TransferCompleted, completed.Transfer.Status)
	require.NotNil(t, completed.Transfer.ReceivedBy)
	require.NotNil(t, completed.Transfer.CompletedAt)

	assert.Equal(t, int64(28), stockQty(t, repo, 1, 1))
	assert.Equal(t, int64(27), stockQty(t, repo, 2, 1))

	entries := ledgerFor(t, repo, domain.LedgerFilter{ReferenceType: domain.ReferenceTransfer, ReferenceID: created.TransferID})
	require.Len(t, entries, 2)
	var sum int64
	for _, e := range entries {
		sum += e.Quantity
	}
	assert.Zero(t, sum)

	again, err := svc.CompleteTransfer(ctx, created.TransferID)
	require.NoError(t, err)
	assert.Equal(t, domain.CodeAlreadyProcessed, again.Code)

	cancel, err := svc.CancelTransfer(ctx, created.TransferID)
	require.NoError(t, err)
	assert.Equal(t, domain.CodeAlreadyProcessed, cancel.Code)
	requireBalanced(t, svc)
}

func TestCompleteTransferRechecksSourceStock(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := asAdmin()

	created, err := svc.CreateTransfer(ctx, domain.TransferCreateRequest{FromShopID: 2, ToShopID: 1, ProductID: 2, Quantity: 10})
	require.NoError(t, err)
	require.True(t, created.Success)

	_, err = svc.ReduceStock(ctx, domain.ReduceStockRequest{ShopID: 2, ProductID: 2, Quantity: 8})
	require.NoError(t, err)

	res, err := svc.CompleteTransfer(ctx, created.TransferID)
	require.NoError(t, err)
	assert.Equal(t, domain.CodeInsufficientStock, res.Code)
	assert.Equal(t, int64(7), stockQty(t, repo, 2, 2))
	assert.Equal(t, int64(40), stockQty(t, repo, 1, 2))

	transfer, err := svc.GetTransfer(ctx, created.TransferID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransferPending, transfer.Status)

	cancelled, err := svc.CancelTransfer(ctx, created.TransferID)
	require.NoError(t, err)
	require.True(t, cancelled.Success)
	assert.Equal(t, domain.TransferCancelled, cancelled.Transfer.Status)
}

func TestCreateTransferValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asAdmin()

	res, err := svc.CreateTransfer(ctx, domain.TransferCreateRequest{FromShopID: 1, ToShopID: 1, ProductID: 1, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.CodeValidation, res.Code)

	res, err = svc.CreateTransfer(ctx, domain.TransferCreateRequest{FromShopID: 2, ToShopID: 1, ProductID: 1, Quantity: 16})
	require.NoError(t, err)
	assert.Equal(t, domain.CodeInsufficientStock, res.Code)

	res, err = svc.CreateTransfer(ctx, domain.TransferCreateRequest{FromShopID: 1, ToShopID: 9, ProductID: 1, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.CodeNotFound, res.Code)

	res, err = svc.CompleteTransfer(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, domain.CodeNotFound, res.Code)
}

func TestCreateTransferFromShopWithoutRow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := asAdmin()

	product, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{SKU: "NEVER-STOCKED", Name: "Never stocked"})
	require.NoError(t, err)

	res, err := svc.CreateTransfer(ctx, domain.TransferCreateRequest{FromShopID: 1, ToShopID: 2, ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.CodeInsufficientStock, res.Code)
	assert.Contains(t, res.Message, "no stock record")
	assert.NotContains(t, res.Message, "available 0")
}

func TestCompleteTransferIntoShopWithoutRow(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := asAdmin()

	product, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{SKU: "ONLY-ONE", Name: "Only in shop 2", DefaultMinStockLevel: 2})
	require.NoError(t, err)
	_, err = svc.AddStock(ctx, domain.AddStockRequest{ShopID: 2, ProductID: product.ID, Quantity: 5})
	require.NoError(t, err)

	created, err := svc.CreateTransfer(ctx, domain.TransferCreateRequest{FromShopID: 2, ToShopID: 1, ProductID: product.ID, Quantity: 5})
	require.NoError(t, err)
	res, err := svc.CompleteTransfer(ctx, created.TransferID)
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)

	assert.Equal(t, int64(0), stockQty(t, repo, 2, product.ID))
	row, err := repo.GetStock(ctx, 1, product.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), row.Quantity)
	assert.Equal(t, int64(2), row.MinStockLevel)

	list, page, err := svc.ListTransfers(ctx, domain.TransferFilter{ShopID: 1, Status: domain.TransferCompleted})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, page.Total)
	requireBalanced(t, svc)
}
