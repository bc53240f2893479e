package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/store"
)

func TestWithTxRollsBackOnError(t *testing.T) {
	s := NewSeeded(nil)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		lookup, err := tx.LockStock(ctx, 1, 1)
		require.NoError(t, err)
		require.True(t, lookup.Found)
		row := lookup.Row
		row.Quantity = 1
		_, err = tx.UpdateStock(ctx, row)
		require.NoError(t, err)
		_, err = tx.AppendLedger(ctx, domain.LedgerEntry{ShopID: 1, ProductID: 1, Type: domain.TxAdjustment, Quantity: -39})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	row, err := s.GetStock(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(40), row.Quantity)
	entries, total, err := s.ListLedger(ctx, domain.LedgerFilter{ShopID: 1, ProductID: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, entries, 1)
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	s := NewSeeded(nil)
	ctx := context.Background()

	err := s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.InsertStock(ctx, domain.StockRow{ShopID: 1, ProductID: 1, Quantity: 1})
		require.ErrorIs(t, err, store.ErrDuplicate)

		lookup, err := tx.LockStock(ctx, 1, 1)
		require.NoError(t, err)
		row := lookup.Row
		row.Quantity = -1
		_, err = tx.UpdateStock(ctx, row)
		require.ErrorIs(t, err, store.ErrInsufficientStock)

		row.Quantity = 12
		_, err = tx.UpdateStock(ctx, row)
		return err
	})
	require.NoError(t, err)

	row, err := s.GetStock(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(12), row.Quantity)
}

func TestWithTxDiscardsWhenContextCancelled(t *testing.T) {
	s := NewSeeded(nil)
	ctx, cancel := context.WithCancel(context.Background())

	err := s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		lookup, _ := tx.LockStock(ctx, 2, 2)
		row := lookup.Row
		row.Quantity = 0
		_, err := tx.UpdateStock(ctx, row)
		cancel()
		return err
	})
	require.ErrorIs(t, err, context.Canceled)

	row, err := s.GetStock(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(15), row.Quantity)
}

func TestSeededUsersHaveHashedPasswords(t *testing.T) {
	t.Setenv("SEED_ADMIN_PASSWORD", "s3cret-admin")
	t.Setenv("SEED_STAFF_PASSWORD", "s3cret-staff")
	s := NewSeeded(nil)

	admin, err := s.GetUserByUsername(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	assert.Nil(t, admin.ShopID)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte("s3cret-admin")))

	cashier, err := s.GetUserByUsername(context.Background(), "cashier")
	require.NoError(t, err)
	require.NotNil(t, cashier.ShopID)
	assert.Equal(t, int64(1), *cashier.ShopID)

	_, err = s.GetUserByUsername(context.Background(), "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestListLowStockAndBalances(t *testing.T) {
	s := NewSeeded(nil)
	ctx := context.Background()

	alerts, err := s.ListLowStock(ctx, 2)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	for _, a := range alerts {
		assert.LessOrEqual(t, a.Quantity, a.MinStockLevel)
		assert.NotEmpty(t, a.ProductName)
	}

	balances, err := s.LedgerBalances(ctx, 0)
	require.NoError(t, err)
	require.Len(t, balances, 10)
	for _, b := range balances {
		assert.Equal(t, b.Quantity, b.LedgerSum)
	}
}

func TestQuotationSoftDeleteHidesRecord(t *testing.T) {
	s := New()
	ctx := context.Background()

	var id int64
	err := s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		q, err := tx.InsertQuotation(ctx, domain.Quotation{
			QuotationNumber: "QUO-1",
			SupplierName:    "Acme",
			Status:          domain.QuotationDraft,
			Items:           []domain.QuotationItem{{ItemName: "Box"}},
		})
		id = q.ID
		return err
	})
	require.NoError(t, err)

	q, err := s.GetQuotation(ctx, id)
	require.NoError(t, err)
	require.Len(t, q.Items, 1)
	assert.Equal(t, id, q.Items[0].QuotationID)

	err = s.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.InsertQuotation(ctx, domain.Quotation{QuotationNumber: "QUO-1"})
		require.ErrorIs(t, err, store.ErrDuplicate)
		return tx.SoftDeleteQuotation(ctx, id, q.QuotationDate)
	})
	require.NoError(t, err)

	_, err = s.GetQuotation(ctx, id)
	require.ErrorIs(t, err, store.ErrNotFound)
}
