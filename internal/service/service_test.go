package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/store"
	"retailhub/backend/internal/store/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	repo := memory.NewSeeded(nil)
	return New(repo, nil), repo
}

func asAdmin() context.Context {
	return WithActor(context.Background(), domain.Actor{UserID: 1, Username: "admin", Role: domain.RoleAdmin})
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func stockQty(t *testing.T, repo store.Repository, shopID, productID int64) int64 {
	t.Helper()
	row, err := repo.GetStock(context.Background(), shopID, productID)
	require.NoError(t, err)
	return row.Quantity
}

func ledgerFor(t *testing.T, repo store.Repository, filter domain.LedgerFilter) []domain.LedgerEntry {
	t.Helper()
	filter.Page = domain.Page{Page: 1, Limit: 1000}
	entries, _, err := repo.ListLedger(context.Background(), filter)
	require.NoError(t, err)
	return entries
}

// requireBalanced checks that every stock row equals the sum of its ledger.
func requireBalanced(t *testing.T, svc *Service) {
	t.Helper()
	report, err := svc.Reconcile(context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, report.Drifts)
}

// failingRepo fails every unit of work with a store error.
type failingRepo struct {
	store.Repository
	err error
}

func (r failingRepo) WithTx(context.Context, func(context.Context, store.Tx) error) error {
	return r.err
}

func TestPersistenceFailureSurfacesAsError(t *testing.T) {
	repo := failingRepo{Repository: memory.NewSeeded(nil), err: errors.New("connection reset")}
	svc := New(repo, nil)

	res, err := svc.AddStock(asAdmin(), domain.AddStockRequest{ShopID: 1, ProductID: 1, Quantity: 1})
	require.Error(t, err)
	require.ErrorIs(t, err, store.ErrPersistence)
	require.False(t, res.Success)
}

func TestNormalizePage(t *testing.T) {
	require.Equal(t, domain.Page{Page: 1, Limit: 10}, normalizePage(0, 0))
	require.Equal(t, domain.Page{Page: 3, Limit: 100}, normalizePage(3, 500))
}

func newSeededRepo() *memory.Store {
	return memory.NewSeeded(nil)
}
