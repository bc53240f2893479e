package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"retailhub/backend/internal/domain"
)

var (
	ErrValidation             = errors.New("validation error")
	ErrNotFound               = errors.New("not found")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrDuplicate              = errors.New("duplicate record")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrNotCancellable         = fmt.Errorf("not cancellable: %w", ErrInvalidStateTransition)
	ErrAlreadyProcessed       = fmt.Errorf("already processed: %w", ErrInvalidStateTransition)
	ErrPersistence            = errors.New("persistence failure")
)

// StockLookup is a stock row read under lock. Found is false when the
// (shop, product) pair has never held stock.
type StockLookup struct {
	Row   domain.StockRow
	Found bool
}

// Tx is the unit of work handed to Repository.WithTx callbacks. Every Lock*
// method holds the row until the unit of work ends.
type Tx interface {
	GetShop(ctx context.Context, id int64) (domain.Shop, error)
	GetProduct(ctx context.Context, id int64) (domain.Product, error)

	LockStock(ctx context.Context, shopID int64, productID int64) (StockLookup, error)
	InsertStock(ctx context.Context, row domain.StockRow) (domain.StockRow, error)
	UpdateStock(ctx context.Context, row domain.StockRow) (domain.StockRow, error)
	AppendLedger(ctx context.Context, entry domain.LedgerEntry) (domain.LedgerEntry, error)

	InsertSale(ctx context.Context, sale domain.Sale) (domain.Sale, error)
	InsertSaleItem(ctx context.Context, item domain.SaleItem) (domain.SaleItem, error)
	LockSale(ctx context.Context, id int64) (domain.Sale, error)
	SetSaleStatus(ctx context.Context, id int64, status domain.SaleStatus) error

	InsertTransfer(ctx context.Context, transfer domain.StockTransfer) (domain.StockTransfer, error)
	LockTransfer(ctx context.Context, id int64) (domain.StockTransfer, error)
	UpdateTransfer(ctx context.Context, transfer domain.StockTransfer) error

	InsertPayment(ctx context.Context, payment domain.Payment) (domain.Payment, error)
	LockPayment(ctx context.Context, id int64) (domain.Payment, error)
	SetPaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus, notes string) error
	SumCompletedPayments(ctx context.Context, saleID int64) (decimal.Decimal, error)

	InsertQuotation(ctx context.Context, quotation domain.Quotation) (domain.Quotation, error)
	LockQuotation(ctx context.Context, id int64) (domain.Quotation, error)
	UpdateQuotation(ctx context.Context, quotation domain.Quotation) error
	ReplaceQuotationItems(ctx context.Context, quotationID int64, items []domain.QuotationItem) ([]domain.QuotationItem, error)
	SoftDeleteQuotation(ctx context.Context, id int64, at time.Time) error
}

type Repository interface {
	// WithTx runs fn in one unit of work. A non-nil error from fn rolls back
	// every write made through tx.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	CreateShop(ctx context.Context, shop domain.Shop) (domain.Shop, error)
	GetShop(ctx context.Context, id int64) (domain.Shop, error)
	ListShops(ctx context.Context) ([]domain.Shop, error)
	CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)

	GetStock(ctx context.Context, shopID int64, productID int64) (domain.StockRow, error)
	ListStock(ctx context.Context, filter domain.StockFilter) ([]domain.StockRow, int, error)
	ListLedger(ctx context.Context, filter domain.LedgerFilter) ([]domain.LedgerEntry, int, error)
	ListLowStock(ctx context.Context, shopID int64) ([]domain.StockAlert, error)
	LedgerBalances(ctx context.Context, shopID int64) ([]domain.LedgerDrift, error)

	GetSale(ctx context.Context, id int64) (domain.Sale, error)
	ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, int, error)
	GetTransfer(ctx context.Context, id int64) (domain.StockTransfer, error)
	ListTransfers(ctx context.Context, filter domain.TransferFilter) ([]domain.StockTransfer, int, error)
	GetPayment(ctx context.Context, id int64) (domain.Payment, error)
	ListPayments(ctx context.Context, filter domain.PaymentFilter) ([]domain.Payment, int, error)
	GetQuotation(ctx context.Context, id int64) (domain.Quotation, error)
	ListQuotations(ctx context.Context, filter domain.QuotationFilter) ([]domain.Quotation, int, error)

	CreateUser(ctx context.Context, user domain.UserAccount) (domain.UserAccount, error)
	GetUserByUsername(ctx context.Context, username string) (domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
}
