package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
	RoleCashier = "cashier"
)

type Actor struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	ShopID   *int64 `json:"shop_id,omitempty"`
}

type Shop struct {
	ID        int64      `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	Location  string     `json:"location,omitempty" db:"location"`
	Phone     string     `json:"phone,omitempty" db:"phone"`
	Email     string     `json:"email,omitempty" db:"email"`
	Status    ShopStatus `json:"status" db:"status"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

type Product struct {
	ID                   int64         `json:"id" db:"id"`
	SKU                  string        `json:"sku" db:"sku"`
	Name                 string        `json:"name" db:"name"`
	Description          string        `json:"description,omitempty" db:"description"`
	Barcode              string        `json:"barcode,omitempty" db:"barcode"`
	DefaultMinStockLevel int64         `json:"default_min_stock_level" db:"default_min_stock_level"`
	Status               ProductStatus `json:"status" db:"status"`
	CreatedAt            time.Time     `json:"created_at" db:"created_at"`
}

// StockRow is the current quantity of one product in one shop. Rows are
// created on first addition and never deleted.
type StockRow struct {
	ID            int64               `json:"id" db:"id"`
	ShopID        int64               `json:"shop_id" db:"shop_id"`
	ProductID     int64               `json:"product_id" db:"product_id"`
	Quantity      int64               `json:"quantity" db:"quantity"`
	MinStockLevel int64               `json:"min_stock_level" db:"min_stock_level"`
	MaxStockLevel int64               `json:"max_stock_level" db:"max_stock_level"`
	BuyPrice      decimal.NullDecimal `json:"buy_price" db:"buy_price"`
	SalePrice     decimal.NullDecimal `json:"sale_price" db:"sale_price"`
	LastUpdated   time.Time           `json:"last_updated" db:"last_updated"`
}

// Reference points a ledger entry at the entity that caused it.
type Reference struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
}

const (
	ReferenceSale     = "sale"
	ReferenceTransfer = "transfer"
	ReferenceManual   = "manual"
)

// LedgerEntry is an append-only record of a signed quantity change.
type LedgerEntry struct {
	ID            int64           `json:"id" db:"id"`
	ShopID        int64           `json:"shop_id" db:"shop_id"`
	ProductID     int64           `json:"product_id" db:"product_id"`
	Type          TransactionType `json:"transaction_type" db:"transaction_type"`
	Quantity      int64           `json:"quantity" db:"quantity"`
	ReferenceID   *int64          `json:"reference_id,omitempty" db:"reference_id"`
	ReferenceType string          `json:"reference_type,omitempty" db:"reference_type"`
	Notes         string          `json:"notes,omitempty" db:"notes"`
	CreatedBy     int64           `json:"created_by" db:"created_by"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

type Sale struct {
	ID             int64           `json:"id" db:"id"`
	SaleNumber     string          `json:"sale_number" db:"sale_number"`
	ShopID         int64           `json:"shop_id" db:"shop_id"`
	CustomerName   string          `json:"customer_name,omitempty" db:"customer_name"`
	CustomerEmail  string          `json:"customer_email,omitempty" db:"customer_email"`
	CustomerPhone  string          `json:"customer_phone,omitempty" db:"customer_phone"`
	Subtotal       decimal.Decimal `json:"subtotal" db:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount" db:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount" db:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount" db:"total_amount"`
	Status         SaleStatus      `json:"status" db:"status"`
	SaleDate       time.Time       `json:"sale_date" db:"sale_date"`
	CreatedBy      int64           `json:"created_by" db:"created_by"`
	Notes          string          `json:"notes,omitempty" db:"notes"`
	Items          []SaleItem      `json:"items,omitempty" db:"-"`
	Payments       []Payment       `json:"payments,omitempty" db:"-"`
	TotalPaid      decimal.Decimal `json:"total_paid" db:"-"`
	PaymentStatus  string          `json:"payment_status,omitempty" db:"-"`
}

type SaleItem struct {
	ID         int64           `json:"id" db:"id"`
	SaleID     int64           `json:"sale_id" db:"sale_id"`
	ProductID  int64           `json:"product_id" db:"product_id"`
	Quantity   int64           `json:"quantity" db:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price" db:"unit_price"`
	Discount   decimal.Decimal `json:"discount" db:"discount"`
	TotalPrice decimal.Decimal `json:"total_price" db:"total_price"`
}

const (
	PaymentStatusPaid    = "paid"
	PaymentStatusPartial = "partial"
	PaymentStatusUnpaid  = "unpaid"
)

type StockTransfer struct {
	ID             int64          `json:"id" db:"id"`
	TransferNumber string         `json:"transfer_number" db:"transfer_number"`
	FromShopID     int64          `json:"from_shop_id" db:"from_shop_id"`
	ToShopID       int64          `json:"to_shop_id" db:"to_shop_id"`
	ProductID      int64          `json:"product_id" db:"product_id"`
	Quantity       int64          `json:"quantity" db:"quantity"`
	Status         TransferStatus `json:"status" db:"status"`
	Notes          string         `json:"notes,omitempty" db:"notes"`
	CreatedBy      int64          `json:"created_by" db:"created_by"`
	ReceivedBy     *int64         `json:"received_by,omitempty" db:"received_by"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
}

type Payment struct {
	ID              int64           `json:"id" db:"id"`
	SaleID          int64           `json:"sale_id" db:"sale_id"`
	Method          PaymentMethod   `json:"payment_method" db:"payment_method"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	ReferenceNumber string          `json:"reference_number,omitempty" db:"reference_number"`
	Status          PaymentStatus   `json:"status" db:"status"`
	PaymentDate     time.Time       `json:"payment_date" db:"payment_date"`
	ProcessedBy     int64           `json:"processed_by" db:"processed_by"`
	Notes           string          `json:"notes,omitempty" db:"notes"`
}

type Quotation struct {
	ID              int64           `json:"id" db:"id"`
	QuotationNumber string          `json:"quotation_number" db:"quotation_number"`
	SupplierName    string          `json:"supplier_name" db:"supplier_name"`
	SupplierEmail   string          `json:"supplier_email,omitempty" db:"supplier_email"`
	SupplierPhone   string          `json:"supplier_phone,omitempty" db:"supplier_phone"`
	SupplierAddress string          `json:"supplier_address,omitempty" db:"supplier_address"`
	ShopID          *int64          `json:"shop_id,omitempty" db:"shop_id"`
	Subtotal        decimal.Decimal `json:"subtotal" db:"subtotal"`
	TaxAmount       decimal.Decimal `json:"tax_amount" db:"tax_amount"`
	DiscountAmount  decimal.Decimal `json:"discount_amount" db:"discount_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount" db:"total_amount"`
	Status          QuotationStatus `json:"status" db:"status"`
	ValidUntil      *time.Time      `json:"valid_until,omitempty" db:"valid_until"`
	QuotationDate   time.Time       `json:"quotation_date" db:"quotation_date"`
	CreatedBy       int64           `json:"created_by" db:"created_by"`
	Notes           string          `json:"notes,omitempty" db:"notes"`
	DeletedAt       *time.Time      `json:"-" db:"deleted_at"`
	Items           []QuotationItem `json:"items,omitempty" db:"-"`
}

type QuotationItem struct {
	ID              int64           `json:"id" db:"id"`
	QuotationID     int64           `json:"quotation_id" db:"quotation_id"`
	ItemName        string          `json:"item_name" db:"item_name"`
	ItemDescription string          `json:"item_description,omitempty" db:"item_description"`
	ItemSKU         string          `json:"item_sku,omitempty" db:"item_sku"`
	Quantity        decimal.Decimal `json:"quantity" db:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price" db:"unit_price"`
	Discount        decimal.Decimal `json:"discount" db:"discount"`
	TotalPrice      decimal.Decimal `json:"total_price" db:"total_price"`
}

type StockAlert struct {
	ShopID        int64      `json:"shop_id" db:"shop_id"`
	ShopName      string     `json:"shop_name" db:"shop_name"`
	ProductID     int64      `json:"product_id" db:"product_id"`
	ProductName   string     `json:"product_name" db:"product_name"`
	SKU           string     `json:"sku" db:"sku"`
	Quantity      int64      `json:"quantity" db:"quantity"`
	MinStockLevel int64      `json:"min_stock_level" db:"min_stock_level"`
	MaxStockLevel int64      `json:"max_stock_level" db:"max_stock_level"`
	Shortage      int64      `json:"shortage_quantity" db:"-"`
	Level         AlertLevel `json:"alert_level" db:"-"`
}

type AlertSummary struct {
	Total      int `json:"total"`
	OutOfStock int `json:"out_of_stock"`
	Critical   int `json:"critical"`
	Low        int `json:"low"`
}

type AlertReport struct {
	Alerts      []StockAlert `json:"alerts"`
	Summary     AlertSummary `json:"summary"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// LedgerDrift is a stock row whose quantity disagrees with its ledger.
type LedgerDrift struct {
	ShopID    int64 `json:"shop_id" db:"shop_id"`
	ProductID int64 `json:"product_id" db:"product_id"`
	Quantity  int64 `json:"quantity" db:"quantity"`
	LedgerSum int64 `json:"ledger_sum" db:"ledger_sum"`
	Drift     int64 `json:"drift" db:"-"`
}

type ReconcileReport struct {
	Checked   int           `json:"checked"`
	Drifts    []LedgerDrift `json:"drifts"`
	CheckedAt time.Time     `json:"checked_at"`
}

type UserAccount struct {
	ID        int64     `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	Password  string    `json:"-" db:"password"`
	FullName  string    `json:"full_name,omitempty" db:"full_name"`
	Role      string    `json:"role" db:"role"`
	ShopID    *int64    `json:"shop_id,omitempty" db:"shop_id"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// Page holds normalized paging input. Offset is derived.
type Page struct {
	Page  int
	Limit int
}

func (p Page) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

type StockFilter struct {
	ShopID    int64
	ProductID int64
	LowOnly   bool
	Page      Page
}

type LedgerFilter struct {
	ShopID        int64
	ProductID     int64
	Type          TransactionType
	ReferenceType string
	ReferenceID   int64
	Page          Page
}

type SaleFilter struct {
	ShopID int64
	Status SaleStatus
	Page   Page
}

type TransferFilter struct {
	ShopID int64
	Status TransferStatus
	Page   Page
}

type PaymentFilter struct {
	SaleID int64
	Method PaymentMethod
	Status PaymentStatus
	Page   Page
}

type QuotationFilter struct {
	ShopID int64
	Status QuotationStatus
	Page   Page
}

type AlertFilter struct {
	ShopID int64
	Level  AlertLevel
}
