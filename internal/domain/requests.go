package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ShopID      *int64 `json:"shop_id,omitempty"`
	ExpiresAt   string `json:"expires_at"`
}

type ShopCreateRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Location string `json:"location" validate:"max=255"`
	Phone    string `json:"phone" validate:"max=50"`
	Email    string `json:"email" validate:"omitempty,email"`
}

type ProductCreateRequest struct {
	SKU                  string `json:"sku" validate:"required,max=100"`
	Name                 string `json:"name" validate:"required,max=255"`
	Description          string `json:"description"`
	Barcode              string `json:"barcode" validate:"max=100"`
	DefaultMinStockLevel int64  `json:"default_min_stock_level" validate:"gte=0"`
}

type AddStockRequest struct {
	ShopID        int64            `json:"shop_id" validate:"required,gt=0"`
	ProductID     int64            `json:"product_id" validate:"required,gt=0"`
	Quantity      int64            `json:"quantity" validate:"required,gt=0"`
	BuyPrice      *decimal.Decimal `json:"buy_price"`
	SalePrice     *decimal.Decimal `json:"sale_price"`
	MinStockLevel *int64           `json:"min_stock_level" validate:"omitempty,gte=0"`
	Notes         string           `json:"notes" validate:"max=1000"`
}

type ReduceStockRequest struct {
	ShopID    int64  `json:"shop_id" validate:"required,gt=0"`
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Quantity  int64  `json:"quantity" validate:"required,gt=0"`
	Notes     string `json:"notes" validate:"max=1000"`
}

type AdjustStockRequest struct {
	ShopID    int64  `json:"shop_id" validate:"required,gt=0"`
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Quantity  int64  `json:"quantity" validate:"gte=0"`
	Notes     string `json:"notes" validate:"max=1000"`
}

type SaleItemRequest struct {
	ProductID int64           `json:"product_id" validate:"required,gt=0"`
	Quantity  int64           `json:"quantity" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
}

type SaleCreateRequest struct {
	ShopID         int64             `json:"shop_id" validate:"required,gt=0"`
	CustomerName   string            `json:"customer_name" validate:"max=255"`
	CustomerEmail  string            `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone  string            `json:"customer_phone" validate:"max=50"`
	Items          []SaleItemRequest `json:"items" validate:"required,min=1,dive"`
	TaxAmount      decimal.Decimal   `json:"tax_amount"`
	DiscountAmount decimal.Decimal   `json:"discount_amount"`
	Notes          string            `json:"notes" validate:"max=1000"`
}

type TransferCreateRequest struct {
	FromShopID int64  `json:"from_shop_id" validate:"required,gt=0"`
	ToShopID   int64  `json:"to_shop_id" validate:"required,gt=0,nefield=FromShopID"`
	ProductID  int64  `json:"product_id" validate:"required,gt=0"`
	Quantity   int64  `json:"quantity" validate:"required,gt=0"`
	Notes      string `json:"notes" validate:"max=1000"`
}

type PaymentCreateRequest struct {
	SaleID          int64           `json:"sale_id" validate:"required,gt=0"`
	Method          PaymentMethod   `json:"payment_method" validate:"required,oneof=cash card mobile_money bank_transfer credit"`
	Amount          decimal.Decimal `json:"amount"`
	ReferenceNumber string          `json:"reference_number" validate:"max=100"`
	Notes           string          `json:"notes" validate:"max=1000"`
}

type PaymentRefundRequest struct {
	Notes string `json:"notes" validate:"max=1000"`
}

type QuotationItemRequest struct {
	ItemName        string          `json:"item_name" validate:"required,max=255"`
	ItemDescription string          `json:"item_description"`
	ItemSKU         string          `json:"item_sku" validate:"max=100"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Discount        decimal.Decimal `json:"discount"`
}

type QuotationCreateRequest struct {
	SupplierName    string                 `json:"supplier_name" validate:"required,max=255"`
	SupplierEmail   string                 `json:"supplier_email" validate:"omitempty,email"`
	SupplierPhone   string                 `json:"supplier_phone" validate:"max=50"`
	SupplierAddress string                 `json:"supplier_address"`
	ShopID          *int64                 `json:"shop_id" validate:"omitempty,gt=0"`
	Items           []QuotationItemRequest `json:"items" validate:"required,min=1,dive"`
	ApplyTax        bool                   `json:"apply_tax"`
	TaxAmount       decimal.Decimal        `json:"tax_amount"`
	DiscountAmount  decimal.Decimal        `json:"discount_amount"`
	ValidUntil      *time.Time             `json:"valid_until"`
	Notes           string                 `json:"notes"`
}

// QuotationUpdateRequest applies only the fields that are set.
type QuotationUpdateRequest struct {
	SupplierName    *string                `json:"supplier_name" validate:"omitempty,min=1,max=255"`
	SupplierEmail   *string                `json:"supplier_email" validate:"omitempty,email"`
	SupplierPhone   *string                `json:"supplier_phone" validate:"omitempty,max=50"`
	SupplierAddress *string                `json:"supplier_address"`
	Items           []QuotationItemRequest `json:"items" validate:"omitempty,dive"`
	ApplyTax        *bool                  `json:"apply_tax"`
	TaxAmount       *decimal.Decimal       `json:"tax_amount"`
	DiscountAmount  *decimal.Decimal       `json:"discount_amount"`
	Status          *QuotationStatus       `json:"status"`
	ValidUntil      *time.Time             `json:"valid_until"`
	Notes           *string                `json:"notes"`
}

// Result is the outcome of a core operation. Business-rule failures are
// reported here with Success=false; only store failures surface as errors.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

const (
	CodeValidation        = "validation_error"
	CodeInsufficientStock = "insufficient_stock"
	CodeNotFound          = "not_found"
	CodeInvalidTransition = "invalid_state_transition"
	CodeNotCancellable    = "not_cancellable"
	CodeAlreadyProcessed  = "already_processed"
)

type StockResult struct {
	Result
	Stock *StockRow    `json:"stock,omitempty"`
	Entry *LedgerEntry `json:"transaction,omitempty"`
}

type SaleResult struct {
	Result
	SaleID      int64           `json:"sale_id,omitempty"`
	SaleNumber  string          `json:"sale_number,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Sale        *Sale           `json:"sale,omitempty"`
}

type TransferResult struct {
	Result
	TransferID     int64          `json:"transfer_id,omitempty"`
	TransferNumber string         `json:"transfer_number,omitempty"`
	Transfer       *StockTransfer `json:"transfer,omitempty"`
}

type PaymentResult struct {
	Result
	PaymentID  int64      `json:"payment_id,omitempty"`
	SaleStatus SaleStatus `json:"sale_status,omitempty"`
	Payment    *Payment   `json:"payment,omitempty"`
}

type QuotationResult struct {
	Result
	Quotation *Quotation `json:"quotation,omitempty"`
}
