package domain

type ShopStatus string

const (
	ShopActive    ShopStatus = "active"
	ShopInactive  ShopStatus = "inactive"
	ShopSuspended ShopStatus = "suspended"
)

type ProductStatus string

const (
	ProductActive       ProductStatus = "active"
	ProductInactive     ProductStatus = "inactive"
	ProductDiscontinued ProductStatus = "discontinued"
)

type TransactionType string

const (
	TxPurchase    TransactionType = "purchase"
	TxSale        TransactionType = "sale"
	TxReturn      TransactionType = "return"
	TxAdjustment  TransactionType = "adjustment"
	TxTransferIn  TransactionType = "transfer_in"
	TxTransferOut TransactionType = "transfer_out"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TxPurchase, TxSale, TxReturn, TxAdjustment, TxTransferIn, TxTransferOut:
		return true
	}
	return false
}

// Outbound reports whether entries of this type carry a negative delta.
func (t TransactionType) Outbound() bool {
	return t == TxSale || t == TxTransferOut
}

type SaleStatus string

const (
	SalePending   SaleStatus = "pending"
	SaleCompleted SaleStatus = "completed"
	SaleCancelled SaleStatus = "cancelled"
	SaleRefunded  SaleStatus = "refunded"
)

var saleTransitions = map[SaleStatus][]SaleStatus{
	SalePending:   {SaleCompleted},
	SaleCompleted: {SaleCancelled},
}

func (s SaleStatus) CanTransitionTo(next SaleStatus) bool {
	return allowed(saleTransitions, s, next)
}

func (s SaleStatus) Terminal() bool {
	return len(saleTransitions[s]) == 0
}

type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferCompleted TransferStatus = "completed"
	TransferCancelled TransferStatus = "cancelled"
)

var transferTransitions = map[TransferStatus][]TransferStatus{
	TransferPending: {TransferCompleted, TransferCancelled},
}

func (s TransferStatus) CanTransitionTo(next TransferStatus) bool {
	return allowed(transferTransitions, s, next)
}

type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentRefunded  PaymentStatus = "refunded"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentCompleted: {PaymentRefunded},
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return allowed(paymentTransitions, s, next)
}

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodCard         PaymentMethod = "card"
	MethodMobileMoney  PaymentMethod = "mobile_money"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCredit       PaymentMethod = "credit"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodMobileMoney, MethodBankTransfer, MethodCredit:
		return true
	}
	return false
}

type QuotationStatus string

const (
	QuotationDraft     QuotationStatus = "draft"
	QuotationSent      QuotationStatus = "sent"
	QuotationAccepted  QuotationStatus = "accepted"
	QuotationRejected  QuotationStatus = "rejected"
	QuotationExpired   QuotationStatus = "expired"
	QuotationCancelled QuotationStatus = "cancelled"
)

var quotationTransitions = map[QuotationStatus][]QuotationStatus{
	QuotationDraft:   {QuotationSent, QuotationCancelled, QuotationExpired},
	QuotationSent:    {QuotationAccepted, QuotationRejected, QuotationExpired, QuotationCancelled},
	QuotationExpired: {QuotationSent},
}

func (s QuotationStatus) CanTransitionTo(next QuotationStatus) bool {
	return allowed(quotationTransitions, s, next)
}

// Editable reports whether supplier fields and items may still change.
func (s QuotationStatus) Editable() bool {
	return s == QuotationDraft || s == QuotationSent || s == QuotationExpired
}

type AlertLevel string

const (
	AlertOutOfStock AlertLevel = "out_of_stock"
	AlertCritical   AlertLevel = "critical"
	AlertLow        AlertLevel = "low"
)

func (l AlertLevel) Valid() bool {
	return l == AlertOutOfStock || l == AlertCritical || l == AlertLow
}

func allowed[S ~string](table map[S][]S, from S, to S) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}
