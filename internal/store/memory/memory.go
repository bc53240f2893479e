package memory

import (
	"context"
	"maps"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/store"
)

type stockKey struct {
	shopID    int64
	productID int64
}

// state is everything the store holds. WithTx works on a clone and swaps it
// in on success, which gives rollback for free.
type state struct {
	seq            map[string]int64
	shops          map[int64]domain.Shop
	products       map[int64]domain.Product
	stock          map[stockKey]domain.StockRow
	ledger         []domain.LedgerEntry
	sales          map[int64]domain.Sale
	saleItems      map[int64][]domain.SaleItem
	transfers      map[int64]domain.StockTransfer
	payments       map[int64]domain.Payment
	quotations     map[int64]domain.Quotation
	quotationItems map[int64][]domain.QuotationItem
	users          map[string]domain.UserAccount
}

func newState() *state {
	return &state{
		seq:            make(map[string]int64),
		shops:          make(map[int64]domain.Shop),
		products:       make(map[int64]domain.Product),
		stock:          make(map[stockKey]domain.StockRow),
		ledger:         make([]domain.LedgerEntry, 0, 128),
		sales:          make(map[int64]domain.Sale),
		saleItems:      make(map[int64][]domain.SaleItem),
		transfers:      make(map[int64]domain.StockTransfer),
		payments:       make(map[int64]domain.Payment),
		quotations:     make(map[int64]domain.Quotation),
		quotationItems: make(map[int64][]domain.QuotationItem),
		users:          make(map[string]domain.UserAccount),
	}
}

func (st *state) clone() *state {
	out := &state{
		seq:            maps.Clone(st.seq),
		shops:          maps.Clone(st.shops),
		products:       maps.Clone(st.products),
		stock:          maps.Clone(st.stock),
		ledger:         slices.Clone(st.ledger),
		sales:          maps.Clone(st.sales),
		saleItems:      make(map[int64][]domain.SaleItem, len(st.saleItems)),
		transfers:      maps.Clone(st.transfers),
		payments:       maps.Clone(st.payments),
		quotations:     maps.Clone(st.quotations),
		quotationItems: make(map[int64][]domain.QuotationItem, len(st.quotationItems)),
		users:          maps.Clone(st.users),
	}
	for id, items := range st.saleItems {
		out.saleItems[id] = slices.Clone(items)
	}
	for id, items := range st.quotationItems {
		out.quotationItems[id] = slices.Clone(items)
	}
	return out
}

func (st *state) next(table string) int64 {
	st.seq[table]++
	return st.seq[table]
}

type Store struct {
	mu sync.RWMutex
	st *state
}

func New() *Store {
	return &Store{st: newState()}
}

// NewSeeded returns a store with two shops, a small catalog with opening
// stock recorded as purchases, and one user per role. Passwords come from
// SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD, with dev defaults otherwise.
func NewSeeded(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := New()
	st := s.st
	now := time.Now().UTC()

	for _, shop := range []domain.Shop{
		{Name: "Main Street", Location: "Downtown", Status: domain.ShopActive},
		{Name: "Harbor Mall", Location: "Waterfront", Status: domain.ShopActive},
	} {
		shop.ID = st.next("shops")
		shop.CreatedAt = now
		st.shops[shop.ID] = shop
	}

	for _, p := range []domain.Product{
		{SKU: "SKU-RICE-5KG", Name: "Rice 5kg", DefaultMinStockLevel: 10},
		{SKU: "SKU-OIL-1L", Name: "Cooking Oil 1L", DefaultMinStockLevel: 12},
		{SKU: "SKU-SUGAR-1KG", Name: "Sugar 1kg", DefaultMinStockLevel: 15},
		{SKU: "SKU-SOAP-BAR", Name: "Bath Soap", DefaultMinStockLevel: 20},
		{SKU: "SKU-TEA-50", Name: "Tea Bags 50s", DefaultMinStockLevel: 8},
	} {
		p.ID = st.next("products")
		p.Status = domain.ProductActive
		p.CreatedAt = now
		st.products[p.ID] = p
	}

	for shopID := range st.shops {
		for productID, product := range st.products {
			qty := int64(40)
			if shopID == 2 {
				qty = 15
			}
			st.stock[stockKey{shopID, productID}] = domain.StockRow{
				ID:            st.next("stock"),
				ShopID:        shopID,
				ProductID:     productID,
				Quantity:      qty,
				MinStockLevel: product.DefaultMinStockLevel,
				BuyPrice:      decimal.NewNullDecimal(decimal.NewFromInt(3)),
				SalePrice:     decimal.NewNullDecimal(decimal.NewFromInt(5)),
				LastUpdated:   now,
			}
			st.ledger = append(st.ledger, domain.LedgerEntry{
				ID:            st.next("ledger"),
				ShopID:        shopID,
				ProductID:     productID,
				Type:          domain.TxPurchase,
				Quantity:      qty,
				ReferenceType: domain.ReferenceManual,
				Notes:         "opening stock",
				CreatedAt:     now,
			})
		}
	}

	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		logger.Warn("memory store using default dev credentials; set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override")
	}
	mainShop := int64(1)
	for _, u := range []struct {
		username string
		password string
		role     string
		shopID   *int64
	}{
		{"admin", adminPwd, domain.RoleAdmin, nil},
		{"manager", staffPwd, domain.RoleManager, &mainShop},
		{"staff", staffPwd, domain.RoleStaff, &mainShop},
		{"cashier", staffPwd, domain.RoleCashier, &mainShop},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			logger.Fatal("hash seed password", zap.String("username", u.username), zap.Error(err))
		}
		st.users[u.username] = domain.UserAccount{
			ID:        st.next("users"),
			Username:  u.username,
			Email:     u.username + "@retailhub.local",
			Password:  string(hash),
			Role:      u.role,
			ShopID:    u.shopID,
			Active:    true,
			CreatedAt: now,
		}
	}
	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(ctx, &tx{st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) CreateShop(_ context.Context, shop domain.Shop) (domain.Shop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shop.ID = s.st.next("shops")
	if shop.Status == "" {
		shop.Status = domain.ShopActive
	}
	if shop.CreatedAt.IsZero() {
		shop.CreatedAt = time.Now().UTC()
	}
	s.st.shops[shop.ID] = shop
	return shop, nil
}

func (s *Store) GetShop(_ context.Context, id int64) (domain.Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.getShop(id)
}

func (s *Store) ListShops(_ context.Context) ([]domain.Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shops := slices.Collect(maps.Values(s.st.shops))
	sort.Slice(shops, func(i, j int) bool { return shops[i].ID < shops[j].ID })
	return shops, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.st.products {
		if strings.EqualFold(existing.SKU, product.SKU) {
			return domain.Product{}, store.ErrDuplicate
		}
	}
	product.ID = s.st.next("products")
	if product.Status == "" {
		product.Status = domain.ProductActive
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	s.st.products[product.ID] = product
	return product, nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.getProduct(id)
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := slices.Collect(maps.Values(s.st.products))
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (s *Store) GetStock(_ context.Context, shopID int64, productID int64) (domain.StockRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.st.stock[stockKey{shopID, productID}]
	if !ok {
		return domain.StockRow{}, store.ErrNotFound
	}
	return row, nil
}

func (s *Store) ListStock(_ context.Context, filter domain.StockFilter) ([]domain.StockRow, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.StockRow, 0, len(s.st.stock))
	for _, row := range s.st.stock {
		if filter.ShopID != 0 && row.ShopID != filter.ShopID {
			continue
		}
		if filter.ProductID != 0 && row.ProductID != filter.ProductID {
			continue
		}
		if filter.LowOnly && row.Quantity > row.MinStockLevel {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ShopID != rows[j].ShopID {
			return rows[i].ShopID < rows[j].ShopID
		}
		return rows[i].ProductID < rows[j].ProductID
	})
	page, total := paginate(rows, filter.Page)
	return page, total, nil
}

func (s *Store) ListLedger(_ context.Context, filter domain.LedgerFilter) ([]domain.LedgerEntry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.LedgerEntry, 0, 64)
	for i := len(s.st.ledger) - 1; i >= 0; i-- {
		entry := s.st.ledger[i]
		if filter.ShopID != 0 && entry.ShopID != filter.ShopID {
			continue
		}
		if filter.ProductID != 0 && entry.ProductID != filter.ProductID {
			continue
		}
		if filter.Type != "" && entry.Type != filter.Type {
			continue
		}
		if filter.ReferenceType != "" && entry.ReferenceType != filter.ReferenceType {
			continue
		}
		if filter.ReferenceID != 0 && (entry.ReferenceID == nil || *entry.ReferenceID != filter.ReferenceID) {
			continue
		}
		entries = append(entries, entry)
	}
	page, total := paginate(entries, filter.Page)
	return page, total, nil
}

func (s *Store) ListLowStock(_ context.Context, shopID int64) ([]domain.StockAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	alerts := make([]domain.StockAlert, 0, 16)
	for _, row := range s.st.stock {
		if shopID != 0 && row.ShopID != shopID {
			continue
		}
		if row.Quantity > row.MinStockLevel || (row.MinStockLevel == 0 && row.Quantity > 0) {
			continue
		}
		product := s.st.products[row.ProductID]
		alerts = append(alerts, domain.StockAlert{
			ShopID:        row.ShopID,
			ShopName:      s.st.shops[row.ShopID].Name,
			ProductID:     row.ProductID,
			ProductName:   product.Name,
			SKU:           product.SKU,
			Quantity:      row.Quantity,
			MinStockLevel: row.MinStockLevel,
			MaxStockLevel: row.MaxStockLevel,
		})
	}
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].Quantity != alerts[j].Quantity {
			return alerts[i].Quantity < alerts[j].Quantity
		}
		return alerts[i].ProductName < alerts[j].ProductName
	})
	return alerts, nil
}

func (s *Store) LedgerBalances(_ context.Context, shopID int64) ([]domain.LedgerDrift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sums := make(map[stockKey]int64, len(s.st.stock))
	for _, entry := range s.st.ledger {
		sums[stockKey{entry.ShopID, entry.ProductID}] += entry.Quantity
	}
	balances := make([]domain.LedgerDrift, 0, len(s.st.stock))
	for key, row := range s.st.stock {
		if shopID != 0 && key.shopID != shopID {
			continue
		}
		balances = append(balances, domain.LedgerDrift{
			ShopID:    key.shopID,
			ProductID: key.productID,
			Quantity:  row.Quantity,
			LedgerSum: sums[key],
		})
	}
	sort.Slice(balances, func(i, j int) bool {
		if balances[i].ShopID != balances[j].ShopID {
			return balances[i].ShopID < balances[j].ShopID
		}
		return balances[i].ProductID < balances[j].ProductID
	})
	return balances, nil
}

func (s *Store) GetSale(_ context.Context, id int64) (domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, err := s.st.getSale(id)
	if err != nil {
		return domain.Sale{}, err
	}
	sale.Payments = make([]domain.Payment, 0, 4)
	for _, payment := range s.st.payments {
		if payment.SaleID == id {
			sale.Payments = append(sale.Payments, payment)
		}
	}
	sort.Slice(sale.Payments, func(i, j int) bool { return sale.Payments[i].ID < sale.Payments[j].ID })
	return sale, nil
}

func (s *Store) ListSales(_ context.Context, filter domain.SaleFilter) ([]domain.Sale, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.st.sales))
	for _, sale := range s.st.sales {
		if filter.ShopID != 0 && sale.ShopID != filter.ShopID {
			continue
		}
		if filter.Status != "" && sale.Status != filter.Status {
			continue
		}
		sale.Items = slices.Clone(s.st.saleItems[sale.ID])
		sales = append(sales, sale)
	}
	sort.Slice(sales, func(i, j int) bool { return sales[i].ID > sales[j].ID })
	page, total := paginate(sales, filter.Page)
	return page, total, nil
}

func (s *Store) GetTransfer(_ context.Context, id int64) (domain.StockTransfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.getTransfer(id)
}

func (s *Store) ListTransfers(_ context.Context, filter domain.TransferFilter) ([]domain.StockTransfer, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	transfers := make([]domain.StockTransfer, 0, len(s.st.transfers))
	for _, t := range s.st.transfers {
		if filter.ShopID != 0 && t.FromShopID != filter.ShopID && t.ToShopID != filter.ShopID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		transfers = append(transfers, t)
	}
	sort.Slice(transfers, func(i, j int) bool { return transfers[i].ID > transfers[j].ID })
	page, total := paginate(transfers, filter.Page)
	return page, total, nil
}

func (s *Store) GetPayment(_ context.Context, id int64) (domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.getPayment(id)
}

func (s *Store) ListPayments(_ context.Context, filter domain.PaymentFilter) ([]domain.Payment, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payments := make([]domain.Payment, 0, len(s.st.payments))
	for _, p := range s.st.payments {
		if filter.SaleID != 0 && p.SaleID != filter.SaleID {
			continue
		}
		if filter.Method != "" && p.Method != filter.Method {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		payments = append(payments, p)
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].ID > payments[j].ID })
	page, total := paginate(payments, filter.Page)
	return page, total, nil
}

func (s *Store) GetQuotation(_ context.Context, id int64) (domain.Quotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.getQuotation(id)
}

func (s *Store) ListQuotations(_ context.Context, filter domain.QuotationFilter) ([]domain.Quotation, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quotations := make([]domain.Quotation, 0, len(s.st.quotations))
	for _, q := range s.st.quotations {
		if q.DeletedAt != nil {
			continue
		}
		if filter.ShopID != 0 && (q.ShopID == nil || *q.ShopID != filter.ShopID) {
			continue
		}
		if filter.Status != "" && q.Status != filter.Status {
			continue
		}
		quotations = append(quotations, q)
	}
	sort.Slice(quotations, func(i, j int) bool { return quotations[i].ID > quotations[j].ID })
	page, total := paginate(quotations, filter.Page)
	return page, total, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) (domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" {
		return domain.UserAccount{}, store.ErrValidation
	}
	if _, exists := s.st.users[username]; exists {
		return domain.UserAccount{}, store.ErrDuplicate
	}
	user.Username = username
	user.ID = s.st.next("users")
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.st.users[username] = user
	return user, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.st.users[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return domain.UserAccount{}, store.ErrNotFound
	}
	return user, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := slices.Collect(maps.Values(s.st.users))
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (st *state) getShop(id int64) (domain.Shop, error) {
	shop, ok := st.shops[id]
	if !ok {
		return domain.Shop{}, store.ErrNotFound
	}
	return shop, nil
}

func (st *state) getProduct(id int64) (domain.Product, error) {
	product, ok := st.products[id]
	if !ok {
		return domain.Product{}, store.ErrNotFound
	}
	return product, nil
}

func (st *state) getSale(id int64) (domain.Sale, error) {
	sale, ok := st.sales[id]
	if !ok {
		return domain.Sale{}, store.ErrNotFound
	}
	sale.Items = slices.Clone(st.saleItems[id])
	return sale, nil
}

func (st *state) getTransfer(id int64) (domain.StockTransfer, error) {
	transfer, ok := st.transfers[id]
	if !ok {
		return domain.StockTransfer{}, store.ErrNotFound
	}
	return transfer, nil
}

func (st *state) getPayment(id int64) (domain.Payment, error) {
	payment, ok := st.payments[id]
	if !ok {
		return domain.Payment{}, store.ErrNotFound
	}
	return payment, nil
}

func (st *state) getQuotation(id int64) (domain.Quotation, error) {
	quotation, ok := st.quotations[id]
	if !ok || quotation.DeletedAt != nil {
		return domain.Quotation{}, store.ErrNotFound
	}
	quotation.Items = slices.Clone(st.quotationItems[id])
	return quotation, nil
}

func paginate[T any](items []T, page domain.Page) ([]T, int) {
	total := len(items)
	if page.Limit <= 0 {
		return items, total
	}
	start := page.Offset()
	if start >= total {
		return []T{}, total
	}
	end := start + page.Limit
	if end > total {
		end = total
	}
	return items[start:end], total
}
