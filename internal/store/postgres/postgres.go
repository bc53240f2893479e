package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/store"
)

//go:embed schema.sql
var schema string

const (
	shopColumns          = `id, name, location, phone, email, status, created_at`
	productColumns       = `id, sku, name, description, barcode, default_min_stock_level, status, created_at`
	stockColumns         = `id, shop_id, product_id, quantity, min_stock_level, max_stock_level, buy_price, sale_price, last_updated`
	ledgerColumns        = `id, shop_id, product_id, transaction_type, quantity, reference_id, reference_type, notes, created_by, created_at`
	saleColumns          = `id, sale_number, shop_id, customer_name, customer_email, customer_phone, subtotal, tax_amount, discount_amount, total_amount, status, sale_date, created_by, notes`
	saleItemColumns      = `id, sale_id, product_id, quantity, unit_price, discount, total_price`
	transferColumns      = `id, transfer_number, from_shop_id, to_shop_id, product_id, quantity, status, notes, created_by, received_by, created_at, completed_at`
	paymentColumns       = `id, sale_id, payment_method, amount, reference_number, status, payment_date, processed_by, notes`
	quotationColumns     = `id, quotation_number, supplier_name, supplier_email, supplier_phone, supplier_address, shop_id, subtotal, tax_amount, discount_amount, total_amount, status, valid_until, quotation_date, created_by, notes, deleted_at`
	quotationItemColumns = `id, quotation_id, item_name, item_description, item_sku, quantity, unit_price, discount, total_price`
	userColumns          = `id, username, email, password, full_name, role, shop_id, active, created_at`
)

type Store struct {
	db *sqlx.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sqlx.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates any missing tables and indexes. It is safe to run on every
// start.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// WithTx runs fn inside a READ COMMITTED transaction. Rows read through the
// Lock* methods stay locked until commit or rollback.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	sqlTx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return persistence("begin", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(ctx, &tx{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return persistence("commit", err)
	}
	return nil
}

func (s *Store) CreateShop(ctx context.Context, shop domain.Shop) (domain.Shop, error) {
	if shop.Status == "" {
		shop.Status = domain.ShopActive
	}
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO shops (name, location, phone, email, status, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
		RETURNING id, created_at
	`, shop.Name, shop.Location, shop.Phone, shop.Email, shop.Status, nullTime(shop.CreatedAt)).Scan(&shop.ID, &shop.CreatedAt)
	if err != nil {
		return domain.Shop{}, translate("insert shop", err)
	}
	return shop, nil
}

func (s *Store) GetShop(ctx context.Context, id int64) (domain.Shop, error) {
	return getShop(ctx, s.db, id)
}

func (s *Store) ListShops(ctx context.Context) ([]domain.Shop, error) {
	shops := make([]domain.Shop, 0, 16)
	if err := s.db.SelectContext(ctx, &shops, `SELECT `+shopColumns+` FROM shops ORDER BY id`); err != nil {
		return nil, translate("list shops", err)
	}
	return shops, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	if product.Status == "" {
		product.Status = domain.ProductActive
	}
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO products (sku, name, description, barcode, default_min_stock_level, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))
		RETURNING id, created_at
	`, product.SKU, product.Name, product.Description, product.Barcode, product.DefaultMinStockLevel,
		product.Status, nullTime(product.CreatedAt)).Scan(&product.ID, &product.CreatedAt)
	if err != nil {
		return domain.Product{}, translate("insert product", err)
	}
	return product, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	return getProduct(ctx, s.db, id)
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products := make([]domain.Product, 0, 64)
	if err := s.db.SelectContext(ctx, &products, `SELECT `+productColumns+` FROM products ORDER BY id`); err != nil {
		return nil, translate("list products", err)
	}
	return products, nil
}

func (s *Store) GetStock(ctx context.Context, shopID int64, productID int64) (domain.StockRow, error) {
	var row domain.StockRow
	err := s.db.GetContext(ctx, &row, `
		SELECT `+stockColumns+` FROM stock WHERE shop_id = $1 AND product_id = $2
	`, shopID, productID)
	if err != nil {
		return domain.StockRow{}, translate("get stock", err)
	}
	return row, nil
}

func (s *Store) ListStock(ctx context.Context, filter domain.StockFilter) ([]domain.StockRow, int, error) {
	var w where
	if filter.ShopID != 0 {
		w.add("shop_id = $%d", filter.ShopID)
	}
	if filter.ProductID != 0 {
		w.add("product_id = $%d", filter.ProductID)
	}
	if filter.LowOnly {
		w.raw("quantity <= min_stock_level")
	}
	return list[domain.StockRow](ctx, s.db, "stock", stockColumns, w, "shop_id, product_id", filter.Page)
}

func (s *Store) ListLedger(ctx context.Context, filter domain.LedgerFilter) ([]domain.LedgerEntry, int, error) {
	var w where
	if filter.ShopID != 0 {
		w.add("shop_id = $%d", filter.ShopID)
	}
	if filter.ProductID != 0 {
		w.add("product_id = $%d", filter.ProductID)
	}
	if filter.Type != "" {
		w.add("transaction_type = $%d", filter.Type)
	}
	if filter.ReferenceType != "" {
		w.add("reference_type = $%d", filter.ReferenceType)
	}
	if filter.ReferenceID != 0 {
		w.add("reference_id = $%d", filter.ReferenceID)
	}
	return list[domain.LedgerEntry](ctx, s.db, "stock_transactions", ledgerColumns, w, "id DESC", filter.Page)
}

func (s *Store) ListLowStock(ctx context.Context, shopID int64) ([]domain.StockAlert, error) {
	query := `
		SELECT s.shop_id, sh.name AS shop_name, s.product_id, p.name AS product_name, p.sku,
		       s.quantity, s.min_stock_level, s.max_stock_level
		FROM stock s
		JOIN shops sh ON sh.id = s.shop_id
		JOIN products p ON p.id = s.product_id
		WHERE s.quantity <= s.min_stock_level`
	args := []any{}
	if shopID != 0 {
		query += ` AND s.shop_id = $1`
		args = append(args, shopID)
	}
	query += ` ORDER BY s.quantity, p.name`

	alerts := make([]domain.StockAlert, 0, 16)
	if err := s.db.SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, translate("list low stock", err)
	}
	return alerts, nil
}

func (s *Store) LedgerBalances(ctx context.Context, shopID int64) ([]domain.LedgerDrift, error) {
	query := `
		SELECT s.shop_id, s.product_id, s.quantity, COALESCE(SUM(t.quantity), 0) AS ledger_sum
		FROM stock s
		LEFT JOIN stock_transactions t ON t.shop_id = s.shop_id AND t.product_id = s.product_id`
	args := []any{}
	if shopID != 0 {
		query += ` WHERE s.shop_id = $1`
		args = append(args, shopID)
	}
	query += ` GROUP BY s.shop_id, s.product_id, s.quantity ORDER BY s.shop_id, s.product_id`

	balances := make([]domain.LedgerDrift, 0, 64)
	if err := s.db.SelectContext(ctx, &balances, query, args...); err != nil {
		return nil, translate("ledger balances", err)
	}
	return balances, nil
}

func (s *Store) GetSale(ctx context.Context, id int64) (domain.Sale, error) {
	sale, err := getSale(ctx, s.db, id, false)
	if err != nil {
		return domain.Sale{}, err
	}
	sale.Payments = make([]domain.Payment, 0, 4)
	if err := s.db.SelectContext(ctx, &sale.Payments, `
		SELECT `+paymentColumns+` FROM payments WHERE sale_id = $1 ORDER BY id
	`, id); err != nil {
		return domain.Sale{}, translate("list sale payments", err)
	}
	return sale, nil
}

func (s *Store) ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, int, error) {
	var w where
	if filter.ShopID != 0 {
		w.add("shop_id = $%d", filter.ShopID)
	}
	if filter.Status != "" {
		w.add("status = $%d", filter.Status)
	}
	sales, total, err := list[domain.Sale](ctx, s.db, "sales", saleColumns, w, "id DESC", filter.Page)
	if err != nil || len(sales) == 0 {
		return sales, total, err
	}

	ids := make([]int64, 0, len(sales))
	for _, sale := range sales {
		ids = append(ids, sale.ID)
	}
	query, args, err := sqlx.In(`SELECT `+saleItemColumns+` FROM sale_items WHERE sale_id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, 0, err
	}
	items := make([]domain.SaleItem, 0, len(sales)*2)
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(query), args...); err != nil {
		return nil, 0, translate("list sale items", err)
	}
	bySale := make(map[int64][]domain.SaleItem, len(sales))
	for _, item := range items {
		bySale[item.SaleID] = append(bySale[item.SaleID], item)
	}
	for i := range sales {
		sales[i].Items = bySale[sales[i].ID]
	}
	return sales, total, nil
}

func (s *Store) GetTransfer(ctx context.Context, id int64) (domain.StockTransfer, error) {
	return getTransfer(ctx, s.db, id, false)
}

func (s *Store) ListTransfers(ctx context.Context, filter domain.TransferFilter) ([]domain.StockTransfer, int, error) {
	var w where
	if filter.ShopID != 0 {
		w.add("(from_shop_id = $%[1]d OR to_shop_id = $%[1]d)", filter.ShopID)
	}
	if filter.Status != "" {
		w.add("status = $%d", filter.Status)
	}
	return list[domain.StockTransfer](ctx, s.db, "stock_transfers", transferColumns, w, "id DESC", filter.Page)
}

func (s *Store) GetPayment(ctx context.Context, id int64) (domain.Payment, error) {
	return getPayment(ctx, s.db, id, false)
}

func (s *Store) ListPayments(ctx context.Context, filter domain.PaymentFilter) ([]domain.Payment, int, error) {
	var w where
	if filter.SaleID != 0 {
		w.add("sale_id = $%d", filter.SaleID)
	}
	if filter.Method != "" {
		w.add("payment_method = $%d", filter.Method)
	}
	if filter.Status != "" {
		w.add("status = $%d", filter.Status)
	}
	return list[domain.Payment](ctx, s.db, "payments", paymentColumns, w, "id DESC", filter.Page)
}

func (s *Store) GetQuotation(ctx context.Context, id int64) (domain.Quotation, error) {
	return getQuotation(ctx, s.db, id, false)
}

func (s *Store) ListQuotations(ctx context.Context, filter domain.QuotationFilter) ([]domain.Quotation, int, error) {
	var w where
	w.raw("deleted_at IS NULL")
	if filter.ShopID != 0 {
		w.add("shop_id = $%d", filter.ShopID)
	}
	if filter.Status != "" {
		w.add("status = $%d", filter.Status)
	}
	return list[domain.Quotation](ctx, s.db, "quotations", quotationColumns, w, "id DESC", filter.Page)
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) (domain.UserAccount, error) {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" {
		return domain.UserAccount{}, store.ErrValidation
	}
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO users (username, email, password, full_name, role, shop_id, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()))
		RETURNING id, created_at
	`, user.Username, user.Email, user.Password, user.FullName, user.Role, user.ShopID, user.Active,
		nullTime(user.CreatedAt)).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return domain.UserAccount{}, translate("insert user", err)
	}
	return user, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.db.GetContext(ctx, &user, `
		SELECT `+userColumns+` FROM users WHERE lower(username) = lower($1)
	`, strings.TrimSpace(username))
	if err != nil {
		return domain.UserAccount{}, translate("get user", err)
	}
	return user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	users := make([]domain.UserAccount, 0, 16)
	if err := s.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY username`); err != nil {
		return nil, translate("list users", err)
	}
	return users, nil
}

func getShop(ctx context.Context, q sqlx.QueryerContext, id int64) (domain.Shop, error) {
	var shop domain.Shop
	if err := sqlx.GetContext(ctx, q, &shop, `SELECT `+shopColumns+` FROM shops WHERE id = $1`, id); err != nil {
		return domain.Shop{}, translate("get shop", err)
	}
	return shop, nil
}

func getProduct(ctx context.Context, q sqlx.QueryerContext, id int64) (domain.Product, error) {
	var product domain.Product
	if err := sqlx.GetContext(ctx, q, &product, `SELECT `+productColumns+` FROM products WHERE id = $1`, id); err != nil {
		return domain.Product{}, translate("get product", err)
	}
	return product, nil
}

func getSale(ctx context.Context, q sqlx.QueryerContext, id int64, lock bool) (domain.Sale, error) {
	var sale domain.Sale
	if err := sqlx.GetContext(ctx, q, &sale, `SELECT `+saleColumns+` FROM sales WHERE id = $1`+forUpdate(lock), id); err != nil {
		return domain.Sale{}, translate("get sale", err)
	}
	sale.Items = make([]domain.SaleItem, 0, 4)
	if err := sqlx.SelectContext(ctx, q, &sale.Items, `
		SELECT `+saleItemColumns+` FROM sale_items WHERE sale_id = $1 ORDER BY id
	`, id); err != nil {
		return domain.Sale{}, translate("list sale items", err)
	}
	return sale, nil
}

func getTransfer(ctx context.Context, q sqlx.QueryerContext, id int64, lock bool) (domain.StockTransfer, error) {
	var transfer domain.StockTransfer
	if err := sqlx.GetContext(ctx, q, &transfer, `SELECT `+transferColumns+` FROM stock_transfers WHERE id = $1`+forUpdate(lock), id); err != nil {
		return domain.StockTransfer{}, translate("get transfer", err)
	}
	return transfer, nil
}

func getPayment(ctx context.Context, q sqlx.QueryerContext, id int64, lock bool) (domain.Payment, error) {
	var payment domain.Payment
	if err := sqlx.GetContext(ctx, q, &payment, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`+forUpdate(lock), id); err != nil {
		return domain.Payment{}, translate("get payment", err)
	}
	return payment, nil
}

func getQuotation(ctx context.Context, q sqlx.QueryerContext, id int64, lock bool) (domain.Quotation, error) {
	var quotation domain.Quotation
	if err := sqlx.GetContext(ctx, q, &quotation, `
		SELECT `+quotationColumns+` FROM quotations WHERE id = $1 AND deleted_at IS NULL`+forUpdate(lock), id); err != nil {
		return domain.Quotation{}, translate("get quotation", err)
	}
	quotation.Items = make([]domain.QuotationItem, 0, 4)
	if err := sqlx.SelectContext(ctx, q, &quotation.Items, `
		SELECT `+quotationItemColumns+` FROM quotation_items WHERE quotation_id = $1 ORDER BY id
	`, id); err != nil {
		return domain.Quotation{}, translate("list quotation items", err)
	}
	return quotation, nil
}

func forUpdate(lock bool) string {
	if lock {
		return ` FOR UPDATE`
	}
	return ""
}

// where collects AND-ed conditions with positional placeholders. Each cond
// passed to add carries one %d verb for the argument's position.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *where) raw(cond string) {
	w.conds = append(w.conds, cond)
}

func (w where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func list[T any](ctx context.Context, q sqlx.QueryerContext, table, columns string, w where, order string, page domain.Page) ([]T, int, error) {
	var total int
	if err := sqlx.GetContext(ctx, q, &total, `SELECT count(*) FROM `+table+w.String(), w.args...); err != nil {
		return nil, 0, translate("count "+table, err)
	}

	query := `SELECT ` + columns + ` FROM ` + table + w.String() + ` ORDER BY ` + order
	args := w.args
	if page.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
		args = append(args[:len(args):len(args)], page.Limit, page.Offset())
	}

	items := make([]T, 0, max(page.Limit, 0))
	if err := sqlx.SelectContext(ctx, q, &items, query, args...); err != nil {
		return nil, 0, translate("list "+table, err)
	}
	return items, total, nil
}

// translate maps driver errors onto store sentinels. Anything unrecognised
// is a persistence failure.
func translate(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return store.ErrNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, store.ErrDuplicate)
	default:
		return persistence(op, err)
	}
}

func persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, store.ErrPersistence, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
