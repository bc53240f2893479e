package httpapi

import (
	"net/http"

	"retailhub/backend/internal/domain"
)

func (a *API) handleListShops(w http.ResponseWriter, r *http.Request) {
	shops, err := a.service.ListShops(r.Context())
	if err != nil {
		a.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shops": shops})
}

func (a *API) handleGetShop(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	shop, err := a.service.GetShop(r.Context(), id)
	if err != nil {
		a.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shop": shop})
}

func (a *API) handleCreateShop(w http.ResponseWriter, r *http.Request) {
	var req domain.ShopCreateRequest
	if !a.bind(w, r, &req) {
		return
	}
	shop, err := a.service.CreateShop(r.Context(), req)
	if err != nil {
		a.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"shop": shop})
}

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.ListProducts(r.Context())
	if err != nil {
		a.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.GetProduct(r.Context(), id)
	if err != nil {
		a.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": product})
}

func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductCreateRequest
	if !a.bind(w, r, &req) {
		return
	}
	product, err := a.service.CreateProduct(r.Context(), req)
	if err != nil {
		a.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"product": product})
}

func (a *API) handleAddStock(w http.ResponseWriter, r *http.Request) {
	var req domain.AddStockRequest
	if !a.bind(w, r, &req) {
		return
	}
	res, err := a.service.AddStock(r.Context(), req)
	a.writeResult(w, res.Result, res, err, http.StatusOK)
}

func (a *API) handleReduceStock(w http.ResponseWriter, r *http.Request) {
	var req domain.ReduceStockRequest
	if !a.bind(w, r, &req) {
		return
	}
	res, err := a.service.ReduceStock(r.Context(), req)
	a.writeResult(w, res.Result, res, err, http.StatusOK)
}

func (a *API) handleAdjustStock(w http.ResponseWriter, r *http.Request) {
	var req domain.AdjustStockRequest
	if !a.bind(w, r, &req) {
		return
	}
	res, err := a.service.AdjustStock(r.Context(), req)
	a.writeResult(w, res.Result, res, err, http.StatusOK)
}

func (a *API) handleGetStock(w http.ResponseWriter, r *http.Request) {
	shopID, err := pathID(r, "shopID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	productID, err := pathID(r, "productID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	row, err := a.service.GetStock(r.Context(), shopID, productID)
	if err != nil {
		a.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stock": row})
}

func (a *API) handleListStock(w http.ResponseWriter, r *http.Request) {
	var filter domain.StockFilter
	var err error
	if filter.ShopID, err = queryInt64(r, "shop_id"); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if filter.ProductID, err = queryInt64(r, "product_id"); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if filter.Page, err = queryPage(r); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	filter.LowOnly = r.URL.Query().Get("low_only") == "true"

	rows, page, err := a.service.ListStock(r.Context(), filter)
	if err != nil {
		a.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stock": rows, "pagination": page})
}

func (a *API) handleListLedger(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.LedgerFilter{
		Type:          domain.TransactionType(q.Get("type")),
		ReferenceType: q.Get("reference_type"),
	}
	var err error
	if filter.ShopID, err = queryInt64(r, "shop_id"); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if filter.ProductID, err = queryInt64(r, "product_id"); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if filter.ReferenceID, err = queryInt64(r, "reference_id"); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if filter.Page, err = queryPage(r); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	entries, page, err := a.service.ListLedger(r.Context(), filter)
	if err != nil {
		a.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": entries, "pagination": page})
}

func (a *API) handleLowStockAlerts(w http.ResponseWriter, r *http.Request) {
	shopID, err := queryInt64(r, "shop_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	report, err := a.service.LowStockAlerts(r.Context(), domain.AlertFilter{
		ShopID: shopID,
		Level:  domain.AlertLevel(r.URL.Query().Get("level")),
	})
	if err != nil {
		a.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleReconcile(w http.ResponseWriter, r *http.Request) {
	shopID, err := queryInt64(r, "shop_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	report, err := a.service.Reconcile(r.Context(), shopID)
	if err != nil {
		a.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
