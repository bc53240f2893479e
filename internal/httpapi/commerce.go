package httpapi

import (
	"net/http"

	"retailhub/backend/internal/domain"
)

func (a *API) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleCreateRequest
	if !a.bind(w, r, &req) {
		return
	}
	res, err := a.service.CreateSale(r.Context(), req)
	a.writeResult(w, res.Result, res, err, http.StatusCreated)
}

func (a *API) handleCancelSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := a.service.CancelSale(r.Context(), id)
	a.writeResult(w, res.Result, res, err, http.StatusOK)
}

func (a *API) handleGetSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sale, err := a.service.GetSale(r.Context(), id)
	if err != nil {
		a.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sale": sale})
}

func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	filter := domain.SaleFilter{Status: domain.SaleStatus(r.URL.Query().Get("status"))}
	var err error
	if filter.ShopID, err = queryInt64(r, "shop_id"); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if filter.Page, err = queryPage(r); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sales, page, err := a.service.ListSales(r.Context(), filter)
	if err != nil {
		a.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales": sales, "pagination": page})
}

func (a *API) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req domain.TransferCreateRequest
	if !a.bind(w, r, &req) {
		return
	}
	res, err := a.service.CreateTransfer(r.Context(), req)
	a.writeResult(w, res.Result, res, err, http.StatusCreated)
}

func (a *API) handleCompleteTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := a.service.CompleteTransfer(r.Context(), id)
	a.writeResult(w, res.Result, res, err, http.StatusOK)
}

func (a *API) handleCancelTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := a.service.CancelTransfer(r.Context(), id)
	a.writeResult(w, res.Result, res, err, http.StatusOK)
}

func (a *API) handleGetTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	transfer, err := a.service.GetTransfer(r.Context(), id)
	if err != nil {
		a.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transfer": transfer})
}

func (a *API) handleListTransfers(w http.ResponseWriter, r *http.Request) {
	filter := domain.TransferFilter{Status: domain.TransferStatus(r.URL.Query().Get("status"))}
	var err error
	if filter.ShopID, err = queryInt64(r, "shop_id"); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if filter.Page, err = queryPage(r); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	transfers, page, err := a.service.ListTransfers(r.Context(), filter)
	if err != nil {
		a.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transfers": transfers, "pagination": page})
}

func (a *API) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req domain.PaymentCreateRequest
	if !a.bind(w, r, &req) {
		return
	}
	res, err := a.service.CreatePayment(r.Context(), req)
	a.writeResult(w, res.Result, res, err, http.StatusCreated)
}

func (a *API) handleRefundPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req domain.PaymentRefundRequest
	if r.ContentLength != 0 && !a.bind(w, r, &req) {
		return
	}
	res, err := a.service.RefundPayment(r.Context(), id, req)
	a.writeResult(w, res.Result, res, err, http.StatusOK)
}

func (a *API) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	payment, err := a.service.GetPayment(r.Context(), id)
	if err != nil {
		a.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payment": payment})
}

func (a *API) handleListPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.PaymentFilter{
		Method: domain.PaymentMethod(q.Get("payment_method")),
		Status: domain.PaymentStatus(q.Get("status")),
	}
	var err error
	if filter.SaleID, err = queryInt64(r, "sale_id"); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if filter.Page, err = queryPage(r); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	payments, page, err := a.service.ListPayments(r.Context(), filter)
	if err != nil {
		a.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": payments, "pagination": page})
}

func (a *API) handleCreateQuotation(w http.ResponseWriter, r *http.Request) {
	var req domain.QuotationCreateRequest
	if !a.bind(w, r, &req) {
		return
	}
	res, err := a.service.CreateQuotation(r.Context(), req)
	a.writeResult(w, res.Result, res, err, http.StatusCreated)
}

func (a *API) handleUpdateQuotation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req domain.QuotationUpdateRequest
	if !a.bind(w, r, &req) {
		return
	}
	res, err := a.service.UpdateQuotation(r.Context(), id, req)
	a.writeResult(w, res.Result, res, err, http.StatusOK)
}

func (a *API) handleDeleteQuotation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := a.service.DeleteQuotation(r.Context(), id)
	a.writeResult(w, res.Result, res, err, http.StatusOK)
}

func (a *API) handleSendQuotation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := a.service.SendQuotation(r.Context(), id)
	a.writeResult(w, res.Result, res, err, http.StatusOK)
}

func (a *API) handleGetQuotation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	quotation, err := a.service.GetQuotation(r.Context(), id)
	if err != nil {
		a.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quotation": quotation})
}

func (a *API) handleListQuotations(w http.ResponseWriter, r *http.Request) {
	filter := domain.QuotationFilter{Status: domain.QuotationStatus(r.URL.Query().Get("status"))}
	var err error
	if filter.ShopID, err = queryInt64(r, "shop_id"); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if filter.Page, err = queryPage(r); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	quotations, page, err := a.service.ListQuotations(r.Context(), filter)
	if err != nil {
		a.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quotations": quotations, "pagination": page})
}
