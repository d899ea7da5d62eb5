package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fxops/backoffice/internal/models"
	"github.com/fxops/backoffice/internal/service"
)

// OrderHandler exposes the settlement workflow over HTTP.
type OrderHandler struct {
	orders *service.OrderService
}

func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	order, err := h.orders.Create(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, order)
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := service.OrderFilter{Status: r.URL.Query().Get("status")}
	if raw := r.URL.Query().Get("customer_id"); raw != "" {
		id, ok := parseUUIDParam(raw)
		if !ok {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-customer-id", "Invalid customer_id")
			return
		}
		filter.CustomerID = &id
	}

	orders, err := h.orders.List(r.Context(), filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(chi.URLParam(r, "id"))
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-order-id", "Invalid order id")
		return
	}

	view, err := h.orders.Details(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, view)
}

func (h *OrderHandler) Process(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(chi.URLParam(r, "id"))
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-order-id", "Invalid order id")
		return
	}

	var req struct {
		HandlerID     string               `json:"handler_id"`
		PaymentMethod models.PaymentMethod `json:"payment_method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	// The processing operator defaults to the authenticated user.
	handlerID, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/invalid-actor", err.Error())
		return
	}
	if req.HandlerID != "" {
		parsed, ok := parseUUIDParam(req.HandlerID)
		if !ok {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-handler-id", "Invalid handler_id")
			return
		}
		handlerID = parsed
	}

	order, err := h.orders.Process(r.Context(), id, handlerID, req.PaymentMethod)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, order)
}

type uploadRequest struct {
	Items           []service.UploadItem `json:"items"`
	ContinueOnError bool                 `json:"continue_on_error"`
}

func (h *OrderHandler) AddReceipts(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, h.orders.AddReceipts)
}

func (h *OrderHandler) AddPayments(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, h.orders.AddPayments)
}

func (h *OrderHandler) upload(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, orderID uuid.UUID, items []service.UploadItem, continueOnError bool) (*service.UploadOutcome, error)) {
	id, ok := parseUUIDParam(chi.URLParam(r, "id"))
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-order-id", "Invalid order id")
		return
	}

	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if len(req.Items) == 0 {
		RespondError(w, r, http.StatusBadRequest, "request/empty-batch", "At least one item is required")
		return
	}

	outcome, err := fn(r.Context(), id, req.Items, req.ContinueOnError)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, outcome)
}

func (h *OrderHandler) AddBeneficiaries(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(chi.URLParam(r, "id"))
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-order-id", "Invalid order id")
		return
	}

	var req struct {
		Beneficiaries  []service.BeneficiaryInput `json:"beneficiaries"`
		SaveToCustomer bool                       `json:"save_to_customer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	view, err := h.orders.AddBeneficiaries(r.Context(), id, req.Beneficiaries, req.SaveToCustomer)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, view)
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(chi.URLParam(r, "id"))
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-order-id", "Invalid order id")
		return
	}

	order, err := h.orders.Cancel(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(chi.URLParam(r, "id"))
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-order-id", "Invalid order id")
		return
	}

	if err := h.orders.Delete(r.Context(), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		RespondError(w, r, http.StatusBadRequest, "request/empty-batch", "At least one order id is required")
		return
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, ok := parseUUIDParam(raw)
		if !ok {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-order-id", "Invalid order id: "+raw)
			return
		}
		ids = append(ids, id)
	}

	if err := h.orders.DeleteMany(r.Context(), ids); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) RecordProfit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(chi.URLParam(r, "id"))
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-order-id", "Invalid order id")
		return
	}

	var req struct {
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	order, err := h.orders.RecordProfit(r.Context(), id, req.Amount, req.Currency)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) DeriveAmounts(w http.ResponseWriter, r *http.Request) {
	var req service.DeriveAmountsInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	RespondJSON(w, http.StatusOK, h.orders.DeriveAmounts(r.Context(), req))
}
