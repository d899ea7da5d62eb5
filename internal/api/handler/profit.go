package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fxops/backoffice/internal/service"
)

// ProfitHandler exposes profit calculations, groups, multipliers and rates.
type ProfitHandler struct {
	profit *service.ProfitService
}

func NewProfitHandler(profit *service.ProfitService) *ProfitHandler {
	return &ProfitHandler{profit: profit}
}

func (h *ProfitHandler) ListCalculations(w http.ResponseWriter, r *http.Request) {
	calcs, err := h.profit.ListCalculations(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"calculations": calcs})
}

func (h *ProfitHandler) CreateCalculation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name              string          `json:"name"`
		TargetCurrency    string          `json:"target_currency"`
		InitialInvestment decimal.Decimal `json:"initial_investment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	calc, err := h.profit.CreateCalculation(r.Context(), req.Name, req.TargetCurrency, req.InitialInvestment)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, calc)
}

func (h *ProfitHandler) RenameCalculation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.calculationID(w, r)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	if err := h.profit.RenameCalculation(r.Context(), id, req.Name); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProfitHandler) DeleteCalculation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.calculationID(w, r)
	if !ok {
		return
	}
	if err := h.profit.DeleteCalculation(r.Context(), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProfitHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	id, ok := h.calculationID(w, r)
	if !ok {
		return
	}
	if err := h.profit.SetDefault(r.Context(), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProfitHandler) UnsetDefault(w http.ResponseWriter, r *http.Request) {
	id, ok := h.calculationID(w, r)
	if !ok {
		return
	}
	if err := h.profit.UnsetDefault(r.Context(), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProfitHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id, ok := h.calculationID(w, r)
	if !ok {
		return
	}
	summary, err := h.profit.Summarize(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, summary)
}

func (h *ProfitHandler) DefaultSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.profit.DefaultSummary(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, summary)
}

func (h *ProfitHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := h.calculationID(w, r)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	group, err := h.profit.CreateGroup(r.Context(), id, req.Name)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, group)
}

func (h *ProfitHandler) RenameGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := h.calculationID(w, r)
	if !ok {
		return
	}
	groupID, ok := parseUUIDParam(chi.URLParam(r, "groupID"))
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-group-id", "Invalid group id")
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	if err := h.profit.RenameGroup(r.Context(), id, groupID, req.Name); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProfitHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := h.calculationID(w, r)
	if !ok {
		return
	}
	groupID, ok := parseUUIDParam(chi.URLParam(r, "groupID"))
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-group-id", "Invalid group id")
		return
	}

	if err := h.profit.DeleteGroup(r.Context(), id, groupID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProfitHandler) SetMultiplier(w http.ResponseWriter, r *http.Request) {
	id, ok := h.calculationID(w, r)
	if !ok {
		return
	}
	accountID, ok := parseUUIDParam(chi.URLParam(r, "accountID"))
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-account-id", "Invalid account id")
		return
	}

	var req struct {
		Multiplier decimal.Decimal `json:"multiplier"`
		GroupID    *string         `json:"group_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	var groupID *uuid.UUID
	if req.GroupID != nil && *req.GroupID != "" {
		parsed, ok := parseUUIDParam(*req.GroupID)
		if !ok {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-group-id", "Invalid group_id")
			return
		}
		groupID = &parsed
	}

	if err := h.profit.SetMultiplier(r.Context(), id, accountID, req.Multiplier, groupID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProfitHandler) SetRate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.calculationID(w, r)
	if !ok {
		return
	}

	var req struct {
		FromCurrency string          `json:"from_currency"`
		ToCurrency   string          `json:"to_currency"`
		Rate         decimal.Decimal `json:"rate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	if err := h.profit.SetRate(r.Context(), id, req.FromCurrency, req.ToCurrency, req.Rate); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProfitHandler) calculationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := parseUUIDParam(chi.URLParam(r, "calculationID"))
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-calculation-id", "Invalid calculation id")
		return uuid.Nil, false
	}
	return id, true
}
