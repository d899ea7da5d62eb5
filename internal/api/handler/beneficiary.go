package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fxops/backoffice/internal/service"
)

// BeneficiaryHandler exposes the customer beneficiary directory.
type BeneficiaryHandler struct {
	beneficiaries *service.BeneficiaryService
}

func NewBeneficiaryHandler(beneficiaries *service.BeneficiaryService) *BeneficiaryHandler {
	return &BeneficiaryHandler{beneficiaries: beneficiaries}
}

func (h *BeneficiaryHandler) List(w http.ResponseWriter, r *http.Request) {
	customerID, ok := parseUUIDParam(chi.URLParam(r, "customerID"))
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-customer-id", "Invalid customer id")
		return
	}

	beneficiaries, err := h.beneficiaries.List(r.Context(), customerID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"beneficiaries": beneficiaries})
}

func (h *BeneficiaryHandler) Add(w http.ResponseWriter, r *http.Request) {
	customerID, ok := parseUUIDParam(chi.URLParam(r, "customerID"))
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-customer-id", "Invalid customer id")
		return
	}

	var req service.BeneficiaryInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	beneficiary, err := h.beneficiaries.Add(r.Context(), customerID, req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusCreated, beneficiary)
}

func (h *BeneficiaryHandler) Update(w http.ResponseWriter, r *http.Request) {
	customerID, ok := parseUUIDParam(chi.URLParam(r, "customerID"))
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-customer-id", "Invalid customer id")
		return
	}
	beneficiaryID, ok := parseUUIDParam(chi.URLParam(r, "beneficiaryID"))
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-beneficiary-id", "Invalid beneficiary id")
		return
	}

	var req service.BeneficiaryInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	beneficiary, err := h.beneficiaries.Update(r.Context(), customerID, beneficiaryID, req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	RespondJSON(w, http.StatusOK, beneficiary)
}

func (h *BeneficiaryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	customerID, ok := parseUUIDParam(chi.URLParam(r, "customerID"))
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-customer-id", "Invalid customer id")
		return
	}
	beneficiaryID, ok := parseUUIDParam(chi.URLParam(r, "beneficiaryID"))
	if !ok {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-beneficiary-id", "Invalid beneficiary id")
		return
	}

	if err := h.beneficiaries.Delete(r.Context(), customerID, beneficiaryID); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
