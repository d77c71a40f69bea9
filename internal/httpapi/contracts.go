package httpapi

import (
	"encoding/json"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (s *Server) postContract(w http.ResponseWriter, r *http.Request) {
	req, ok := r.Context().Value(ctxKeyPostContract).(postContractRequest)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	created, err := s.records.CreateContract(r.Context(), toContractDomain(req))
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toContractResponse(created))
}

func (s *Server) listContracts(w http.ResponseWriter, r *http.Request) {
	contracts, err := s.store.ListContracts(r.Context())
	if err != nil {
		writeReadErr(w, err)
		return
	}
	items := make([]contractResponse, 0, len(contracts))
	for _, c := range contracts {
		items = append(items, toContractResponse(c))
	}
	toJSON(w, http.StatusOK, items)
}

func (s *Server) getContract(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	c, err := s.store.GetContract(r.Context(), id)
	if err != nil {
		writeReadErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toContractResponse(c))
}

func (s *Server) patchContract(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	current, err := s.store.GetContract(r.Context(), id)
	if err != nil {
		writeReadErr(w, err)
		return
	}
	req := postContractRequest{
		LedgerID:              current.LedgerID,
		Name:                  current.Name,
		InstallmentsRemaining: current.InstallmentsRemaining,
		Currency:              current.InstallmentAmount.Curr().Code(),
	}
	req.InstallmentMinor, _ = current.InstallmentAmount.MinorUnits()
	req.TotalDebtMinor, _ = current.TotalDebtRemaining.MinorUnits()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	c := toContractDomain(req)
	c.ID = id
	c.Status = current.Status
	updated, err := s.records.UpdateContract(r.Context(), c)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toContractResponse(updated))
}

func (s *Server) deleteContract(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	if err := s.records.DeleteContract(r.Context(), id); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
