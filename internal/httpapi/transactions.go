package httpapi

import (
	"encoding/json"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tmoreira/caixa/internal/caixa"
)

// postTransaction creates a record. An Idempotency-Key header makes the
// create replay-safe: a retried request resolves to the transaction minted by
// the first attempt instead of doubling the balance impact.
func (s *Server) postTransaction(w http.ResponseWriter, r *http.Request) {
	t, ok := r.Context().Value(ctxKeyPostTransaction).(caixa.Transaction)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	key := r.Header.Get("Idempotency-Key")
	if key != "" {
		prev, found, err := s.store.GetTransactionByIdempotencyKey(r.Context(), key)
		if err != nil {
			writeReadErr(w, err)
			return
		}
		if found {
			toJSON(w, http.StatusCreated, toTransactionResponse(prev))
			return
		}
	}
	created, err := s.records.CreateTransaction(r.Context(), t)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	if key != "" {
		if err := s.store.SaveIdempotencyKey(r.Context(), key, created.ID); err != nil {
			s.log.Error("save idempotency key", "error", err, "key", key)
		}
	}
	toJSON(w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.store.ListTransactions(r.Context())
	if err != nil {
		writeReadErr(w, err)
		return
	}
	items := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		items = append(items, toTransactionResponse(t))
	}
	toJSON(w, http.StatusOK, listTransactionsResponse{Items: items})
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	t, err := s.store.GetTransaction(r.Context(), id)
	if err != nil {
		writeReadErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toTransactionResponse(t))
}

// patchTransaction applies record edits. The body is the same shape as a
// create; the path id wins over any id in the body. Status edits are rejected
// here so contract side effects cannot be bypassed.
func (s *Server) patchTransaction(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	current, err := s.store.GetTransaction(r.Context(), id)
	if err != nil {
		writeReadErr(w, err)
		return
	}
	req := postTransactionRequest{
		LedgerID:       current.LedgerID,
		Type:           current.Type,
		Currency:       current.Amount.Curr().Code(),
		Method:         current.Method,
		Status:         current.Status,
		Date:           current.Date,
		ReferenceMonth: current.ReferenceMonth.String(),
		Category:       current.Category,
		Description:    current.Description,
		CardID:         current.CardID,
		ContractID:     current.ContractID,
		Nature:         current.Nature,
		RecurrenceID:   current.RecurrenceID,
	}
	req.AmountMinor, _ = current.Amount.MinorUnits()
	if current.Installment != nil {
		req.Installment = &installmentDTO{Current: current.Installment.Current, Total: current.Installment.Total}
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	t, err := toTransactionDomain(req)
	if err != nil {
		unprocessable(w, err.Error(), "invalid_month")
		return
	}
	t.ID = id
	updated, err := s.records.UpdateTransaction(r.Context(), t)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toTransactionResponse(updated))
}

func (s *Server) postTransactionStatus(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	var req setStatusRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	updated, err := s.records.SetTransactionStatus(r.Context(), id, req.Status)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toTransactionResponse(updated))
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	if err := s.records.DeleteTransaction(r.Context(), id); err != nil {
		writeDomainErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// deleteTransactionsBulk removes a whole recurrence series or installment
// group, selected by query param.
func (s *Server) deleteTransactionsBulk(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if raw := q.Get("recurrence_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(w, "invalid recurrence_id")
			return
		}
		n, err := s.records.DeleteRecurrenceSeries(r.Context(), id)
		if err != nil {
			writeDomainErr(w, err)
			return
		}
		toJSON(w, http.StatusOK, bulkDeleteResponse{Deleted: n})
		return
	}
	if raw := q.Get("contract_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(w, "invalid contract_id")
			return
		}
		n, err := s.records.DeleteInstallmentGroup(r.Context(), id)
		if err != nil {
			writeDomainErr(w, err)
			return
		}
		toJSON(w, http.StatusOK, bulkDeleteResponse{Deleted: n})
		return
	}
	badRequest(w, "recurrence_id or contract_id is required")
}
