package httpapi

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tmoreira/caixa/internal/caixa"
)

func (s *Server) postLedger(w http.ResponseWriter, r *http.Request) {
	req, ok := r.Context().Value(ctxKeyPostLedger).(postLedgerRequest)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	l, err := s.ledgers.Create(r.Context(), caixa.Ledger{
		Name:     req.Name,
		Type:     req.Type,
		Currency: req.Currency,
	})
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toLedgerResponse(l))
}

func (s *Server) listLedgers(w http.ResponseWriter, r *http.Request) {
	ledgers, err := s.ledgers.List(r.Context())
	if err != nil {
		writeReadErr(w, err)
		return
	}
	items := make([]ledgerResponse, 0, len(ledgers))
	for _, l := range ledgers {
		items = append(items, toLedgerResponse(l))
	}
	toJSON(w, http.StatusOK, items)
}

func (s *Server) getLedger(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid id")
		return
	}
	l, err := s.ledgers.Get(r.Context(), id)
	if err != nil {
		writeReadErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toLedgerResponse(l))
}
