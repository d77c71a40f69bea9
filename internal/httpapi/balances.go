package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tmoreira/caixa/internal/caixa"
	"github.com/tmoreira/caixa/internal/errs"
)

// putOpeningBalance rebases a ledger's projection anchor. The stored record
// is replaced wholesale; history before the new base month is discarded.
func (s *Server) putOpeningBalance(w http.ResponseWriter, r *http.Request) {
	req, ok := r.Context().Value(ctxKeyPutOpeningBalance).(putOpeningBalanceRequest)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	var baseMonth caixa.Month
	if req.BaseMonth != "" {
		m, err := caixa.ParseMonth(req.BaseMonth)
		if err != nil {
			badRequest(w, "invalid base_month, want YYYY-MM")
			return
		}
		baseMonth = m
	}
	ob, err := s.records.SetOpeningBalance(r.Context(), req.LedgerID, amountFromMinor(req.Currency, req.AmountMinor), baseMonth)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toOpeningBalanceResponse(ob))
}

func (s *Server) getOpeningBalance(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ledger_id")
	if raw == "" {
		balances, err := s.store.ListOpeningBalances(r.Context())
		if err != nil {
			writeReadErr(w, err)
			return
		}
		items := make([]openingBalanceResponse, 0, len(balances))
		for _, ob := range balances {
			items = append(items, toOpeningBalanceResponse(ob))
		}
		toJSON(w, http.StatusOK, items)
		return
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(w, "invalid ledger_id")
		return
	}
	ob, err := s.store.GetOpeningBalance(r.Context(), id)
	if errors.Is(err, errs.ErrNotFound) {
		// A ledger without an anchor reads as a zero anchor based at the
		// current month; the stored record appears on first write.
		ledger, lerr := s.store.GetLedger(r.Context(), id)
		if lerr != nil {
			writeReadErr(w, lerr)
			return
		}
		ob = caixa.OpeningBalance{
			LedgerID:  ledger.ID,
			Amount:    amountFromMinor(ledger.Currency, 0),
			BaseMonth: caixa.MonthOf(time.Now().UTC()),
		}
		toJSON(w, http.StatusOK, toOpeningBalanceResponse(ob))
		return
	}
	if err != nil {
		writeReadErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toOpeningBalanceResponse(ob))
}
