package httpapi

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"github.com/tmoreira/caixa/internal/caixa"
	"github.com/tmoreira/caixa/internal/service/balance"
)

// getStats returns the three-point cash position (opening, current, closing)
// for the requested month and scope.
func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	q, ok := r.Context().Value(ctxKeyStatsQuery).(statsQuery)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	stats, err := s.balances.Stats(r.Context(), q.Month, q.Scope)
	if err != nil {
		writeReadErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, statsResponse{
		Month:        q.Month,
		Scope:        scopeLabel(q.Scope),
		OpeningMinor: stats.OpeningMinor,
		CurrentMinor: stats.CurrentMinor,
		ClosingMinor: stats.ClosingMinor,
		Opening:      stats.Opening().String(),
		Current:      stats.Current().String(),
		Closing:      stats.Closing().String(),
		Currency:     stats.Currency,
	})
}

// getMonthFlow returns the raw paid/pending movement of one month without the
// chained opening balance.
func (s *Server) getMonthFlow(w http.ResponseWriter, r *http.Request) {
	scope, ok := r.Context().Value(ctxKeyFlowScope).(balance.Scope)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	month, err := caixa.ParseMonth(chi.URLParam(r, "month"))
	if err != nil {
		badRequest(w, "invalid month, want YYYY-MM")
		return
	}
	flow, err := s.balances.MonthFlow(r.Context(), month, scope)
	if err != nil {
		writeReadErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, flowResponse{
		Month:           month,
		Scope:           scopeLabel(scope),
		PaidMinor:       flow.PaidMinor,
		PendingInMinor:  flow.PendingInMinor,
		PendingOutMinor: flow.PendingOutMinor,
		Currency:        flow.Currency,
	})
}

// getTriage lists transactions attributable to no ledger so they can be
// reassigned instead of silently vanishing from every view.
func (s *Server) getTriage(w http.ResponseWriter, r *http.Request) {
	orphans, err := s.balances.Orphans(r.Context())
	if err != nil {
		writeReadErr(w, err)
		return
	}
	items := make([]transactionResponse, 0, len(orphans))
	for _, t := range orphans {
		items = append(items, toTransactionResponse(t))
	}
	toJSON(w, http.StatusOK, listTransactionsResponse{Items: items})
}
