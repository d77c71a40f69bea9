package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/tmoreira/caixa/internal/caixa"
	"github.com/tmoreira/caixa/internal/service/balance"
)

type ctxKey string

const ctxKeyPostLedger ctxKey = "validatedPostLedger"
const ctxKeyPostTransaction ctxKey = "validatedPostTransaction"
const ctxKeyPostCard ctxKey = "validatedPostCard"
const ctxKeyPostContract ctxKey = "validatedPostContract"
const ctxKeyPutOpeningBalance ctxKey = "validatedPutOpeningBalance"
const ctxKeyStatsQuery ctxKey = "validatedStatsQuery"
const ctxKeyFlowScope ctxKey = "validatedFlowScope"

// validatePostLedger parses the POST /ledgers body and stores it in context.
func (s *Server) validatePostLedger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireJSON(w, r) {
				return
			}
			var req postLedgerRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostLedger, req)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validatePostTransaction decodes and converts the POST /transactions body,
// storing the domain record in the request context for the handler to use.
func (s *Server) validatePostTransaction() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireJSON(w, r) {
				return
			}
			var req postTransactionRequest
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
			ctx := context.WithValue(r.Context(), ctxKeyPostTransaction, t)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) validatePostCard() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireJSON(w, r) {
				return
			}
			var req postCardRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostCard, req)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) validatePostContract() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireJSON(w, r) {
				return
			}
			var req postContractRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostContract, req)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) validatePutOpeningBalance() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireJSON(w, r) {
				return
			}
			var req putOpeningBalanceRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			if req.LedgerID == uuid.Nil {
				badRequest(w, "ledger_id is required")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPutOpeningBalance, req)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// parseScope maps the scope query param onto a projection scope. Empty or
// "consolidated" selects the aggregate; anything else must be a ledger id.
func parseScope(raw string) (balance.Scope, bool) {
	if raw == "" || raw == "consolidated" {
		return balance.ScopeConsolidated, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return balance.Scope{}, false
	}
	return balance.ScopeLedger(id), true
}

// validateStatsQuery parses month and scope for GET /stats.
func (s *Server) validateStatsQuery() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			raw := q.Get("month")
			if raw == "" {
				badRequest(w, "month is required")
				return
			}
			month, err := caixa.ParseMonth(raw)
			if err != nil {
				badRequest(w, "invalid month, want YYYY-MM")
				return
			}
			scope, ok := parseScope(q.Get("scope"))
			if !ok {
				badRequest(w, "invalid scope")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyStatsQuery, statsQuery{Month: month, Scope: scope})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validateFlowScope parses the scope for GET /months/{month}/flow; the month
// itself comes from the URL and is parsed in the handler.
func (s *Server) validateFlowScope() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope, ok := parseScope(r.URL.Query().Get("scope"))
			if !ok {
				badRequest(w, "invalid scope")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyFlowScope, scope)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
