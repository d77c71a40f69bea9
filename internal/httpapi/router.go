// Package httpapi wires the HTTP surface of the cash projection service.
// It keeps handlers thin, delegating business rules to the service layer.
package httpapi

import (
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tmoreira/caixa/internal/service/balance"
	"github.com/tmoreira/caixa/internal/service/ledgerreg"
	"github.com/tmoreira/caixa/internal/service/record"
)

// Server wires handlers and middleware using Chi.
// It composes read (repo) and write (writer) dependencies through services.
type Server struct {
	ledgers  ledgerreg.Service
	records  record.Service
	balances balance.Service
	store    Store
	log      *slog.Logger
	rt       *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
// The logger is used by basic request/response logging and panic recovery.
func New(store Store, notifier record.Notifier, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)

	s := &Server{
		ledgers:  ledgerreg.New(store, store),
		records:  record.New(store, store, notifier),
		balances: balance.New(store),
		store:    store,
		rt:       r,
		log:      logger,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
	// Ledgers (v1)
	s.rt.With(s.validatePostLedger()).Post("/v1/ledgers", s.postLedger)
	s.rt.Get("/v1/ledgers", s.listLedgers)
	s.rt.Get("/v1/ledgers/{id}", s.getLedger)
	// Transactions (v1)
	s.rt.With(s.validatePostTransaction()).Post("/v1/transactions", s.postTransaction)
	s.rt.Get("/v1/transactions", s.listTransactions)
	s.rt.Get("/v1/transactions/{id}", s.getTransaction)
	s.rt.Patch("/v1/transactions/{id}", s.patchTransaction)
	s.rt.Post("/v1/transactions/{id}/status", s.postTransactionStatus)
	s.rt.Delete("/v1/transactions/{id}", s.deleteTransaction)
	s.rt.Delete("/v1/transactions", s.deleteTransactionsBulk)
	// Cards (v1)
	s.rt.With(s.validatePostCard()).Post("/v1/cards", s.postCard)
	s.rt.Get("/v1/cards", s.listCards)
	s.rt.Get("/v1/cards/{id}", s.getCard)
	s.rt.Patch("/v1/cards/{id}", s.patchCard)
	s.rt.Delete("/v1/cards/{id}", s.deleteCard)
	// Contracts (v1)
	s.rt.With(s.validatePostContract()).Post("/v1/contracts", s.postContract)
	s.rt.Get("/v1/contracts", s.listContracts)
	s.rt.Get("/v1/contracts/{id}", s.getContract)
	s.rt.Patch("/v1/contracts/{id}", s.patchContract)
	s.rt.Delete("/v1/contracts/{id}", s.deleteContract)
	// Opening balances (v1)
	s.rt.With(s.validatePutOpeningBalance()).Put("/v1/opening-balances", s.putOpeningBalance)
	s.rt.Get("/v1/opening-balances", s.getOpeningBalance)
	// Projections (v1)
	s.rt.With(s.validateStatsQuery()).Get("/v1/stats", s.getStats)
	s.rt.With(s.validateFlowScope()).Get("/v1/months/{month}/flow", s.getMonthFlow)
	s.rt.Get("/v1/triage", s.getTriage)
	// Health and metrics (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Method(http.MethodGet, "/metrics", metricsHandler())
}
