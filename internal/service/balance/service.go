package balance

import (
	"context"

	"github.com/google/uuid"

	"github.com/tmoreira/caixa/internal/caixa"
	"github.com/tmoreira/caixa/internal/errs"
)

// Repo defines the read operations needed to assemble a snapshot.
type Repo interface {
	ListLedgers(ctx context.Context) ([]caixa.Ledger, error)
	ListTransactions(ctx context.Context) ([]caixa.Transaction, error)
	ListCards(ctx context.Context) ([]caixa.Card, error)
	ListContracts(ctx context.Context) ([]caixa.Contract, error)
	ListOpeningBalances(ctx context.Context) ([]caixa.OpeningBalance, error)
}

// Flow is the partial per-month view used by dashboards that do not need the
// full chained projection.
type Flow struct {
	PaidMinor       int64
	PendingInMinor  int64
	PendingOutMinor int64
	Currency        string
}

// Service exposes snapshot assembly and the projection entry points.
type Service interface {
	Snapshot(ctx context.Context) (Snapshot, error)
	Stats(ctx context.Context, target caixa.Month, scope Scope) (Stats, error)
	MonthFlow(ctx context.Context, month caixa.Month, scope Scope) (Flow, error)
	Orphans(ctx context.Context) ([]caixa.Transaction, error)
}

type service struct {
	repo Repo
}

// New constructs the projection service over a read-only repository.
func New(repo Repo) Service { return &service{repo: repo} }

// Snapshot reads every collection once; projections over the result are pure.
func (s *service) Snapshot(ctx context.Context) (Snapshot, error) {
	ledgers, err := s.repo.ListLedgers(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	txs, err := s.repo.ListTransactions(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	cards, err := s.repo.ListCards(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	contracts, err := s.repo.ListContracts(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	anchors, err := s.repo.ListOpeningBalances(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return NewSnapshot(ledgers, txs, cards, contracts, anchors), nil
}

func (s *service) Stats(ctx context.Context, target caixa.Month, scope Scope) (Stats, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return Stats{}, err
	}
	return snap.Stats(target, scope), nil
}

func (s *service) MonthFlow(ctx context.Context, month caixa.Month, scope Scope) (Flow, error) {
	if month.IsZero() {
		return Flow{}, errs.ErrInvalidMonth
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return Flow{}, err
	}
	flow := Flow{Currency: snap.currencyFor(scope)}
	var txs []caixa.Transaction
	if scope.Consolidated {
		for _, id := range snap.scopeLedgers(scope) {
			txs = append(txs, snap.LedgerTransactions(id)...)
		}
	} else {
		if scope.LedgerID == uuid.Nil {
			return Flow{}, errs.ErrInvalid
		}
		txs = snap.LedgerTransactions(scope.LedgerID)
	}
	flow.PaidMinor = PaidImpactMinor(txs, month)
	flow.PendingInMinor, flow.PendingOutMinor = PendingImpactMinor(txs, month)
	return flow, nil
}

func (s *service) Orphans(ctx context.Context) ([]caixa.Transaction, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Orphans(), nil
}
