// Package ledgerreg implements the ledger registry: creation, lookup and the
// idempotent seeding of the two default scopes (one PF, one PJ) when the
// store holds no ledgers at all.
package ledgerreg

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/tmoreira/caixa/internal/caixa"
	"github.com/tmoreira/caixa/internal/errs"
)

// Repo defines read operations needed by the service.
type Repo interface {
	ListLedgers(ctx context.Context) ([]caixa.Ledger, error)
	GetLedger(ctx context.Context, id uuid.UUID) (caixa.Ledger, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	CreateLedger(ctx context.Context, l caixa.Ledger) (caixa.Ledger, error)
}

// Service exposes ledger registry operations.
type Service interface {
	Create(ctx context.Context, l caixa.Ledger) (caixa.Ledger, error)
	List(ctx context.Context) ([]caixa.Ledger, error)
	Get(ctx context.Context, id uuid.UUID) (caixa.Ledger, error)
	EnsureDefaults(ctx context.Context) ([]caixa.Ledger, error)
}

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

func (s *service) Create(ctx context.Context, l caixa.Ledger) (caixa.Ledger, error) {
	if l.Name == "" {
		return caixa.Ledger{}, errors.New("name is required")
	}
	switch l.Type {
	case caixa.LedgerPersonal, caixa.LedgerBusiness:
	default:
		return caixa.Ledger{}, errors.New("type must be PF or PJ")
	}
	if l.Currency == "" {
		l.Currency = caixa.DefaultCurrency
	}
	l.Currency = strings.ToUpper(l.Currency)
	l.ID = uuid.New()
	return s.writer.CreateLedger(ctx, l)
}

func (s *service) List(ctx context.Context) ([]caixa.Ledger, error) {
	return s.repo.ListLedgers(ctx)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (caixa.Ledger, error) {
	if id == uuid.Nil {
		return caixa.Ledger{}, errs.ErrInvalid
	}
	return s.repo.GetLedger(ctx, id)
}

// EnsureDefaults seeds one personal and one business ledger when the registry
// is empty, so the system always has at least one scope to attribute to.
// Idempotent: an already populated registry is returned as-is.
func (s *service) EnsureDefaults(ctx context.Context) ([]caixa.Ledger, error) {
	existing, err := s.repo.ListLedgers(ctx)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}
	defaults := []caixa.Ledger{
		{ID: uuid.New(), Name: "Pessoal", Type: caixa.LedgerPersonal, Currency: caixa.DefaultCurrency, IsDefault: true},
		{ID: uuid.New(), Name: "Empresa", Type: caixa.LedgerBusiness, Currency: caixa.DefaultCurrency, IsDefault: true},
	}
	out := make([]caixa.Ledger, 0, len(defaults))
	for _, l := range defaults {
		created, err := s.writer.CreateLedger(ctx, l)
		if err != nil {
			return nil, err
		}
		out = append(out, created)
	}
	return out, nil
}
