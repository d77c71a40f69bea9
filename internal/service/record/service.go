// Package record implements the mutation side of the tracker: transaction
// writes, status transitions with their debt-contract side effects, card and
// contract registries, and opening-balance anchor rebasing. The projection
// engine never mutates; everything stateful funnels through here.
package record

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tmoreira/caixa/internal/caixa"
	"github.com/tmoreira/caixa/internal/errs"
)

// Repo defines read operations needed by the service.
type Repo interface {
	GetLedger(ctx context.Context, id uuid.UUID) (caixa.Ledger, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (caixa.Transaction, error)
	GetCard(ctx context.Context, id uuid.UUID) (caixa.Card, error)
	GetContract(ctx context.Context, id uuid.UUID) (caixa.Contract, error)
	GetOpeningBalance(ctx context.Context, ledgerID uuid.UUID) (caixa.OpeningBalance, error)
}

// Writer defines write operations needed by the service. Each call is a
// single-record write; last write wins at the store layer.
type Writer interface {
	CreateTransaction(ctx context.Context, t caixa.Transaction) (caixa.Transaction, error)
	UpdateTransaction(ctx context.Context, t caixa.Transaction) (caixa.Transaction, error)
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
	DeleteTransactionsByRecurrence(ctx context.Context, recurrenceID uuid.UUID) (int, error)
	DeleteTransactionsByContract(ctx context.Context, contractID uuid.UUID) (int, error)
	CreateCard(ctx context.Context, c caixa.Card) (caixa.Card, error)
	UpdateCard(ctx context.Context, c caixa.Card) (caixa.Card, error)
	DeleteCard(ctx context.Context, id uuid.UUID) error
	CreateContract(ctx context.Context, c caixa.Contract) (caixa.Contract, error)
	UpdateContract(ctx context.Context, c caixa.Contract) (caixa.Contract, error)
	DeleteContract(ctx context.Context, id uuid.UUID) error
	ReplaceOpeningBalance(ctx context.Context, ob caixa.OpeningBalance) (caixa.OpeningBalance, error)
}

// Notifier receives change notifications after successful writes. Consumers
// use them to re-read and recompute; the payload is deliberately minimal.
type Notifier interface {
	RecordChanged(ctx context.Context, entity string, id uuid.UUID, action string)
}

// Service exposes validated mutations over the backing store.
type Service interface {
	CreateTransaction(ctx context.Context, t caixa.Transaction) (caixa.Transaction, error)
	UpdateTransaction(ctx context.Context, t caixa.Transaction) (caixa.Transaction, error)
	SetTransactionStatus(ctx context.Context, id uuid.UUID, status caixa.Status) (caixa.Transaction, error)
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
	DeleteRecurrenceSeries(ctx context.Context, recurrenceID uuid.UUID) (int, error)
	DeleteInstallmentGroup(ctx context.Context, contractID uuid.UUID) (int, error)
	CreateCard(ctx context.Context, c caixa.Card) (caixa.Card, error)
	UpdateCard(ctx context.Context, c caixa.Card) (caixa.Card, error)
	DeleteCard(ctx context.Context, id uuid.UUID) error
	CreateContract(ctx context.Context, c caixa.Contract) (caixa.Contract, error)
	UpdateContract(ctx context.Context, c caixa.Contract) (caixa.Contract, error)
	DeleteContract(ctx context.Context, id uuid.UUID) error
	SetOpeningBalance(ctx context.Context, ledgerID uuid.UUID, amount money.Amount, baseMonth caixa.Month) (caixa.OpeningBalance, error)
}

type service struct {
	repo     Repo
	writer   Writer
	notifier Notifier
}

// New constructs the record service. A nil notifier disables notifications.
func New(repo Repo, writer Writer, notifier Notifier) Service {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &service{repo: repo, writer: writer, notifier: notifier}
}

type noopNotifier struct{}

func (noopNotifier) RecordChanged(context.Context, string, uuid.UUID, string) {}

func validStatus(s caixa.Status) bool {
	switch s {
	case caixa.StatusScheduled, caixa.StatusPaid, caixa.StatusOverdue, caixa.StatusCanceled:
		return true
	}
	return false
}

// ValidateTransaction checks the business invariants of a transaction record.
func (s *service) validateTransaction(ctx context.Context, t caixa.Transaction) error {
	switch t.Type {
	case caixa.FlowIncome, caixa.FlowExpense:
	default:
		return errors.New("type must be income or expense")
	}
	switch t.Method {
	case caixa.MethodPix, caixa.MethodCard, caixa.MethodBoleto, caixa.MethodOther:
	default:
		return errors.New("method must be pix, cartao, boleto or outro")
	}
	if !validStatus(t.Status) {
		return errors.New("invalid status")
	}
	if t.ReferenceMonth.IsZero() {
		return errs.ErrInvalidMonth
	}
	minor, ok := t.Amount.MinorUnits()
	if !ok || minor <= 0 {
		return errs.ErrInvalidAmount
	}
	if t.Method == caixa.MethodCard {
		if t.CardID == uuid.Nil {
			return errs.ErrCardRequired
		}
		if _, err := s.repo.GetCard(ctx, t.CardID); err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrCardRequired
			}
			return err
		}
	}
	if t.ContractID != uuid.Nil {
		if _, err := s.repo.GetContract(ctx, t.ContractID); err != nil {
			return err
		}
	}
	if t.LedgerID != uuid.Nil {
		if _, err := s.repo.GetLedger(ctx, t.LedgerID); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) CreateTransaction(ctx context.Context, t caixa.Transaction) (caixa.Transaction, error) {
	if t.Status == "" {
		t.Status = caixa.StatusScheduled
	}
	if t.Nature == "" {
		t.Nature = caixa.NatureOneOff
	}
	if t.ReferenceMonth.IsZero() && !t.Date.IsZero() {
		t.ReferenceMonth = caixa.MonthOf(t.Date)
	}
	if err := s.validateTransaction(ctx, t); err != nil {
		return caixa.Transaction{}, err
	}
	t.ID = uuid.New()
	created, err := s.writer.CreateTransaction(ctx, t)
	if err != nil {
		return caixa.Transaction{}, err
	}
	s.notifier.RecordChanged(ctx, "transaction", created.ID, "created")
	return created, nil
}

// UpdateTransaction applies amount/category/description style edits. Status
// changes go through SetTransactionStatus so contract counters stay in step.
func (s *service) UpdateTransaction(ctx context.Context, t caixa.Transaction) (caixa.Transaction, error) {
	if t.ID == uuid.Nil {
		return caixa.Transaction{}, errs.ErrInvalid
	}
	current, err := s.repo.GetTransaction(ctx, t.ID)
	if err != nil {
		return caixa.Transaction{}, err
	}
	if t.Status != current.Status {
		return caixa.Transaction{}, errs.ErrImmutable
	}
	if err := s.validateTransaction(ctx, t); err != nil {
		return caixa.Transaction{}, err
	}
	updated, err := s.writer.UpdateTransaction(ctx, t)
	if err != nil {
		return caixa.Transaction{}, err
	}
	s.notifier.RecordChanged(ctx, "transaction", updated.ID, "updated")
	return updated, nil
}

// SetTransactionStatus transitions a transaction's settlement state. Flipping
// an installment between previsto/atrasado and pago adjusts the parent
// contract: remaining count and remaining debt move by one installment, and
// the contract flips to Quitado when nothing remains (back to Ativo when a
// payment is undone).
func (s *service) SetTransactionStatus(ctx context.Context, id uuid.UUID, status caixa.Status) (caixa.Transaction, error) {
	if id == uuid.Nil || !validStatus(status) {
		return caixa.Transaction{}, errs.ErrInvalid
	}
	t, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return caixa.Transaction{}, err
	}
	if t.Status == status {
		return t, nil
	}
	paying := status == caixa.StatusPaid && t.Status != caixa.StatusPaid
	unpaying := t.Status == caixa.StatusPaid && status != caixa.StatusPaid
	if t.ContractID != uuid.Nil && (paying || unpaying) {
		if err := s.adjustContract(ctx, t.ContractID, paying); err != nil {
			return caixa.Transaction{}, err
		}
	}
	t.Status = status
	updated, err := s.writer.UpdateTransaction(ctx, t)
	if err != nil {
		return caixa.Transaction{}, err
	}
	s.notifier.RecordChanged(ctx, "transaction", updated.ID, "status")
	return updated, nil
}

// adjustContract moves the contract counters by one installment in either
// direction. Remaining debt never drops below zero.
func (s *service) adjustContract(ctx context.Context, contractID uuid.UUID, paying bool) error {
	c, err := s.repo.GetContract(ctx, contractID)
	if err != nil {
		// A deleted contract is stale residue, not a reason to block the
		// status change itself.
		if errors.Is(err, errs.ErrNotFound) {
			return nil
		}
		return err
	}
	installment, _ := c.InstallmentAmount.MinorUnits()
	debt, _ := c.TotalDebtRemaining.MinorUnits()
	if paying {
		c.InstallmentsRemaining--
		debt -= installment
	} else {
		c.InstallmentsRemaining++
		debt += installment
	}
	if c.InstallmentsRemaining < 0 {
		c.InstallmentsRemaining = 0
	}
	if debt < 0 {
		debt = 0
	}
	curr := c.TotalDebtRemaining.Curr().Code()
	if amt, err := money.NewAmountFromMinorUnits(curr, debt); err == nil {
		c.TotalDebtRemaining = amt
	}
	if c.InstallmentsRemaining == 0 {
		c.Status = caixa.ContractSettled
	} else {
		c.Status = caixa.ContractActive
	}
	if _, err := s.writer.UpdateContract(ctx, c); err != nil {
		return err
	}
	s.notifier.RecordChanged(ctx, "contract", c.ID, "updated")
	return nil
}

func (s *service) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return errs.ErrInvalid
	}
	if err := s.writer.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.notifier.RecordChanged(ctx, "transaction", id, "deleted")
	return nil
}

// DeleteRecurrenceSeries removes every transaction created from one
// recurrence template.
func (s *service) DeleteRecurrenceSeries(ctx context.Context, recurrenceID uuid.UUID) (int, error) {
	if recurrenceID == uuid.Nil {
		return 0, errs.ErrInvalid
	}
	n, err := s.writer.DeleteTransactionsByRecurrence(ctx, recurrenceID)
	if err != nil {
		return 0, err
	}
	s.notifier.RecordChanged(ctx, "transaction", recurrenceID, "series_deleted")
	return n, nil
}

// DeleteInstallmentGroup removes every installment of one contract.
func (s *service) DeleteInstallmentGroup(ctx context.Context, contractID uuid.UUID) (int, error) {
	if contractID == uuid.Nil {
		return 0, errs.ErrInvalid
	}
	n, err := s.writer.DeleteTransactionsByContract(ctx, contractID)
	if err != nil {
		return 0, err
	}
	s.notifier.RecordChanged(ctx, "transaction", contractID, "group_deleted")
	return n, nil
}

func (s *service) CreateCard(ctx context.Context, c caixa.Card) (caixa.Card, error) {
	if c.Name == "" {
		return caixa.Card{}, errors.New("name is required")
	}
	if c.ClosingDay < 1 || c.ClosingDay > 31 || c.DueDay < 1 || c.DueDay > 31 {
		return caixa.Card{}, errors.New("closing_day and due_day must be within 1..31")
	}
	if c.LedgerID != uuid.Nil {
		if _, err := s.repo.GetLedger(ctx, c.LedgerID); err != nil {
			return caixa.Card{}, err
		}
	}
	c.ID = uuid.New()
	created, err := s.writer.CreateCard(ctx, c)
	if err != nil {
		return caixa.Card{}, err
	}
	s.notifier.RecordChanged(ctx, "card", created.ID, "created")
	return created, nil
}

func (s *service) UpdateCard(ctx context.Context, c caixa.Card) (caixa.Card, error) {
	if c.ID == uuid.Nil {
		return caixa.Card{}, errs.ErrInvalid
	}
	if _, err := s.repo.GetCard(ctx, c.ID); err != nil {
		return caixa.Card{}, err
	}
	updated, err := s.writer.UpdateCard(ctx, c)
	if err != nil {
		return caixa.Card{}, err
	}
	s.notifier.RecordChanged(ctx, "card", updated.ID, "updated")
	return updated, nil
}

// DeleteCard removes the card only. Its transactions become unattributable
// residue and fall out of every view until reassigned; deletes do not cascade.
func (s *service) DeleteCard(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return errs.ErrInvalid
	}
	if err := s.writer.DeleteCard(ctx, id); err != nil {
		return err
	}
	s.notifier.RecordChanged(ctx, "card", id, "deleted")
	return nil
}

func (s *service) CreateContract(ctx context.Context, c caixa.Contract) (caixa.Contract, error) {
	if c.Name == "" {
		return caixa.Contract{}, errors.New("name is required")
	}
	if c.InstallmentsRemaining < 0 {
		return caixa.Contract{}, errors.New("installments_remaining must be >= 0")
	}
	if c.LedgerID != uuid.Nil {
		if _, err := s.repo.GetLedger(ctx, c.LedgerID); err != nil {
			return caixa.Contract{}, err
		}
	}
	if c.Status == "" {
		c.Status = caixa.ContractActive
	}
	if c.InstallmentsRemaining == 0 {
		c.Status = caixa.ContractSettled
	}
	c.ID = uuid.New()
	created, err := s.writer.CreateContract(ctx, c)
	if err != nil {
		return caixa.Contract{}, err
	}
	s.notifier.RecordChanged(ctx, "contract", created.ID, "created")
	return created, nil
}

func (s *service) UpdateContract(ctx context.Context, c caixa.Contract) (caixa.Contract, error) {
	if c.ID == uuid.Nil {
		return caixa.Contract{}, errs.ErrInvalid
	}
	if _, err := s.repo.GetContract(ctx, c.ID); err != nil {
		return caixa.Contract{}, err
	}
	updated, err := s.writer.UpdateContract(ctx, c)
	if err != nil {
		return caixa.Contract{}, err
	}
	s.notifier.RecordChanged(ctx, "contract", updated.ID, "updated")
	return updated, nil
}

func (s *service) DeleteContract(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return errs.ErrInvalid
	}
	if err := s.writer.DeleteContract(ctx, id); err != nil {
		return err
	}
	s.notifier.RecordChanged(ctx, "contract", id, "deleted")
	return nil
}

// SetOpeningBalance rebases a ledger's anchor: the stored record is replaced
// wholesale by a fresh value object. History before the new anchor is
// deliberately discarded; the projection simply starts from the new point.
func (s *service) SetOpeningBalance(ctx context.Context, ledgerID uuid.UUID, amount money.Amount, baseMonth caixa.Month) (caixa.OpeningBalance, error) {
	if ledgerID == uuid.Nil {
		return caixa.OpeningBalance{}, errs.ErrInvalid
	}
	if baseMonth.IsZero() {
		baseMonth = caixa.CurrentMonth()
	}
	if _, err := s.repo.GetLedger(ctx, ledgerID); err != nil {
		return caixa.OpeningBalance{}, err
	}
	ob := caixa.OpeningBalance{
		ID:        uuid.New(),
		LedgerID:  ledgerID,
		Amount:    amount,
		BaseMonth: baseMonth,
	}
	replaced, err := s.writer.ReplaceOpeningBalance(ctx, ob)
	if err != nil {
		return caixa.OpeningBalance{}, err
	}
	s.notifier.RecordChanged(ctx, "opening_balance", replaced.ID, "replaced")
	return replaced, nil
}
