package record

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tmoreira/caixa/internal/caixa"
	"github.com/tmoreira/caixa/internal/errs"
	"github.com/tmoreira/caixa/internal/storage/memory"
)

func brl(t *testing.T, minor int64) money.Amount {
	t.Helper()
	a, err := money.NewAmountFromMinorUnits(caixa.DefaultCurrency, minor)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	return a
}

func setup(t *testing.T) (*memory.Store, Service, caixa.Ledger) {
	t.Helper()
	store := memory.New()
	ledger := caixa.Ledger{ID: uuid.New(), Name: "Pessoal", Type: caixa.LedgerPersonal, Currency: caixa.DefaultCurrency}
	store.SeedLedger(ledger)
	return store, New(store, store, nil), ledger
}

func TestCreateTransactionDefaults(t *testing.T) {
	_, svc, ledger := setup(t)
	ctx := context.Background()

	created, err := svc.CreateTransaction(ctx, caixa.Transaction{
		LedgerID: ledger.ID,
		Type:     caixa.FlowExpense,
		Amount:   brl(t, 4200),
		Method:   caixa.MethodPix,
		Date:     time.Date(2026, time.March, 12, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatal("expected generated id")
	}
	if created.Status != caixa.StatusScheduled {
		t.Fatalf("default status: %q", created.Status)
	}
	if created.Nature != caixa.NatureOneOff {
		t.Fatalf("default nature: %q", created.Nature)
	}
	if created.ReferenceMonth.String() != "2026-03" {
		t.Fatalf("reference month from date: %q", created.ReferenceMonth.String())
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	_, svc, ledger := setup(t)
	ctx := context.Background()
	base := caixa.Transaction{
		LedgerID: ledger.ID,
		Type:     caixa.FlowExpense,
		Amount:   brl(t, 100),
		Method:   caixa.MethodPix,
		Date:     time.Date(2026, time.March, 12, 0, 0, 0, 0, time.UTC),
	}

	bad := base
	bad.Amount = brl(t, 0)
	if _, err := svc.CreateTransaction(ctx, bad); !errors.Is(err, errs.ErrInvalidAmount) {
		t.Fatalf("zero amount: %v", err)
	}

	bad = base
	bad.Type = "transfer"
	if _, err := svc.CreateTransaction(ctx, bad); err == nil {
		t.Fatal("unknown type accepted")
	}

	// cartao requires a live card.
	bad = base
	bad.Method = caixa.MethodCard
	if _, err := svc.CreateTransaction(ctx, bad); !errors.Is(err, errs.ErrCardRequired) {
		t.Fatalf("cartao without card: %v", err)
	}
	bad.CardID = uuid.New()
	if _, err := svc.CreateTransaction(ctx, bad); !errors.Is(err, errs.ErrCardRequired) {
		t.Fatalf("cartao with dead card: %v", err)
	}

	bad = base
	bad.LedgerID = uuid.New()
	if _, err := svc.CreateTransaction(ctx, bad); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown ledger: %v", err)
	}
}

func TestUpdateTransactionStatusImmutable(t *testing.T) {
	_, svc, ledger := setup(t)
	ctx := context.Background()
	created, err := svc.CreateTransaction(ctx, caixa.Transaction{
		LedgerID: ledger.ID,
		Type:     caixa.FlowExpense,
		Amount:   brl(t, 4200),
		Method:   caixa.MethodPix,
		Date:     time.Date(2026, time.March, 12, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	edit := created
	edit.Status = caixa.StatusPaid
	if _, err := svc.UpdateTransaction(ctx, edit); !errors.Is(err, errs.ErrImmutable) {
		t.Fatalf("status change through update: %v", err)
	}

	edit = created
	edit.Description = "mercado"
	updated, err := svc.UpdateTransaction(ctx, edit)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Description != "mercado" {
		t.Fatalf("edit lost: %+v", updated)
	}
}

func TestSetStatusAdjustsContract(t *testing.T) {
	store, svc, ledger := setup(t)
	ctx := context.Background()

	contract := caixa.Contract{
		ID:                    uuid.New(),
		LedgerID:              ledger.ID,
		Name:                  "Financiamento",
		InstallmentAmount:     brl(t, 10000),
		InstallmentsRemaining: 2,
		TotalDebtRemaining:    brl(t, 20000),
		Status:                caixa.ContractActive,
	}
	store.SeedContract(contract)

	installment, err := svc.CreateTransaction(ctx, caixa.Transaction{
		Type:       caixa.FlowExpense,
		Amount:     brl(t, 10000),
		Method:     caixa.MethodBoleto,
		Date:       time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC),
		ContractID: contract.ID,
		Nature:     caixa.NatureInstallment,
	})
	if err != nil {
		t.Fatalf("create installment: %v", err)
	}

	// Paying decrements the counters.
	if _, err := svc.SetTransactionStatus(ctx, installment.ID, caixa.StatusPaid); err != nil {
		t.Fatalf("pay: %v", err)
	}
	got, _ := store.GetContract(ctx, contract.ID)
	debt, _ := got.TotalDebtRemaining.MinorUnits()
	if got.InstallmentsRemaining != 1 || debt != 10000 || got.Status != caixa.ContractActive {
		t.Fatalf("after payment: remaining=%d debt=%d status=%q", got.InstallmentsRemaining, debt, got.Status)
	}

	// Undoing the payment restores them.
	if _, err := svc.SetTransactionStatus(ctx, installment.ID, caixa.StatusScheduled); err != nil {
		t.Fatalf("unpay: %v", err)
	}
	got, _ = store.GetContract(ctx, contract.ID)
	debt, _ = got.TotalDebtRemaining.MinorUnits()
	if got.InstallmentsRemaining != 2 || debt != 20000 || got.Status != caixa.ContractActive {
		t.Fatalf("after undo: remaining=%d debt=%d status=%q", got.InstallmentsRemaining, debt, got.Status)
	}
}

func TestSetStatusSettlesContract(t *testing.T) {
	store, svc, ledger := setup(t)
	ctx := context.Background()

	contract := caixa.Contract{
		ID:                    uuid.New(),
		LedgerID:              ledger.ID,
		Name:                  "Emprestimo",
		InstallmentAmount:     brl(t, 5000),
		InstallmentsRemaining: 1,
		TotalDebtRemaining:    brl(t, 5000),
		Status:                caixa.ContractActive,
	}
	store.SeedContract(contract)

	last, err := svc.CreateTransaction(ctx, caixa.Transaction{
		Type:       caixa.FlowExpense,
		Amount:     brl(t, 5000),
		Method:     caixa.MethodPix,
		Date:       time.Date(2026, time.February, 5, 0, 0, 0, 0, time.UTC),
		ContractID: contract.ID,
		Nature:     caixa.NatureInstallment,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.SetTransactionStatus(ctx, last.ID, caixa.StatusPaid); err != nil {
		t.Fatalf("pay: %v", err)
	}
	got, _ := store.GetContract(ctx, contract.ID)
	if got.InstallmentsRemaining != 0 || got.Status != caixa.ContractSettled {
		t.Fatalf("expected Quitado, got remaining=%d status=%q", got.InstallmentsRemaining, got.Status)
	}

	// Reversing the last payment reactivates the contract.
	if _, err := svc.SetTransactionStatus(ctx, last.ID, caixa.StatusOverdue); err != nil {
		t.Fatalf("unpay: %v", err)
	}
	got, _ = store.GetContract(ctx, contract.ID)
	if got.InstallmentsRemaining != 1 || got.Status != caixa.ContractActive {
		t.Fatalf("expected Ativo, got remaining=%d status=%q", got.InstallmentsRemaining, got.Status)
	}
}

func TestSetStatusNoopAndStaleContract(t *testing.T) {
	store, svc, ledger := setup(t)
	ctx := context.Background()

	contract := caixa.Contract{
		ID:                    uuid.New(),
		LedgerID:              ledger.ID,
		Name:                  "Cartao loja",
		InstallmentAmount:     brl(t, 1000),
		InstallmentsRemaining: 3,
		TotalDebtRemaining:    brl(t, 3000),
		Status:                caixa.ContractActive,
	}
	store.SeedContract(contract)
	installment, err := svc.CreateTransaction(ctx, caixa.Transaction{
		Type:       caixa.FlowExpense,
		Amount:     brl(t, 1000),
		Method:     caixa.MethodBoleto,
		Date:       time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC),
		ContractID: contract.ID,
		Nature:     caixa.NatureInstallment,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Same-status transition is a no-op.
	if _, err := svc.SetTransactionStatus(ctx, installment.ID, caixa.StatusScheduled); err != nil {
		t.Fatalf("noop: %v", err)
	}
	got, _ := store.GetContract(ctx, contract.ID)
	if got.InstallmentsRemaining != 3 {
		t.Fatalf("noop moved counters: %+v", got)
	}

	// A deleted contract must not block the status change itself.
	if err := store.DeleteContract(ctx, contract.ID); err != nil {
		t.Fatalf("delete contract: %v", err)
	}
	updated, err := svc.SetTransactionStatus(ctx, installment.ID, caixa.StatusPaid)
	if err != nil {
		t.Fatalf("pay with stale contract: %v", err)
	}
	if updated.Status != caixa.StatusPaid {
		t.Fatalf("status not applied: %+v", updated)
	}
}

func TestCreateCardValidation(t *testing.T) {
	_, svc, ledger := setup(t)
	ctx := context.Background()

	if _, err := svc.CreateCard(ctx, caixa.Card{LedgerID: ledger.ID, Name: "Visa", ClosingDay: 0, DueDay: 12}); err == nil {
		t.Fatal("closing_day 0 accepted")
	}
	if _, err := svc.CreateCard(ctx, caixa.Card{LedgerID: ledger.ID, Name: "Visa", ClosingDay: 5, DueDay: 32}); err == nil {
		t.Fatal("due_day 32 accepted")
	}
	created, err := svc.CreateCard(ctx, caixa.Card{LedgerID: ledger.ID, Name: "Visa", ClosingDay: 5, DueDay: 12, Limit: brl(t, 500000)})
	if err != nil {
		t.Fatalf("create card: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatal("expected generated id")
	}
}

func TestSetOpeningBalanceRebase(t *testing.T) {
	store, svc, ledger := setup(t)
	ctx := context.Background()

	first, err := svc.SetOpeningBalance(ctx, ledger.ID, brl(t, 100000), caixa.MustParseMonth("2026-01"))
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	second, err := svc.SetOpeningBalance(ctx, ledger.ID, brl(t, 250000), caixa.MustParseMonth("2026-03"))
	if err != nil {
		t.Fatalf("rebase: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("rebase must mint a fresh value object")
	}

	got, err := store.GetOpeningBalance(ctx, ledger.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	minor, _ := got.Amount.MinorUnits()
	if got.ID != second.ID || minor != 250000 || got.BaseMonth.String() != "2026-03" {
		t.Fatalf("anchor not replaced wholesale: %+v", got)
	}

	if _, err := svc.SetOpeningBalance(ctx, uuid.New(), brl(t, 1), caixa.MustParseMonth("2026-01")); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown ledger: %v", err)
	}
}

func TestBulkDeletes(t *testing.T) {
	store, svc, ledger := setup(t)
	ctx := context.Background()

	recurrence := uuid.New()
	for i := 0; i < 3; i++ {
		if _, err := svc.CreateTransaction(ctx, caixa.Transaction{
			LedgerID:     ledger.ID,
			Type:         caixa.FlowExpense,
			Amount:       brl(t, 2000),
			Method:       caixa.MethodPix,
			Date:         time.Date(2026, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC),
			Nature:       caixa.NatureRecurring,
			RecurrenceID: recurrence,
		}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	n, err := svc.DeleteRecurrenceSeries(ctx, recurrence)
	if err != nil {
		t.Fatalf("delete series: %v", err)
	}
	if n != 3 {
		t.Fatalf("deleted %d, want 3", n)
	}
	txs, _ := store.ListTransactions(ctx)
	if len(txs) != 0 {
		t.Fatalf("residue after series delete: %d", len(txs))
	}

	if _, err := svc.DeleteRecurrenceSeries(ctx, uuid.Nil); !errors.Is(err, errs.ErrInvalid) {
		t.Fatalf("nil recurrence id: %v", err)
	}
}
