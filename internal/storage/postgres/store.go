package postgres

// Package postgres provides a pgx-backed storage implementation that satisfies
// the repository and writer interfaces used by the HTTP/API and services.
//
// It is intentionally small and explicit. Migrations that create the expected
// schema live under db/migrations. This package focuses on mapping between the
// domain entities and SQL rows and running the necessary statements.

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tmoreira/caixa/internal/caixa"
	"github.com/tmoreira/caixa/internal/errs"
)

// Store holds a pgx connection pool and implements the read/write interfaces
// used across the service layer. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// nullUUID maps uuid.Nil to SQL NULL on the way in.
func nullUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

func derefUUID(p *uuid.UUID) uuid.UUID {
	if p == nil {
		return uuid.Nil
	}
	return *p
}

func amountFromRow(currency string, minor int64) money.Amount {
	if currency == "" {
		currency = caixa.DefaultCurrency
	}
	a, err := money.NewAmountFromMinorUnits(currency, minor)
	if err != nil {
		a, _ = money.NewAmountFromMinorUnits(caixa.DefaultCurrency, minor)
	}
	return a
}

func minorOf(a money.Amount) (int64, string) {
	minor, _ := a.MinorUnits()
	curr := a.Curr().Code()
	if curr == "" || curr == "XXX" {
		curr = caixa.DefaultCurrency
	}
	return minor, curr
}

// --- Ledgers ---

func (s *Store) CreateLedger(ctx context.Context, l caixa.Ledger) (caixa.Ledger, error) {
	_, err := s.pool.Exec(ctx, `
        insert into ledgers (id, name, type, currency, is_default)
        values ($1,$2,$3,$4,$5)
    `, l.ID, l.Name, l.Type, strings.ToUpper(l.Currency), l.IsDefault)
	if err != nil {
		return caixa.Ledger{}, err
	}
	return l, nil
}

func (s *Store) ListLedgers(ctx context.Context) ([]caixa.Ledger, error) {
	rows, err := s.pool.Query(ctx, `
        select id, name, type, currency, is_default
        from ledgers
        order by name
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]caixa.Ledger, 0)
	for rows.Next() {
		var l caixa.Ledger
		if err := rows.Scan(&l.ID, &l.Name, &l.Type, &l.Currency, &l.IsDefault); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) GetLedger(ctx context.Context, id uuid.UUID) (caixa.Ledger, error) {
	var l caixa.Ledger
	err := s.pool.QueryRow(ctx, `
        select id, name, type, currency, is_default
        from ledgers where id = $1
    `, id).Scan(&l.ID, &l.Name, &l.Type, &l.Currency, &l.IsDefault)
	if errors.Is(err, pgx.ErrNoRows) {
		return caixa.Ledger{}, errs.ErrNotFound
	}
	if err != nil {
		return caixa.Ledger{}, err
	}
	return l, nil
}

// --- Transactions ---

const txColumns = `id, ledger_id, type, amount_minor, currency, method, status,
        date, reference_month, category, description, card_id, contract_id,
        nature, installment_current, installment_total, recurrence_id`

func scanTransaction(row pgx.Row) (caixa.Transaction, error) {
	var (
		t                    caixa.Transaction
		ledgerID             *uuid.UUID
		cardID               *uuid.UUID
		contractID           *uuid.UUID
		recurrenceID         *uuid.UUID
		minor                int64
		currency             string
		monthStr             string
		instCurrent, instTot *int
		date                 time.Time
	)
	err := row.Scan(&t.ID, &ledgerID, &t.Type, &minor, &currency, &t.Method, &t.Status,
		&date, &monthStr, &t.Category, &t.Description, &cardID, &contractID,
		&t.Nature, &instCurrent, &instTot, &recurrenceID)
	if err != nil {
		return caixa.Transaction{}, err
	}
	t.LedgerID = derefUUID(ledgerID)
	t.CardID = derefUUID(cardID)
	t.ContractID = derefUUID(contractID)
	t.RecurrenceID = derefUUID(recurrenceID)
	t.Amount = amountFromRow(currency, minor)
	t.Date = date
	if monthStr != "" {
		if m, err := caixa.ParseMonth(monthStr); err == nil {
			t.ReferenceMonth = m
		}
	}
	if instCurrent != nil && instTot != nil {
		t.Installment = &caixa.InstallmentInfo{Current: *instCurrent, Total: *instTot}
	}
	return t, nil
}

func (s *Store) CreateTransaction(ctx context.Context, t caixa.Transaction) (caixa.Transaction, error) {
	minor, curr := minorOf(t.Amount)
	var instCurrent, instTot *int
	if t.Installment != nil {
		instCurrent, instTot = &t.Installment.Current, &t.Installment.Total
	}
	_, err := s.pool.Exec(ctx, `
        insert into transactions (`+txColumns+`)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
    `, t.ID, nullUUID(t.LedgerID), t.Type, minor, curr, t.Method, t.Status,
		t.Date, t.ReferenceMonth.String(), t.Category, t.Description,
		nullUUID(t.CardID), nullUUID(t.ContractID), t.Nature, instCurrent, instTot,
		nullUUID(t.RecurrenceID))
	if err != nil {
		return caixa.Transaction{}, err
	}
	return t, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t caixa.Transaction) (caixa.Transaction, error) {
	minor, curr := minorOf(t.Amount)
	var instCurrent, instTot *int
	if t.Installment != nil {
		instCurrent, instTot = &t.Installment.Current, &t.Installment.Total
	}
	ct, err := s.pool.Exec(ctx, `
        update transactions
        set ledger_id=$1, type=$2, amount_minor=$3, currency=$4, method=$5,
            status=$6, date=$7, reference_month=$8, category=$9, description=$10,
            card_id=$11, contract_id=$12, nature=$13, installment_current=$14,
            installment_total=$15, recurrence_id=$16
        where id=$17
    `, nullUUID(t.LedgerID), t.Type, minor, curr, t.Method, t.Status, t.Date,
		t.ReferenceMonth.String(), t.Category, t.Description, nullUUID(t.CardID),
		nullUUID(t.ContractID), t.Nature, instCurrent, instTot,
		nullUUID(t.RecurrenceID), t.ID)
	if err != nil {
		return caixa.Transaction{}, err
	}
	if ct.RowsAffected() == 0 {
		return caixa.Transaction{}, errs.ErrNotFound
	}
	return t, nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (caixa.Transaction, error) {
	row := s.pool.QueryRow(ctx, `select `+txColumns+` from transactions where id = $1`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return caixa.Transaction{}, errs.ErrNotFound
	}
	return t, err
}

func (s *Store) ListTransactions(ctx context.Context) ([]caixa.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
        select `+txColumns+` from transactions order by date asc, id asc
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]caixa.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `delete from transactions where id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteTransactionsByRecurrence(ctx context.Context, recurrenceID uuid.UUID) (int, error) {
	ct, err := s.pool.Exec(ctx, `delete from transactions where recurrence_id = $1`, recurrenceID)
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}

func (s *Store) DeleteTransactionsByContract(ctx context.Context, contractID uuid.UUID) (int, error) {
	ct, err := s.pool.Exec(ctx, `delete from transactions where contract_id = $1`, contractID)
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}

// --- Cards ---

func (s *Store) CreateCard(ctx context.Context, c caixa.Card) (caixa.Card, error) {
	minor, curr := minorOf(c.Limit)
	_, err := s.pool.Exec(ctx, `
        insert into cards (id, ledger_id, name, closing_day, due_day, limit_minor, currency)
        values ($1,$2,$3,$4,$5,$6,$7)
    `, c.ID, nullUUID(c.LedgerID), c.Name, c.ClosingDay, c.DueDay, minor, curr)
	if err != nil {
		return caixa.Card{}, err
	}
	return c, nil
}

func (s *Store) UpdateCard(ctx context.Context, c caixa.Card) (caixa.Card, error) {
	minor, curr := minorOf(c.Limit)
	ct, err := s.pool.Exec(ctx, `
        update cards
        set ledger_id=$1, name=$2, closing_day=$3, due_day=$4, limit_minor=$5, currency=$6
        where id=$7
    `, nullUUID(c.LedgerID), c.Name, c.ClosingDay, c.DueDay, minor, curr, c.ID)
	if err != nil {
		return caixa.Card{}, err
	}
	if ct.RowsAffected() == 0 {
		return caixa.Card{}, errs.ErrNotFound
	}
	return c, nil
}

func scanCard(row pgx.Row) (caixa.Card, error) {
	var (
		c        caixa.Card
		ledgerID *uuid.UUID
		minor    int64
		currency string
	)
	if err := row.Scan(&c.ID, &ledgerID, &c.Name, &c.ClosingDay, &c.DueDay, &minor, &currency); err != nil {
		return caixa.Card{}, err
	}
	c.LedgerID = derefUUID(ledgerID)
	c.Limit = amountFromRow(currency, minor)
	return c, nil
}

func (s *Store) GetCard(ctx context.Context, id uuid.UUID) (caixa.Card, error) {
	row := s.pool.QueryRow(ctx, `
        select id, ledger_id, name, closing_day, due_day, limit_minor, currency
        from cards where id = $1
    `, id)
	c, err := scanCard(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return caixa.Card{}, errs.ErrNotFound
	}
	return c, err
}

func (s *Store) ListCards(ctx context.Context) ([]caixa.Card, error) {
	rows, err := s.pool.Query(ctx, `
        select id, ledger_id, name, closing_day, due_day, limit_minor, currency
        from cards order by name
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]caixa.Card, 0)
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteCard(ctx context.Context, id uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `delete from cards where id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// --- Contracts ---

func (s *Store) CreateContract(ctx context.Context, c caixa.Contract) (caixa.Contract, error) {
	instMinor, curr := minorOf(c.InstallmentAmount)
	debtMinor, _ := c.TotalDebtRemaining.MinorUnits()
	_, err := s.pool.Exec(ctx, `
        insert into contracts (id, ledger_id, name, installment_minor, installments_remaining, total_debt_minor, currency, status)
        values ($1,$2,$3,$4,$5,$6,$7,$8)
    `, c.ID, nullUUID(c.LedgerID), c.Name, instMinor, c.InstallmentsRemaining, debtMinor, curr, c.Status)
	if err != nil {
		return caixa.Contract{}, err
	}
	return c, nil
}

func (s *Store) UpdateContract(ctx context.Context, c caixa.Contract) (caixa.Contract, error) {
	instMinor, curr := minorOf(c.InstallmentAmount)
	debtMinor, _ := c.TotalDebtRemaining.MinorUnits()
	ct, err := s.pool.Exec(ctx, `
        update contracts
        set ledger_id=$1, name=$2, installment_minor=$3, installments_remaining=$4,
            total_debt_minor=$5, currency=$6, status=$7
        where id=$8
    `, nullUUID(c.LedgerID), c.Name, instMinor, c.InstallmentsRemaining, debtMinor, curr, c.Status, c.ID)
	if err != nil {
		return caixa.Contract{}, err
	}
	if ct.RowsAffected() == 0 {
		return caixa.Contract{}, errs.ErrNotFound
	}
	return c, nil
}

func scanContract(row pgx.Row) (caixa.Contract, error) {
	var (
		c          caixa.Contract
		ledgerID   *uuid.UUID
		instMinor  int64
		debtMinor  int64
		currency   string
	)
	if err := row.Scan(&c.ID, &ledgerID, &c.Name, &instMinor, &c.InstallmentsRemaining, &debtMinor, &currency, &c.Status); err != nil {
		return caixa.Contract{}, err
	}
	c.LedgerID = derefUUID(ledgerID)
	c.InstallmentAmount = amountFromRow(currency, instMinor)
	c.TotalDebtRemaining = amountFromRow(currency, debtMinor)
	return c, nil
}

func (s *Store) GetContract(ctx context.Context, id uuid.UUID) (caixa.Contract, error) {
	row := s.pool.QueryRow(ctx, `
        select id, ledger_id, name, installment_minor, installments_remaining, total_debt_minor, currency, status
        from contracts where id = $1
    `, id)
	c, err := scanContract(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return caixa.Contract{}, errs.ErrNotFound
	}
	return c, err
}

func (s *Store) ListContracts(ctx context.Context) ([]caixa.Contract, error) {
	rows, err := s.pool.Query(ctx, `
        select id, ledger_id, name, installment_minor, installments_remaining, total_debt_minor, currency, status
        from contracts order by name
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]caixa.Contract, 0)
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteContract(ctx context.Context, id uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `delete from contracts where id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// --- Idempotency ---

// GetTransactionByIdempotencyKey resolves a transaction by idempotency key.
// A key whose transaction was deleted since reads as a miss.
func (s *Store) GetTransactionByIdempotencyKey(ctx context.Context, key string) (caixa.Transaction, bool, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
        select transaction_id from transaction_idempotency where key = $1
    `, key).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return caixa.Transaction{}, false, nil
	}
	if err != nil {
		return caixa.Transaction{}, false, err
	}
	t, err := s.GetTransaction(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return caixa.Transaction{}, false, nil
	}
	if err != nil {
		return caixa.Transaction{}, false, err
	}
	return t, true, nil
}

// SaveIdempotencyKey stores a mapping from key to transaction id. A key that
// already exists keeps its first mapping.
func (s *Store) SaveIdempotencyKey(ctx context.Context, key string, txID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
        insert into transaction_idempotency (key, transaction_id)
        values ($1,$2)
        on conflict (key) do nothing
    `, key, txID)
	return err
}

// --- Opening balances ---

// ReplaceOpeningBalance swaps a ledger's anchor wholesale (upsert by ledger).
func (s *Store) ReplaceOpeningBalance(ctx context.Context, ob caixa.OpeningBalance) (caixa.OpeningBalance, error) {
	minor, curr := minorOf(ob.Amount)
	_, err := s.pool.Exec(ctx, `
        insert into opening_balances (id, ledger_id, amount_minor, currency, base_month)
        values ($1,$2,$3,$4,$5)
        on conflict (ledger_id) do update
        set id = excluded.id, amount_minor = excluded.amount_minor,
            currency = excluded.currency, base_month = excluded.base_month
    `, ob.ID, ob.LedgerID, minor, curr, ob.BaseMonth.String())
	if err != nil {
		return caixa.OpeningBalance{}, err
	}
	return ob, nil
}

func scanOpeningBalance(row pgx.Row) (caixa.OpeningBalance, error) {
	var (
		ob       caixa.OpeningBalance
		minor    int64
		currency string
		monthStr string
	)
	if err := row.Scan(&ob.ID, &ob.LedgerID, &minor, &currency, &monthStr); err != nil {
		return caixa.OpeningBalance{}, err
	}
	ob.Amount = amountFromRow(currency, minor)
	if monthStr != "" {
		if m, err := caixa.ParseMonth(monthStr); err == nil {
			ob.BaseMonth = m
		}
	}
	return ob, nil
}

func (s *Store) GetOpeningBalance(ctx context.Context, ledgerID uuid.UUID) (caixa.OpeningBalance, error) {
	row := s.pool.QueryRow(ctx, `
        select id, ledger_id, amount_minor, currency, base_month
        from opening_balances where ledger_id = $1
    `, ledgerID)
	ob, err := scanOpeningBalance(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return caixa.OpeningBalance{}, errs.ErrNotFound
	}
	return ob, err
}

func (s *Store) ListOpeningBalances(ctx context.Context) ([]caixa.OpeningBalance, error) {
	rows, err := s.pool.Query(ctx, `
        select id, ledger_id, amount_minor, currency, base_month
        from opening_balances order by ledger_id
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]caixa.OpeningBalance, 0)
	for rows.Next() {
		ob, err := scanOpeningBalance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ob)
	}
	return out, rows.Err()
}
