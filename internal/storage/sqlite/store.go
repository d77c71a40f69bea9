// Package sqlite provides a single-file storage backend suitable for
// standalone deployments. It uses the pure-Go sqlite driver so the binary
// stays cgo-free.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	_ "modernc.org/sqlite"

	"github.com/tmoreira/caixa/internal/caixa"
	"github.com/tmoreira/caixa/internal/errs"
)

// Store wraps a *sql.DB over a sqlite file and implements the repository and
// writer interfaces consumed by the services.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at dbPath and applies
// pending migrations.
func Open(dbPath string) (*Store, error) {
	if err := Migrate(dbPath); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// Close closes the underlying handle.
func (s *Store) Close() error { return s.db.Close() }

// Ready verifies the database file is reachable.
func (s *Store) Ready(ctx context.Context) error { return s.db.PingContext(ctx) }

func uuidText(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id.String()
}

func parseUUID(s sql.NullString) uuid.UUID {
	if !s.Valid || s.String == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(s.String)
	if err != nil {
		return uuid.Nil
	}
	return id
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
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO ledgers (id, name, type, currency, is_default)
        VALUES (?, ?, ?, ?, ?)
    `, l.ID.String(), l.Name, string(l.Type), strings.ToUpper(l.Currency), l.IsDefault)
	if err != nil {
		return caixa.Ledger{}, err
	}
	return l, nil
}

func (s *Store) ListLedgers(ctx context.Context) ([]caixa.Ledger, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, name, type, currency, is_default FROM ledgers ORDER BY name
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]caixa.Ledger, 0)
	for rows.Next() {
		var (
			l  caixa.Ledger
			id string
		)
		if err := rows.Scan(&id, &l.Name, &l.Type, &l.Currency, &l.IsDefault); err != nil {
			return nil, err
		}
		l.ID, _ = uuid.Parse(id)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) GetLedger(ctx context.Context, id uuid.UUID) (caixa.Ledger, error) {
	var (
		l     caixa.Ledger
		rowID string
	)
	err := s.db.QueryRowContext(ctx, `
        SELECT id, name, type, currency, is_default FROM ledgers WHERE id = ?
    `, id.String()).Scan(&rowID, &l.Name, &l.Type, &l.Currency, &l.IsDefault)
	if errors.Is(err, sql.ErrNoRows) {
		return caixa.Ledger{}, errs.ErrNotFound
	}
	if err != nil {
		return caixa.Ledger{}, err
	}
	l.ID, _ = uuid.Parse(rowID)
	return l, nil
}

// --- Transactions ---

const txColumns = `id, ledger_id, type, amount_minor, currency, method, status,
        date, reference_month, category, description, card_id, contract_id,
        nature, installment_current, installment_total, recurrence_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (caixa.Transaction, error) {
	var (
		t                    caixa.Transaction
		id                   string
		ledgerID             sql.NullString
		cardID               sql.NullString
		contractID           sql.NullString
		recurrenceID         sql.NullString
		minor                int64
		currency             string
		dateStr              string
		monthStr             string
		instCurrent, instTot sql.NullInt64
	)
	err := row.Scan(&id, &ledgerID, &t.Type, &minor, &currency, &t.Method, &t.Status,
		&dateStr, &monthStr, &t.Category, &t.Description, &cardID, &contractID,
		&t.Nature, &instCurrent, &instTot, &recurrenceID)
	if err != nil {
		return caixa.Transaction{}, err
	}
	t.ID, _ = uuid.Parse(id)
	t.LedgerID = parseUUID(ledgerID)
	t.CardID = parseUUID(cardID)
	t.ContractID = parseUUID(contractID)
	t.RecurrenceID = parseUUID(recurrenceID)
	t.Amount = amountFromRow(currency, minor)
	if dateStr != "" {
		t.Date, _ = time.Parse(time.RFC3339, dateStr)
	}
	if monthStr != "" {
		if m, err := caixa.ParseMonth(monthStr); err == nil {
			t.ReferenceMonth = m
		}
	}
	if instCurrent.Valid && instTot.Valid {
		t.Installment = &caixa.InstallmentInfo{
			Current: int(instCurrent.Int64),
			Total:   int(instTot.Int64),
		}
	}
	return t, nil
}

func txArgs(t caixa.Transaction) []any {
	minor, curr := minorOf(t.Amount)
	var instCurrent, instTot any
	if t.Installment != nil {
		instCurrent, instTot = t.Installment.Current, t.Installment.Total
	}
	return []any{
		t.ID.String(), uuidText(t.LedgerID), string(t.Type), minor, curr,
		string(t.Method), string(t.Status), t.Date.UTC().Format(time.RFC3339),
		t.ReferenceMonth.String(), t.Category, t.Description,
		uuidText(t.CardID), uuidText(t.ContractID), string(t.Nature),
		instCurrent, instTot, uuidText(t.RecurrenceID),
	}
}

func (s *Store) CreateTransaction(ctx context.Context, t caixa.Transaction) (caixa.Transaction, error) {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO transactions (`+txColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, txArgs(t)...)
	if err != nil {
		return caixa.Transaction{}, err
	}
	return t, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t caixa.Transaction) (caixa.Transaction, error) {
	args := txArgs(t)
	// Shift id to the end for the WHERE clause.
	args = append(args[1:], args[0])
	res, err := s.db.ExecContext(ctx, `
        UPDATE transactions
        SET ledger_id=?, type=?, amount_minor=?, currency=?, method=?, status=?,
            date=?, reference_month=?, category=?, description=?, card_id=?,
            contract_id=?, nature=?, installment_current=?, installment_total=?,
            recurrence_id=?
        WHERE id=?
    `, args...)
	if err != nil {
		return caixa.Transaction{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return caixa.Transaction{}, errs.ErrNotFound
	}
	return t, nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (caixa.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = ?`, id.String())
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return caixa.Transaction{}, errs.ErrNotFound
	}
	return t, err
}

func (s *Store) ListTransactions(ctx context.Context) ([]caixa.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+txColumns+` FROM transactions ORDER BY date ASC, id ASC
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
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteTransactionsByRecurrence(ctx context.Context, recurrenceID uuid.UUID) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE recurrence_id = ?`, recurrenceID.String())
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *Store) DeleteTransactionsByContract(ctx context.Context, contractID uuid.UUID) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE contract_id = ?`, contractID.String())
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// --- Cards ---

func (s *Store) CreateCard(ctx context.Context, c caixa.Card) (caixa.Card, error) {
	minor, curr := minorOf(c.Limit)
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO cards (id, ledger_id, name, closing_day, due_day, limit_minor, currency)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `, c.ID.String(), uuidText(c.LedgerID), c.Name, c.ClosingDay, c.DueDay, minor, curr)
	if err != nil {
		return caixa.Card{}, err
	}
	return c, nil
}

func (s *Store) UpdateCard(ctx context.Context, c caixa.Card) (caixa.Card, error) {
	minor, curr := minorOf(c.Limit)
	res, err := s.db.ExecContext(ctx, `
        UPDATE cards SET ledger_id=?, name=?, closing_day=?, due_day=?, limit_minor=?, currency=?
        WHERE id=?
    `, uuidText(c.LedgerID), c.Name, c.ClosingDay, c.DueDay, minor, curr, c.ID.String())
	if err != nil {
		return caixa.Card{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return caixa.Card{}, errs.ErrNotFound
	}
	return c, nil
}

func scanCard(row rowScanner) (caixa.Card, error) {
	var (
		c        caixa.Card
		id       string
		ledgerID sql.NullString
		minor    int64
		currency string
	)
	if err := row.Scan(&id, &ledgerID, &c.Name, &c.ClosingDay, &c.DueDay, &minor, &currency); err != nil {
		return caixa.Card{}, err
	}
	c.ID, _ = uuid.Parse(id)
	c.LedgerID = parseUUID(ledgerID)
	c.Limit = amountFromRow(currency, minor)
	return c, nil
}

func (s *Store) GetCard(ctx context.Context, id uuid.UUID) (caixa.Card, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, ledger_id, name, closing_day, due_day, limit_minor, currency
        FROM cards WHERE id = ?
    `, id.String())
	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return caixa.Card{}, errs.ErrNotFound
	}
	return c, err
}

func (s *Store) ListCards(ctx context.Context) ([]caixa.Card, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, ledger_id, name, closing_day, due_day, limit_minor, currency
        FROM cards ORDER BY name
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
	res, err := s.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// --- Contracts ---

func (s *Store) CreateContract(ctx context.Context, c caixa.Contract) (caixa.Contract, error) {
	instMinor, curr := minorOf(c.InstallmentAmount)
	debtMinor, _ := c.TotalDebtRemaining.MinorUnits()
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO contracts (id, ledger_id, name, installment_minor, installments_remaining, total_debt_minor, currency, status)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `, c.ID.String(), uuidText(c.LedgerID), c.Name, instMinor, c.InstallmentsRemaining, debtMinor, curr, string(c.Status))
	if err != nil {
		return caixa.Contract{}, err
	}
	return c, nil
}

func (s *Store) UpdateContract(ctx context.Context, c caixa.Contract) (caixa.Contract, error) {
	instMinor, curr := minorOf(c.InstallmentAmount)
	debtMinor, _ := c.TotalDebtRemaining.MinorUnits()
	res, err := s.db.ExecContext(ctx, `
        UPDATE contracts
        SET ledger_id=?, name=?, installment_minor=?, installments_remaining=?,
            total_debt_minor=?, currency=?, status=?
        WHERE id=?
    `, uuidText(c.LedgerID), c.Name, instMinor, c.InstallmentsRemaining, debtMinor, curr, string(c.Status), c.ID.String())
	if err != nil {
		return caixa.Contract{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return caixa.Contract{}, errs.ErrNotFound
	}
	return c, nil
}

func scanContract(row rowScanner) (caixa.Contract, error) {
	var (
		c         caixa.Contract
		id        string
		ledgerID  sql.NullString
		instMinor int64
		debtMinor int64
		currency  string
	)
	if err := row.Scan(&id, &ledgerID, &c.Name, &instMinor, &c.InstallmentsRemaining, &debtMinor, &currency, &c.Status); err != nil {
		return caixa.Contract{}, err
	}
	c.ID, _ = uuid.Parse(id)
	c.LedgerID = parseUUID(ledgerID)
	c.InstallmentAmount = amountFromRow(currency, instMinor)
	c.TotalDebtRemaining = amountFromRow(currency, debtMinor)
	return c, nil
}

func (s *Store) GetContract(ctx context.Context, id uuid.UUID) (caixa.Contract, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, ledger_id, name, installment_minor, installments_remaining, total_debt_minor, currency, status
        FROM contracts WHERE id = ?
    `, id.String())
	c, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return caixa.Contract{}, errs.ErrNotFound
	}
	return c, err
}

func (s *Store) ListContracts(ctx context.Context) ([]caixa.Contract, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, ledger_id, name, installment_minor, installments_remaining, total_debt_minor, currency, status
        FROM contracts ORDER BY name
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
	res, err := s.db.ExecContext(ctx, `DELETE FROM contracts WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// --- Idempotency ---

// GetTransactionByIdempotencyKey resolves a transaction by idempotency key.
// A key whose transaction was deleted since reads as a miss.
func (s *Store) GetTransactionByIdempotencyKey(ctx context.Context, key string) (caixa.Transaction, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `
        SELECT transaction_id FROM transaction_idempotency WHERE key = ?
    `, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return caixa.Transaction{}, false, nil
	}
	if err != nil {
		return caixa.Transaction{}, false, err
	}
	id, err := uuid.Parse(raw)
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
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO transaction_idempotency (key, transaction_id)
        VALUES (?, ?)
        ON CONFLICT (key) DO NOTHING
    `, key, txID.String())
	return err
}

// --- Opening balances ---

// ReplaceOpeningBalance swaps a ledger's anchor wholesale (upsert by ledger).
func (s *Store) ReplaceOpeningBalance(ctx context.Context, ob caixa.OpeningBalance) (caixa.OpeningBalance, error) {
	minor, curr := minorOf(ob.Amount)
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO opening_balances (id, ledger_id, amount_minor, currency, base_month)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (ledger_id) DO UPDATE
        SET id = excluded.id, amount_minor = excluded.amount_minor,
            currency = excluded.currency, base_month = excluded.base_month
    `, ob.ID.String(), ob.LedgerID.String(), minor, curr, ob.BaseMonth.String())
	if err != nil {
		return caixa.OpeningBalance{}, err
	}
	return ob, nil
}

func scanOpeningBalance(row rowScanner) (caixa.OpeningBalance, error) {
	var (
		ob       caixa.OpeningBalance
		id       string
		ledgerID string
		minor    int64
		currency string
		monthStr string
	)
	if err := row.Scan(&id, &ledgerID, &minor, &currency, &monthStr); err != nil {
		return caixa.OpeningBalance{}, err
	}
	ob.ID, _ = uuid.Parse(id)
	ob.LedgerID, _ = uuid.Parse(ledgerID)
	ob.Amount = amountFromRow(currency, minor)
	if monthStr != "" {
		if m, err := caixa.ParseMonth(monthStr); err == nil {
			ob.BaseMonth = m
		}
	}
	return ob, nil
}

func (s *Store) GetOpeningBalance(ctx context.Context, ledgerID uuid.UUID) (caixa.OpeningBalance, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, ledger_id, amount_minor, currency, base_month
        FROM opening_balances WHERE ledger_id = ?
    `, ledgerID.String())
	ob, err := scanOpeningBalance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return caixa.OpeningBalance{}, errs.ErrNotFound
	}
	return ob, err
}

func (s *Store) ListOpeningBalances(ctx context.Context) ([]caixa.OpeningBalance, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, ledger_id, amount_minor, currency, base_month
        FROM opening_balances ORDER BY ledger_id
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
