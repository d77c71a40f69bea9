package balance

import (
	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tmoreira/caixa/internal/caixa"
)

// Snapshot is an immutable view of the backing store. Projections are
// deterministic over a snapshot; recompute from a fresh one after any write.
type Snapshot struct {
	Ledgers      []caixa.Ledger
	Transactions []caixa.Transaction
	Cards        map[uuid.UUID]caixa.Card
	Contracts    map[uuid.UUID]caixa.Contract
	Anchors      []caixa.OpeningBalance
}

// NewSnapshot indexes cards and contracts by id for attribution lookups.
func NewSnapshot(ledgers []caixa.Ledger, txs []caixa.Transaction, cards []caixa.Card, contracts []caixa.Contract, anchors []caixa.OpeningBalance) Snapshot {
	cm := make(map[uuid.UUID]caixa.Card, len(cards))
	for _, c := range cards {
		cm[c.ID] = c
	}
	km := make(map[uuid.UUID]caixa.Contract, len(contracts))
	for _, k := range contracts {
		km[k.ID] = k
	}
	return Snapshot{Ledgers: ledgers, Transactions: txs, Cards: cm, Contracts: km, Anchors: anchors}
}

// Scope selects a single ledger or the consolidated aggregate of all ledgers.
type Scope struct {
	LedgerID     uuid.UUID
	Consolidated bool
}

// ScopeLedger scopes a projection to one ledger.
func ScopeLedger(id uuid.UUID) Scope { return Scope{LedgerID: id} }

// ScopeConsolidated sums every ledger that appears in an anchor or in any
// transaction's resolved attribution.
var ScopeConsolidated = Scope{Consolidated: true}

// Stats is the three-point cash position for a target month.
type Stats struct {
	OpeningMinor int64
	CurrentMinor int64
	ClosingMinor int64
	Currency     string
}

// Opening returns the opening balance as a money amount.
func (s Stats) Opening() money.Amount { return minorAmount(s.Currency, s.OpeningMinor) }

// Current returns the settled-to-date balance as a money amount.
func (s Stats) Current() money.Amount { return minorAmount(s.Currency, s.CurrentMinor) }

// Closing returns the full-forecast balance as a money amount.
func (s Stats) Closing() money.Amount { return minorAmount(s.Currency, s.ClosingMinor) }

func minorAmount(curr string, minor int64) money.Amount {
	if curr == "" {
		curr = caixa.DefaultCurrency
	}
	a, err := money.NewAmountFromMinorUnits(curr, minor)
	if err != nil {
		a, _ = money.NewAmountFromMinorUnits(caixa.DefaultCurrency, minor)
	}
	return a
}

// LedgerTransactions returns the transactions whose resolved attribution is
// the given ledger. Unattributable transactions never appear in any subset.
func (s Snapshot) LedgerTransactions(ledgerID uuid.UUID) []caixa.Transaction {
	out := make([]caixa.Transaction, 0)
	for _, t := range s.Transactions {
		id, ok := ResolveLedger(t, s.Cards, s.Contracts)
		if ok && id == ledgerID && id != uuid.Nil {
			out = append(out, t)
		}
	}
	return out
}

// Orphans returns transactions routed to the triage view: attributable to no
// ledger either because every reference is absent or because a card or
// contract they point at no longer exists.
func (s Snapshot) Orphans() []caixa.Transaction {
	out := make([]caixa.Transaction, 0)
	for _, t := range s.Transactions {
		id, ok := ResolveLedger(t, s.Cards, s.Contracts)
		if !ok || id == uuid.Nil {
			out = append(out, t)
		}
	}
	return out
}

// anchorFor returns the ledger's opening-balance anchor, defaulting to a zero
// amount anchored at the target month when the record is missing. A missing
// anchor is not an error; it simply means no history is projected.
func (s Snapshot) anchorFor(ledgerID uuid.UUID, target caixa.Month) (baseMinor int64, baseMonth caixa.Month) {
	for _, a := range s.Anchors {
		if a.LedgerID == ledgerID {
			minor, _ := a.Amount.MinorUnits()
			base := a.BaseMonth
			if base.IsZero() {
				base = target
			}
			return minor, base
		}
	}
	return 0, target
}

// scopeLedgers resolves the set of ledgers a projection covers.
func (s Snapshot) scopeLedgers(scope Scope) []uuid.UUID {
	if !scope.Consolidated {
		return []uuid.UUID{scope.LedgerID}
	}
	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0, len(s.Anchors))
	add := func(id uuid.UUID) {
		if id == uuid.Nil {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, a := range s.Anchors {
		add(a.LedgerID)
	}
	for _, t := range s.Transactions {
		if id, ok := ResolveLedger(t, s.Cards, s.Contracts); ok {
			add(id)
		}
	}
	return ids
}

func (s Snapshot) currencyFor(scope Scope) string {
	if scope.Consolidated {
		return caixa.DefaultCurrency
	}
	for _, l := range s.Ledgers {
		if l.ID == scope.LedgerID && l.Currency != "" {
			return l.Currency
		}
	}
	return caixa.DefaultCurrency
}

// Stats chains each in-scope ledger forward from its anchor to the target
// month and returns the summed opening, current and closing cash position.
//
// Per ledger: the opening balance is the anchor amount plus the realized
// impact of every month from the anchor (inclusive) up to the target
// (exclusive); the current balance adds what already settled inside the
// target month; the closing balance adds pending incomings and subtracts
// pending outgoings of the target month. Targets at or before the anchor
// use the anchor amount as-is; editing an anchor discards prior history, so
// there is no backward projection.
//
// A zero target month or a zero single-ledger scope yields a zeroed result;
// callers treat that as "not computable".
func (s Snapshot) Stats(target caixa.Month, scope Scope) Stats {
	out := Stats{Currency: s.currencyFor(scope)}
	if target.IsZero() {
		return out
	}
	if !scope.Consolidated && scope.LedgerID == uuid.Nil {
		return out
	}
	for _, ledgerID := range s.scopeLedgers(scope) {
		running, baseMonth := s.anchorFor(ledgerID, target)
		txs := s.LedgerTransactions(ledgerID)
		if baseMonth.Before(target) {
			for m := baseMonth; m.Before(target); m = m.Next() {
				running += PaidImpactMinor(txs, m)
			}
		}
		opening := running
		current := opening + PaidImpactMinor(txs, target)
		in, outgoing := PendingImpactMinor(txs, target)
		closing := current + in - outgoing
		out.OpeningMinor += opening
		out.CurrentMinor += current
		out.ClosingMinor += closing
	}
	return out
}
