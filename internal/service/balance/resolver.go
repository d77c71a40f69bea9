// Package balance implements the rolling cash-balance projection engine:
// ledger attribution, monthly realized/pending cash-flow evaluation, and the
// forward chain from each ledger's opening-balance anchor to a target month.
// Everything here is a pure function of an input snapshot; mutations happen
// elsewhere and callers simply recompute from the latest data.
package balance

import (
	"github.com/google/uuid"

	"github.com/tmoreira/caixa/internal/caixa"
)

// ResolveLedger determines which ledger a transaction belongs to, first match
// wins: contract ownership, then card ownership for cartao transactions, then
// the transaction's own ledger id. The second result is false when the
// transaction is unattributable (stale contract reference, or a cartao
// transaction whose card no longer exists) and must be excluded everywhere.
// A true result with uuid.Nil means an orphan awaiting triage.
func ResolveLedger(t caixa.Transaction, cards map[uuid.UUID]caixa.Card, contracts map[uuid.UUID]caixa.Contract) (uuid.UUID, bool) {
	if t.ContractID != uuid.Nil {
		c, ok := contracts[t.ContractID]
		if !ok {
			return uuid.Nil, false
		}
		return c.LedgerID, true
	}
	if t.Method == caixa.MethodCard {
		// Stale card references are residue of non-cascading deletes; the
		// invariant is to drop them from every view and every balance.
		card, ok := cards[t.CardID]
		if !ok {
			return uuid.Nil, false
		}
		return card.LedgerID, true
	}
	return t.LedgerID, true
}
