package caixa

import "github.com/google/uuid"

// InvoiceGroup is the derived view of one card's expense transactions sharing
// a reference month: a single conceptual obligation due on the card's due day.
// Settlement is all-or-nothing; the statement only leaves cash once every
// member transaction is paid. Invoice groups are never persisted, they are
// recomputed from live transaction status on each pass.
type InvoiceGroup struct {
	CardID     uuid.UUID
	Month      Month
	TotalMinor int64
	AllPaid    bool
	Items      int
}

// GroupInvoices folds the card expense transactions of month into invoice
// groups keyed by card. Canceled transactions never join a group, so a
// canceled line cannot wedge a statement in a never-payable state.
func GroupInvoices(txs []Transaction, month Month) map[uuid.UUID]InvoiceGroup {
	groups := make(map[uuid.UUID]InvoiceGroup)
	for _, t := range txs {
		if t.Type != FlowExpense || t.Method != MethodCard {
			continue
		}
		if !t.ReferenceMonth.Equal(month) || t.Status == StatusCanceled {
			continue
		}
		if t.CardID == uuid.Nil {
			continue
		}
		g, ok := groups[t.CardID]
		if !ok {
			g = InvoiceGroup{CardID: t.CardID, Month: month, AllPaid: true}
		}
		minor, _ := t.Amount.MinorUnits()
		g.TotalMinor += minor
		g.Items++
		if !t.Settled() {
			g.AllPaid = false
		}
		groups[t.CardID] = g
	}
	return groups
}
