package balance

import (
	"github.com/tmoreira/caixa/internal/caixa"
)

// PaidImpactMinor returns the realized net cash delta for a single month, in
// minor units: paid income minus paid non-card expenses minus fully paid card
// statements. The input is one ledger's already-attributed transactions. A
// partially paid card statement contributes nothing; the cash has not left the
// account until the whole statement settles.
func PaidImpactMinor(txs []caixa.Transaction, month caixa.Month) int64 {
	var net int64
	for _, t := range txs {
		if !t.ReferenceMonth.Equal(month) || !t.Settled() {
			continue
		}
		minor, _ := t.Amount.MinorUnits()
		switch {
		case t.Type == caixa.FlowIncome:
			net += minor
		case t.Type == caixa.FlowExpense && t.Method != caixa.MethodCard:
			net -= minor
		}
	}
	for _, g := range caixa.GroupInvoices(txs, month) {
		if g.AllPaid {
			net -= g.TotalMinor
		}
	}
	return net
}

// PendingImpactMinor returns the scheduled cash flow for a month, not netted:
// incomings from unsettled income, outgoings from unsettled non-card expenses
// plus the full total of every card statement that is not yet fully paid.
// There is no partial credit; one open line keeps the whole statement owing.
func PendingImpactMinor(txs []caixa.Transaction, month caixa.Month) (in, out int64) {
	for _, t := range txs {
		if !t.ReferenceMonth.Equal(month) || !t.Pending() {
			continue
		}
		minor, _ := t.Amount.MinorUnits()
		switch {
		case t.Type == caixa.FlowIncome:
			in += minor
		case t.Type == caixa.FlowExpense && t.Method != caixa.MethodCard:
			out += minor
		}
	}
	for _, g := range caixa.GroupInvoices(txs, month) {
		if !g.AllPaid {
			out += g.TotalMinor
		}
	}
	return in, out
}
