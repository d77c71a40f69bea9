package caixa

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
)

// DefaultCurrency is the ledger-local currency used when a record carries none.
const DefaultCurrency = "BRL"

// LedgerType distinguishes personal (PF) from business (PJ) books.
type LedgerType string

const (
	// LedgerPersonal is a pessoa fisica (personal) scope.
	LedgerPersonal LedgerType = "PF"
	// LedgerBusiness is a pessoa juridica (business) scope.
	LedgerBusiness LedgerType = "PJ"
)

// FlowType is the cash direction of a transaction.
type FlowType string

const (
	FlowIncome  FlowType = "income"
	FlowExpense FlowType = "expense"
)

// Method is the payment instrument of a transaction.
type Method string

const (
	MethodPix    Method = "pix"
	MethodCard   Method = "cartao"
	MethodBoleto Method = "boleto"
	MethodOther  Method = "outro"
)

// Status is the settlement state of a transaction.
type Status string

const (
	// StatusScheduled marks a forecast item not yet settled.
	StatusScheduled Status = "previsto"
	// StatusPaid marks a settled item; only paid items move cash.
	StatusPaid Status = "pago"
	// StatusOverdue marks a scheduled item past its date, still unsettled.
	StatusOverdue Status = "atrasado"
	// StatusCanceled marks an item excluded from all balance math.
	StatusCanceled Status = "cancelado"
)

// Nature classifies how a transaction came to exist.
type Nature string

const (
	NatureOneOff      Nature = "avulso"
	NatureRecurring   Nature = "recorrente"
	NatureInstallment Nature = "parcela"
)

// ContractStatus is the lifecycle state of a debt contract.
type ContractStatus string

const (
	ContractActive  ContractStatus = "Ativo"
	ContractSettled ContractStatus = "Quitado"
)

// Ledger is an independent accounting scope.
type Ledger struct {
	ID       uuid.UUID
	Name     string
	Type     LedgerType
	Currency string
	// IsDefault marks the auto-seeded ledger of each type.
	IsDefault bool
}

// InstallmentInfo positions a transaction inside an installment plan.
type InstallmentInfo struct {
	Current int
	Total   int
}

// Transaction is a dated income or expense record. LedgerID, CardID,
// ContractID and RecurrenceID are uuid.Nil when absent; attribution to a
// ledger may be indirect through the card or contract.
type Transaction struct {
	ID             uuid.UUID
	LedgerID       uuid.UUID
	Type           FlowType
	Amount         money.Amount
	Method         Method
	Status         Status
	Date           time.Time
	ReferenceMonth Month
	Category       string
	Description    string
	CardID         uuid.UUID
	ContractID     uuid.UUID
	Nature         Nature
	Installment    *InstallmentInfo
	RecurrenceID   uuid.UUID
}

// Settled reports whether the transaction has realized against cash.
func (t Transaction) Settled() bool { return t.Status == StatusPaid }

// Pending reports whether the transaction is still expected to move cash.
func (t Transaction) Pending() bool {
	return t.Status == StatusScheduled || t.Status == StatusOverdue
}

// Card is a credit card owning invoice-grouped transactions via CardID.
type Card struct {
	ID         uuid.UUID
	LedgerID   uuid.UUID
	Name       string
	ClosingDay int
	DueDay     int
	Limit      money.Amount
}

// Contract is an installment debt. Transactions referencing it inherit its
// ledger attribution; paying an installment decrements the remaining counters.
type Contract struct {
	ID                    uuid.UUID
	LedgerID              uuid.UUID
	Name                  string
	InstallmentAmount     money.Amount
	InstallmentsRemaining int
	TotalDebtRemaining    money.Amount
	Status                ContractStatus
}

// OpeningBalance anchors a ledger's projection: Amount is the known-correct
// cash position at the start of BaseMonth. It is an immutable value object;
// edits replace the ledger's record wholesale and deliberately discard any
// history before the new anchor.
type OpeningBalance struct {
	ID        uuid.UUID
	LedgerID  uuid.UUID
	Amount    money.Amount
	BaseMonth Month
}
