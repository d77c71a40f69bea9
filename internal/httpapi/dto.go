package httpapi

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tmoreira/caixa/internal/caixa"
	"github.com/tmoreira/caixa/internal/service/balance"
)

// Ledgers

type postLedgerRequest struct {
	Name     string           `json:"name"`
	Type     caixa.LedgerType `json:"type"`
	Currency string           `json:"currency"`
}

type ledgerResponse struct {
	ID        uuid.UUID        `json:"id"`
	Name      string           `json:"name"`
	Type      caixa.LedgerType `json:"type"`
	Currency  string           `json:"currency"`
	IsDefault bool             `json:"is_default"`
}

func toLedgerResponse(l caixa.Ledger) ledgerResponse {
	return ledgerResponse{ID: l.ID, Name: l.Name, Type: l.Type, Currency: l.Currency, IsDefault: l.IsDefault}
}

// Transactions

type installmentDTO struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

type postTransactionRequest struct {
	LedgerID       uuid.UUID       `json:"ledger_id"`
	Type           caixa.FlowType  `json:"type"`
	AmountMinor    int64           `json:"amount_minor"`
	Currency       string          `json:"currency"`
	Method         caixa.Method    `json:"method"`
	Status         caixa.Status    `json:"status"`
	Date           time.Time       `json:"date"`
	ReferenceMonth string          `json:"reference_month"`
	Category       string          `json:"category"`
	Description    string          `json:"description"`
	CardID         uuid.UUID       `json:"card_id"`
	ContractID     uuid.UUID       `json:"contract_id"`
	Nature         caixa.Nature    `json:"nature"`
	Installment    *installmentDTO `json:"installment,omitempty"`
	RecurrenceID   uuid.UUID       `json:"recurrence_id"`
}

func amountFromMinor(currency string, minor int64) money.Amount {
	if currency == "" {
		currency = caixa.DefaultCurrency
	}
	a, err := money.NewAmountFromMinorUnits(currency, minor)
	if err != nil {
		a, _ = money.NewAmountFromMinorUnits(caixa.DefaultCurrency, minor)
	}
	return a
}

func toTransactionDomain(req postTransactionRequest) (caixa.Transaction, error) {
	t := caixa.Transaction{
		LedgerID:     req.LedgerID,
		Type:         req.Type,
		Amount:       amountFromMinor(req.Currency, req.AmountMinor),
		Method:       req.Method,
		Status:       req.Status,
		Date:         req.Date,
		Category:     req.Category,
		Description:  req.Description,
		CardID:       req.CardID,
		ContractID:   req.ContractID,
		Nature:       req.Nature,
		RecurrenceID: req.RecurrenceID,
	}
	if req.ReferenceMonth != "" {
		m, err := caixa.ParseMonth(req.ReferenceMonth)
		if err != nil {
			return caixa.Transaction{}, err
		}
		t.ReferenceMonth = m
	}
	if req.Installment != nil {
		t.Installment = &caixa.InstallmentInfo{Current: req.Installment.Current, Total: req.Installment.Total}
	}
	return t, nil
}

type transactionResponse struct {
	ID             uuid.UUID       `json:"id"`
	LedgerID       uuid.UUID       `json:"ledger_id"`
	Type           caixa.FlowType  `json:"type"`
	AmountMinor    int64           `json:"amount_minor"`
	Amount         string          `json:"amount"`
	Currency       string          `json:"currency"`
	Method         caixa.Method    `json:"method"`
	Status         caixa.Status    `json:"status"`
	Date           time.Time       `json:"date"`
	ReferenceMonth caixa.Month     `json:"reference_month"`
	Category       string          `json:"category,omitempty"`
	Description    string          `json:"description,omitempty"`
	CardID         uuid.UUID       `json:"card_id"`
	ContractID     uuid.UUID       `json:"contract_id"`
	Nature         caixa.Nature    `json:"nature"`
	Installment    *installmentDTO `json:"installment,omitempty"`
	RecurrenceID   uuid.UUID       `json:"recurrence_id"`
}

func toTransactionResponse(t caixa.Transaction) transactionResponse {
	minor, _ := t.Amount.MinorUnits()
	resp := transactionResponse{
		ID:             t.ID,
		LedgerID:       t.LedgerID,
		Type:           t.Type,
		AmountMinor:    minor,
		Amount:         t.Amount.String(),
		Currency:       t.Amount.Curr().Code(),
		Method:         t.Method,
		Status:         t.Status,
		Date:           t.Date,
		ReferenceMonth: t.ReferenceMonth,
		Category:       t.Category,
		Description:    t.Description,
		CardID:         t.CardID,
		ContractID:     t.ContractID,
		Nature:         t.Nature,
		RecurrenceID:   t.RecurrenceID,
	}
	if t.Installment != nil {
		resp.Installment = &installmentDTO{Current: t.Installment.Current, Total: t.Installment.Total}
	}
	return resp
}

type listTransactionsResponse struct {
	Items []transactionResponse `json:"items"`
}

type setStatusRequest struct {
	Status caixa.Status `json:"status"`
}

type bulkDeleteResponse struct {
	Deleted int `json:"deleted"`
}

// Cards

type postCardRequest struct {
	LedgerID   uuid.UUID `json:"ledger_id"`
	Name       string    `json:"name"`
	ClosingDay int       `json:"closing_day"`
	DueDay     int       `json:"due_day"`
	LimitMinor int64     `json:"limit_minor"`
	Currency   string    `json:"currency"`
}

func toCardDomain(req postCardRequest) caixa.Card {
	return caixa.Card{
		LedgerID:   req.LedgerID,
		Name:       req.Name,
		ClosingDay: req.ClosingDay,
		DueDay:     req.DueDay,
		Limit:      amountFromMinor(req.Currency, req.LimitMinor),
	}
}

type cardResponse struct {
	ID         uuid.UUID `json:"id"`
	LedgerID   uuid.UUID `json:"ledger_id"`
	Name       string    `json:"name"`
	ClosingDay int       `json:"closing_day"`
	DueDay     int       `json:"due_day"`
	LimitMinor int64     `json:"limit_minor"`
	Currency   string    `json:"currency"`
}

func toCardResponse(c caixa.Card) cardResponse {
	minor, _ := c.Limit.MinorUnits()
	return cardResponse{
		ID:         c.ID,
		LedgerID:   c.LedgerID,
		Name:       c.Name,
		ClosingDay: c.ClosingDay,
		DueDay:     c.DueDay,
		LimitMinor: minor,
		Currency:   c.Limit.Curr().Code(),
	}
}

// Contracts

type postContractRequest struct {
	LedgerID              uuid.UUID `json:"ledger_id"`
	Name                  string    `json:"name"`
	InstallmentMinor      int64     `json:"installment_minor"`
	InstallmentsRemaining int       `json:"installments_remaining"`
	TotalDebtMinor        int64     `json:"total_debt_minor"`
	Currency              string    `json:"currency"`
}

func toContractDomain(req postContractRequest) caixa.Contract {
	return caixa.Contract{
		LedgerID:              req.LedgerID,
		Name:                  req.Name,
		InstallmentAmount:     amountFromMinor(req.Currency, req.InstallmentMinor),
		InstallmentsRemaining: req.InstallmentsRemaining,
		TotalDebtRemaining:    amountFromMinor(req.Currency, req.TotalDebtMinor),
	}
}

type contractResponse struct {
	ID                    uuid.UUID            `json:"id"`
	LedgerID              uuid.UUID            `json:"ledger_id"`
	Name                  string               `json:"name"`
	InstallmentMinor      int64                `json:"installment_minor"`
	InstallmentsRemaining int                  `json:"installments_remaining"`
	TotalDebtMinor        int64                `json:"total_debt_minor"`
	Currency              string               `json:"currency"`
	Status                caixa.ContractStatus `json:"status"`
}

func toContractResponse(c caixa.Contract) contractResponse {
	instMinor, _ := c.InstallmentAmount.MinorUnits()
	debtMinor, _ := c.TotalDebtRemaining.MinorUnits()
	return contractResponse{
		ID:                    c.ID,
		LedgerID:              c.LedgerID,
		Name:                  c.Name,
		InstallmentMinor:      instMinor,
		InstallmentsRemaining: c.InstallmentsRemaining,
		TotalDebtMinor:        debtMinor,
		Currency:              c.InstallmentAmount.Curr().Code(),
		Status:                c.Status,
	}
}

// Opening balances

type putOpeningBalanceRequest struct {
	LedgerID    uuid.UUID `json:"ledger_id"`
	AmountMinor int64     `json:"amount_minor"`
	Currency    string    `json:"currency"`
	BaseMonth   string    `json:"base_month"`
}

type openingBalanceResponse struct {
	ID          uuid.UUID   `json:"id"`
	LedgerID    uuid.UUID   `json:"ledger_id"`
	AmountMinor int64       `json:"amount_minor"`
	Amount      string      `json:"amount"`
	Currency    string      `json:"currency"`
	BaseMonth   caixa.Month `json:"base_month"`
}

func toOpeningBalanceResponse(ob caixa.OpeningBalance) openingBalanceResponse {
	minor, _ := ob.Amount.MinorUnits()
	return openingBalanceResponse{
		ID:          ob.ID,
		LedgerID:    ob.LedgerID,
		AmountMinor: minor,
		Amount:      ob.Amount.String(),
		Currency:    ob.Amount.Curr().Code(),
		BaseMonth:   ob.BaseMonth,
	}
}

// Projections

// statsQuery holds validated query params for GET /stats.
type statsQuery struct {
	Month caixa.Month
	Scope balance.Scope
}

type statsResponse struct {
	Month        caixa.Month `json:"month"`
	Scope        string      `json:"scope"`
	OpeningMinor int64       `json:"opening_minor"`
	CurrentMinor int64       `json:"current_minor"`
	ClosingMinor int64       `json:"closing_minor"`
	Opening      string      `json:"opening"`
	Current      string      `json:"current"`
	Closing      string      `json:"closing"`
	Currency     string      `json:"currency"`
}

type flowResponse struct {
	Month           caixa.Month `json:"month"`
	Scope           string      `json:"scope"`
	PaidMinor       int64       `json:"paid_minor"`
	PendingInMinor  int64       `json:"pending_in_minor"`
	PendingOutMinor int64       `json:"pending_out_minor"`
	Currency        string      `json:"currency"`
}

func scopeLabel(sc balance.Scope) string {
	if sc.Consolidated {
		return "consolidated"
	}
	return sc.LedgerID.String()
}
