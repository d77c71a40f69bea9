package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tmoreira/caixa/internal/caixa"
	"github.com/tmoreira/caixa/internal/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type txResp struct {
	ID             string `json:"id"`
	LedgerID       string `json:"ledger_id"`
	Type           string `json:"type"`
	AmountMinor    int64  `json:"amount_minor"`
	Method         string `json:"method"`
	Status         string `json:"status"`
	ReferenceMonth string `json:"reference_month"`
}

type statsResp struct {
	Month        string `json:"month"`
	Scope        string `json:"scope"`
	OpeningMinor int64  `json:"opening_minor"`
	CurrentMinor int64  `json:"current_minor"`
	ClosingMinor int64  `json:"closing_minor"`
	Currency     string `json:"currency"`
}

type errResp struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func setup(t *testing.T) (*memory.Store, http.Handler, caixa.Ledger) {
	t.Helper()
	store := memory.New()
	ledger := caixa.Ledger{ID: uuid.New(), Name: "Pessoal", Type: caixa.LedgerPersonal, Currency: caixa.DefaultCurrency, IsDefault: true}
	store.SeedLedger(ledger)
	h := New(store, nil, testLogger()).Handler()
	return store, h, ledger
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func brl(t *testing.T, minor int64) money.Amount {
	t.Helper()
	a, err := money.NewAmountFromMinorUnits(caixa.DefaultCurrency, minor)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	return a
}

func TestLedgers_CreateAndGet(t *testing.T) {
	_, h, seeded := setup(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/ledgers", map[string]any{
		"name": "Empresa",
		"type": "PJ",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID       string `json:"id"`
		Type     string `json:"type"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Type != "PJ" || created.Currency != "BRL" {
		t.Fatalf("unexpected ledger: %+v", created)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/ledgers/"+seeded.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get seeded: %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/ledgers", map[string]any{
		"name": "Errada",
		"type": "XX",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid type: expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestTransactionsAndStats(t *testing.T) {
	_, h, ledger := setup(t)

	rec := doJSON(t, h, http.MethodPut, "/v1/opening-balances", map[string]any{
		"ledger_id":    ledger.ID.String(),
		"amount_minor": 100000,
		"base_month":   "2026-01",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("opening balance: %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/transactions", map[string]any{
		"ledger_id":    ledger.ID.String(),
		"type":         "income",
		"amount_minor": 50000,
		"method":       "pix",
		"status":       "pago",
		"date":         time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create tx: %d: %s", rec.Code, rec.Body.String())
	}
	var tr txResp
	if err := json.Unmarshal(rec.Body.Bytes(), &tr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tr.ReferenceMonth != "2026-01" || tr.Status != "pago" {
		t.Fatalf("unexpected tx: %+v", tr)
	}

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/v1/stats?month=2026-01&scope=%s", ledger.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: %d: %s", rec.Code, rec.Body.String())
	}
	var st statsResp
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if st.OpeningMinor != 100000 || st.CurrentMinor != 150000 || st.ClosingMinor != 150000 {
		t.Fatalf("january stats: %+v", st)
	}

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/v1/stats?month=2026-02&scope=%s", ledger.ID), nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if st.OpeningMinor != 150000 || st.ClosingMinor != 150000 {
		t.Fatalf("february stats: %+v", st)
	}

	// month is mandatory
	rec = doJSON(t, h, http.MethodGet, "/v1/stats?scope=consolidated", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing month: %d", rec.Code)
	}
}

func TestCardStatementAtomicity(t *testing.T) {
	_, h, ledger := setup(t)

	rec := doJSON(t, h, http.MethodPut, "/v1/opening-balances", map[string]any{
		"ledger_id":    ledger.ID.String(),
		"amount_minor": 100000,
		"base_month":   "2026-01",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("opening balance: %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/cards", map[string]any{
		"ledger_id":   ledger.ID.String(),
		"name":        "Visa",
		"closing_day": 5,
		"due_day":     12,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create card: %d: %s", rec.Code, rec.Body.String())
	}
	var card struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &card); err != nil {
		t.Fatalf("decode card: %v", err)
	}

	postCardTx := func(minor int64, status string) txResp {
		t.Helper()
		rec := doJSON(t, h, http.MethodPost, "/v1/transactions", map[string]any{
			"type":         "expense",
			"amount_minor": minor,
			"method":       "cartao",
			"status":       status,
			"card_id":      card.ID,
			"date":         time.Date(2026, time.January, 8, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create card tx: %d: %s", rec.Code, rec.Body.String())
		}
		var tr txResp
		if err := json.Unmarshal(rec.Body.Bytes(), &tr); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return tr
	}
	postCardTx(5000, "pago")
	open := postCardTx(15000, "previsto")

	var st statsResp
	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/v1/stats?month=2026-01&scope=%s", ledger.ID), nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	// Open statement: nothing realized, full total pending.
	if st.CurrentMinor != 100000 || st.ClosingMinor != 80000 {
		t.Fatalf("open statement stats: %+v", st)
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/transactions/"+open.ID+"/status", map[string]any{"status": "pago"})
	if rec.Code != http.StatusOK {
		t.Fatalf("settle: %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/v1/stats?month=2026-01&scope=%s", ledger.ID), nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if st.CurrentMinor != 80000 || st.ClosingMinor != 80000 {
		t.Fatalf("settled statement stats: %+v", st)
	}

	// A cartao transaction without a live card is rejected up front.
	rec = doJSON(t, h, http.MethodPost, "/v1/transactions", map[string]any{
		"type":         "expense",
		"amount_minor": 100,
		"method":       "cartao",
		"status":       "previsto",
		"card_id":      uuid.New().String(),
		"date":         time.Now().UTC().Format(time.RFC3339),
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("dead card: expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var er errResp
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if er.Code != "card_required" {
		t.Fatalf("error code: %+v", er)
	}
}

func TestPatchCannotChangeStatus(t *testing.T) {
	_, h, ledger := setup(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/transactions", map[string]any{
		"ledger_id":    ledger.ID.String(),
		"type":         "expense",
		"amount_minor": 4200,
		"method":       "pix",
		"date":         time.Now().UTC().Format(time.RFC3339),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d: %s", rec.Code, rec.Body.String())
	}
	var tr txResp
	if err := json.Unmarshal(rec.Body.Bytes(), &tr); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doJSON(t, h, http.MethodPatch, "/v1/transactions/"+tr.ID, map[string]any{"status": "pago"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status via patch: expected 409, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPatch, "/v1/transactions/"+tr.ID, map[string]any{"description": "padaria"})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch description: %d: %s", rec.Code, rec.Body.String())
	}
}

func TestTriageListsOrphans(t *testing.T) {
	_, h, ledger := setup(t)

	// No ledger, card or contract: an orphan bound for triage.
	rec := doJSON(t, h, http.MethodPost, "/v1/transactions", map[string]any{
		"type":         "expense",
		"amount_minor": 999,
		"method":       "outro",
		"date":         time.Now().UTC().Format(time.RFC3339),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create orphan: %d: %s", rec.Code, rec.Body.String())
	}
	// And one properly attributed transaction for contrast.
	rec = doJSON(t, h, http.MethodPost, "/v1/transactions", map[string]any{
		"ledger_id":    ledger.ID.String(),
		"type":         "expense",
		"amount_minor": 1000,
		"method":       "pix",
		"date":         time.Now().UTC().Format(time.RFC3339),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create attributed: %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/triage", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("triage: %d", rec.Code)
	}
	var list struct {
		Items []txResp `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Items) != 1 {
		t.Fatalf("expected 1 orphan, got %d", len(list.Items))
	}
}

func TestMonthFlow(t *testing.T) {
	_, h, ledger := setup(t)

	for _, body := range []map[string]any{
		{"ledger_id": ledger.ID.String(), "type": "income", "amount_minor": 30000, "method": "pix", "status": "pago", "date": "2026-01-05T00:00:00Z"},
		{"ledger_id": ledger.ID.String(), "type": "expense", "amount_minor": 8000, "method": "boleto", "status": "previsto", "date": "2026-01-20T00:00:00Z"},
	} {
		rec := doJSON(t, h, http.MethodPost, "/v1/transactions", body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create: %d: %s", rec.Code, rec.Body.String())
		}
	}

	rec := doJSON(t, h, http.MethodGet, fmt.Sprintf("/v1/months/2026-01/flow?scope=%s", ledger.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("flow: %d: %s", rec.Code, rec.Body.String())
	}
	var flow struct {
		PaidMinor       int64 `json:"paid_minor"`
		PendingInMinor  int64 `json:"pending_in_minor"`
		PendingOutMinor int64 `json:"pending_out_minor"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &flow); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if flow.PaidMinor != 30000 || flow.PendingOutMinor != 8000 || flow.PendingInMinor != 0 {
		t.Fatalf("flow: %+v", flow)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/months/not-a-month/flow", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad month: %d", rec.Code)
	}
}

func TestBulkDeleteByQuery(t *testing.T) {
	_, h, ledger := setup(t)

	recurrence := uuid.New()
	for i := 0; i < 2; i++ {
		rec := doJSON(t, h, http.MethodPost, "/v1/transactions", map[string]any{
			"ledger_id":     ledger.ID.String(),
			"type":          "expense",
			"amount_minor":  2500,
			"method":        "pix",
			"nature":        "recorrente",
			"recurrence_id": recurrence.String(),
			"date":          time.Now().UTC().Format(time.RFC3339),
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create %d: %d: %s", i, rec.Code, rec.Body.String())
		}
	}

	rec := doJSON(t, h, http.MethodDelete, "/v1/transactions?recurrence_id="+recurrence.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("bulk delete: %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Deleted int `json:"deleted"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Deleted != 2 {
		t.Fatalf("deleted=%d", out.Deleted)
	}

	rec = doJSON(t, h, http.MethodDelete, "/v1/transactions", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing selector: %d", rec.Code)
	}
}

func TestContentTypeEnforced(t *testing.T) {
	_, h, _ := setup(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/transactions", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	_, h, _ := setup(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, h, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: %d", path, rec.Code)
		}
	}
}

func TestOpeningBalanceRebaseDiscardsHistory(t *testing.T) {
	store, h, ledger := setup(t)

	rec := doJSON(t, h, http.MethodPut, "/v1/opening-balances", map[string]any{
		"ledger_id":    ledger.ID.String(),
		"amount_minor": 100000,
		"base_month":   "2026-01",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("first anchor: %d", rec.Code)
	}
	// Paid expense in January, then rebase to February with a corrected amount.
	store.SeedTransaction(caixa.Transaction{
		ID:             uuid.New(),
		LedgerID:       ledger.ID,
		Type:           caixa.FlowExpense,
		Amount:         brl(t, 30000),
		Method:         caixa.MethodPix,
		Status:         caixa.StatusPaid,
		Date:           time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC),
		ReferenceMonth: caixa.MustParseMonth("2026-01"),
		Nature:         caixa.NatureOneOff,
	})

	rec = doJSON(t, h, http.MethodPut, "/v1/opening-balances", map[string]any{
		"ledger_id":    ledger.ID.String(),
		"amount_minor": 500000,
		"base_month":   "2026-02",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("rebase: %d: %s", rec.Code, rec.Body.String())
	}

	var st statsResp
	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/v1/stats?month=2026-02&scope=%s", ledger.ID), nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// The January expense predates the new anchor and no longer projects.
	if st.OpeningMinor != 500000 || st.ClosingMinor != 500000 {
		t.Fatalf("post-rebase stats: %+v", st)
	}
}

func TestTransactionReplayWithIdempotencyKey(t *testing.T) {
	_, h, ledger := setup(t)

	rec := doJSON(t, h, http.MethodPut, "/v1/opening-balances", map[string]any{
		"ledger_id":    ledger.ID.String(),
		"amount_minor": 100000,
		"base_month":   "2026-01",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("opening balance: %d", rec.Code)
	}

	body := map[string]any{
		"ledger_id":    ledger.ID.String(),
		"type":         "income",
		"amount_minor": 50000,
		"method":       "pix",
		"status":       "pago",
		"date":         time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
	}
	postWithKey := func(key string) txResp {
		t.Helper()
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/v1/transactions", bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", key)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create tx: %d: %s", rec.Code, rec.Body.String())
		}
		var tr txResp
		if err := json.Unmarshal(rec.Body.Bytes(), &tr); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return tr
	}

	first := postWithKey("client-retry-1")
	replay := postWithKey("client-retry-1")
	if replay.ID != first.ID {
		t.Fatalf("replay minted a new transaction: %s vs %s", replay.ID, first.ID)
	}

	// The retried request must not double the balance impact.
	var st statsResp
	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/v1/stats?month=2026-01&scope=%s", ledger.ID), nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if st.CurrentMinor != 150000 {
		t.Fatalf("replay double-counted: %+v", st)
	}

	other := postWithKey("client-retry-2")
	if other.ID == first.ID {
		t.Fatalf("distinct key reused transaction %s", first.ID)
	}
}

func TestOpeningBalanceZeroWhenUnset(t *testing.T) {
	_, h, ledger := setup(t)

	rec := doJSON(t, h, http.MethodGet, "/v1/opening-balances?ledger_id="+ledger.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("fresh ledger anchor: %d: %s", rec.Code, rec.Body.String())
	}
	var ob struct {
		LedgerID    string `json:"ledger_id"`
		AmountMinor int64  `json:"amount_minor"`
		BaseMonth   string `json:"base_month"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &ob); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ob.LedgerID != ledger.ID.String() || ob.AmountMinor != 0 {
		t.Fatalf("expected zero anchor, got %+v", ob)
	}
	if want := caixa.MonthOf(time.Now().UTC()).String(); ob.BaseMonth != want {
		t.Fatalf("base month %q, want %q", ob.BaseMonth, want)
	}

	// An unknown ledger still reads as missing.
	rec = doJSON(t, h, http.MethodGet, "/v1/opening-balances?ledger_id="+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown ledger: %d", rec.Code)
	}
}
