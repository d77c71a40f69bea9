package memory

// Package memory provides a simple in-memory implementation used for
// development and tests. It keeps code paths easy to follow while allowing a
// real DB backend to be plugged in.

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tmoreira/caixa/internal/caixa"
	"github.com/tmoreira/caixa/internal/errs"
)

// txKey tracks ordering for transactions: sorted asc by (Date, ID)
type txKey struct {
	Date time.Time
	ID   uuid.UUID
}

// Store is an in-memory implementation of the repository+writer interfaces
// used by the services and the API. It is guarded by an RWMutex for
// concurrent reads/writes.
type Store struct {
	mu        sync.RWMutex
	ledgers   map[uuid.UUID]caixa.Ledger
	txs       map[uuid.UUID]caixa.Transaction
	cards     map[uuid.UUID]caixa.Card
	contracts map[uuid.UUID]caixa.Contract
	// One anchor per ledger; replaced wholesale on rebase.
	anchors map[uuid.UUID]caixa.OpeningBalance
	// Idempotency: key -> transaction id
	txIdem map[string]uuid.UUID
	// Sorted index of transactions for ordered scans.
	txKeys []txKey
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{
		ledgers:   make(map[uuid.UUID]caixa.Ledger),
		txs:       make(map[uuid.UUID]caixa.Transaction),
		cards:     make(map[uuid.UUID]caixa.Card),
		contracts: make(map[uuid.UUID]caixa.Contract),
		anchors:   make(map[uuid.UUID]caixa.OpeningBalance),
		txIdem:    make(map[string]uuid.UUID),
	}
}

// Seed helpers for local dev/tests.
func (s *Store) SeedLedger(l caixa.Ledger) { s.mu.Lock(); s.ledgers[l.ID] = l; s.mu.Unlock() }
func (s *Store) SeedCard(c caixa.Card)     { s.mu.Lock(); s.cards[c.ID] = c; s.mu.Unlock() }
func (s *Store) SeedContract(c caixa.Contract) {
	s.mu.Lock()
	s.contracts[c.ID] = c
	s.mu.Unlock()
}
func (s *Store) SeedTransaction(t caixa.Transaction) {
	s.mu.Lock()
	s.txs[t.ID] = t
	s.insertTxIndexLocked(txKey{Date: t.Date, ID: t.ID})
	s.mu.Unlock()
}
func (s *Store) SeedOpeningBalance(ob caixa.OpeningBalance) {
	s.mu.Lock()
	s.anchors[ob.LedgerID] = ob
	s.mu.Unlock()
}

// Reset drops all data; used between tests.
func (s *Store) Reset() {
	s.mu.Lock()
	s.ledgers = map[uuid.UUID]caixa.Ledger{}
	s.txs = map[uuid.UUID]caixa.Transaction{}
	s.cards = map[uuid.UUID]caixa.Card{}
	s.contracts = map[uuid.UUID]caixa.Contract{}
	s.anchors = map[uuid.UUID]caixa.OpeningBalance{}
	s.txIdem = map[string]uuid.UUID{}
	s.txKeys = nil
	s.mu.Unlock()
}

// --- Ledgers ---

func (s *Store) CreateLedger(_ context.Context, l caixa.Ledger) (caixa.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgers[l.ID] = l
	return l, nil
}

func (s *Store) ListLedgers(_ context.Context) ([]caixa.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]caixa.Ledger, 0, len(s.ledgers))
	for _, l := range s.ledgers {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetLedger(_ context.Context, id uuid.UUID) (caixa.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.ledgers[id]
	if !ok {
		return caixa.Ledger{}, errs.ErrNotFound
	}
	return l, nil
}

// --- Transactions ---

func (s *Store) CreateTransaction(_ context.Context, t caixa.Transaction) (caixa.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs[t.ID] = t
	s.insertTxIndexLocked(txKey{Date: t.Date, ID: t.ID})
	return t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t caixa.Transaction) (caixa.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.txs[t.ID]
	if !ok {
		return caixa.Transaction{}, errs.ErrNotFound
	}
	if !old.Date.Equal(t.Date) {
		s.removeTxIndexLocked(t.ID)
		s.insertTxIndexLocked(txKey{Date: t.Date, ID: t.ID})
	}
	s.txs[t.ID] = t
	return t, nil
}

func (s *Store) GetTransaction(_ context.Context, id uuid.UUID) (caixa.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.txs[id]
	if !ok {
		return caixa.Transaction{}, errs.ErrNotFound
	}
	return t, nil
}

func (s *Store) ListTransactions(_ context.Context) ([]caixa.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]caixa.Transaction, 0, len(s.txKeys))
	for _, k := range s.txKeys {
		if t, ok := s.txs[k.ID]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[id]; !ok {
		return errs.ErrNotFound
	}
	delete(s.txs, id)
	s.removeTxIndexLocked(id)
	return nil
}

func (s *Store) DeleteTransactionsByRecurrence(_ context.Context, recurrenceID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, t := range s.txs {
		if t.RecurrenceID == recurrenceID {
			delete(s.txs, id)
			s.removeTxIndexLocked(id)
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteTransactionsByContract(_ context.Context, contractID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, t := range s.txs {
		if t.ContractID == contractID {
			delete(s.txs, id)
			s.removeTxIndexLocked(id)
			n++
		}
	}
	return n, nil
}

// --- Cards ---

func (s *Store) CreateCard(_ context.Context, c caixa.Card) (caixa.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCard(_ context.Context, c caixa.Card) (caixa.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[c.ID]; !ok {
		return caixa.Card{}, errs.ErrNotFound
	}
	s.cards[c.ID] = c
	return c, nil
}

func (s *Store) GetCard(_ context.Context, id uuid.UUID) (caixa.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[id]
	if !ok {
		return caixa.Card{}, errs.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCards(_ context.Context) ([]caixa.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]caixa.Card, 0, len(s.cards))
	for _, c := range s.cards {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteCard removes only the card; its transactions stay behind as
// unattributable residue, matching the non-cascading delete semantics.
func (s *Store) DeleteCard(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[id]; !ok {
		return errs.ErrNotFound
	}
	delete(s.cards, id)
	return nil
}

// --- Contracts ---

func (s *Store) CreateContract(_ context.Context, c caixa.Contract) (caixa.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contracts[c.ID] = c
	return c, nil
}

func (s *Store) UpdateContract(_ context.Context, c caixa.Contract) (caixa.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contracts[c.ID]; !ok {
		return caixa.Contract{}, errs.ErrNotFound
	}
	s.contracts[c.ID] = c
	return c, nil
}

func (s *Store) GetContract(_ context.Context, id uuid.UUID) (caixa.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contracts[id]
	if !ok {
		return caixa.Contract{}, errs.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListContracts(_ context.Context) ([]caixa.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]caixa.Contract, 0, len(s.contracts))
	for _, c := range s.contracts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) DeleteContract(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contracts[id]; !ok {
		return errs.ErrNotFound
	}
	delete(s.contracts, id)
	return nil
}

// --- Idempotency ---

// GetTransactionByIdempotencyKey resolves a transaction by idempotency key.
// A key pointing at a deleted transaction reads as a miss.
func (s *Store) GetTransactionByIdempotencyKey(_ context.Context, key string) (caixa.Transaction, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.txIdem[key]; ok {
		if t, ok2 := s.txs[id]; ok2 {
			return t, true, nil
		}
	}
	return caixa.Transaction{}, false, nil
}

// SaveIdempotencyKey stores a key mapping for a transaction.
func (s *Store) SaveIdempotencyKey(_ context.Context, key string, txID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Only set if absent to preserve idempotency
	if _, exists := s.txIdem[key]; !exists {
		s.txIdem[key] = txID
	}
	return nil
}

// --- Opening balances ---

func (s *Store) ReplaceOpeningBalance(_ context.Context, ob caixa.OpeningBalance) (caixa.OpeningBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anchors[ob.LedgerID] = ob
	return ob, nil
}

func (s *Store) GetOpeningBalance(_ context.Context, ledgerID uuid.UUID) (caixa.OpeningBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ob, ok := s.anchors[ledgerID]
	if !ok {
		return caixa.OpeningBalance{}, errs.ErrNotFound
	}
	return ob, nil
}

func (s *Store) ListOpeningBalances(_ context.Context) ([]caixa.OpeningBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]caixa.OpeningBalance, 0, len(s.anchors))
	for _, ob := range s.anchors {
		out = append(out, ob)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LedgerID.String() < out[j].LedgerID.String()
	})
	return out, nil
}

// insertTxIndexLocked inserts k into the sorted index, keeping order asc by
// (Date, ID). Caller must hold s.mu (write lock).
func (s *Store) insertTxIndexLocked(k txKey) {
	i := sort.Search(len(s.txKeys), func(i int) bool {
		if s.txKeys[i].Date.After(k.Date) {
			return true
		}
		if s.txKeys[i].Date.Equal(k.Date) {
			return s.txKeys[i].ID.String() > k.ID.String()
		}
		return false
	})
	if i == len(s.txKeys) {
		s.txKeys = append(s.txKeys, k)
		return
	}
	s.txKeys = append(s.txKeys, txKey{})
	copy(s.txKeys[i+1:], s.txKeys[i:])
	s.txKeys[i] = k
}

// removeTxIndexLocked drops id from the index. Caller must hold s.mu.
func (s *Store) removeTxIndexLocked(id uuid.UUID) {
	for i, k := range s.txKeys {
		if k.ID == id {
			s.txKeys = append(s.txKeys[:i], s.txKeys[i+1:]...)
			return
		}
	}
}
