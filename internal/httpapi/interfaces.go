package httpapi

import (
	"context"

	"github.com/google/uuid"

	"github.com/tmoreira/caixa/internal/caixa"
	"github.com/tmoreira/caixa/internal/service/balance"
	"github.com/tmoreira/caixa/internal/service/ledgerreg"
	"github.com/tmoreira/caixa/internal/service/record"
)

// IdempotencyStore abstracts idempotency key operations for transaction
// creates. A replayed POST carrying a known key resolves to the transaction
// minted by the first attempt.
type IdempotencyStore interface {
	// GetTransactionByIdempotencyKey resolves a transaction by idempotency key.
	// A key whose transaction has since been deleted reads as a miss.
	GetTransactionByIdempotencyKey(ctx context.Context, key string) (caixa.Transaction, bool, error)
	// SaveIdempotencyKey stores an idempotency key mapping for a transaction.
	SaveIdempotencyKey(ctx context.Context, key string, txID uuid.UUID) error
}

// Store bundles the read and write surface the API needs from a backend.
// Every storage implementation satisfies the whole of it.
type Store interface {
	ledgerreg.Repo
	ledgerreg.Writer
	record.Repo
	record.Writer
	balance.Repo
	IdempotencyStore
}
