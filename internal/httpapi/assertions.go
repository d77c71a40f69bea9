package httpapi

import (
	"github.com/tmoreira/caixa/internal/storage/memory"
	"github.com/tmoreira/caixa/internal/storage/postgres"
	"github.com/tmoreira/caixa/internal/storage/sqlite"
)

// Compile-time interface assertions for the storage backends against the API store surface.
var (
	_ Store = (*memory.Store)(nil)
	_ Store = (*postgres.Store)(nil)
	_ Store = (*sqlite.Store)(nil)
)
