package app

import (
	"context"
	"time"

	"certiflash/internal/domain"
)

// LedgerStore abstracts where user ledgers live (in-memory, Redis, Postgres).
// Saves are full-document overwrites keyed by user id.
type LedgerStore interface {
	LoadLedger(ctx context.Context, userID string) (domain.Ledger, error)
	SaveLedger(ctx context.Context, userID string, ledger domain.Ledger) error
	// WatchLedger streams every stored version of the user's ledger, from any writer.
	// The caller must invoke the returned cancel function to avoid leaks.
	WatchLedger(ctx context.Context, userID string) (<-chan domain.Ledger, func(), error)
}

// CatalogStore holds the shared catalog document.
type CatalogStore interface {
	LoadCatalog(ctx context.Context) (domain.Catalog, error)
	// SaveCatalogIfAbsent writes the catalog only when no document exists and
	// reports whether it wrote.
	SaveCatalogIfAbsent(ctx context.Context, catalog domain.Catalog, now time.Time) (bool, error)
}

// CatalogRepository serves the catalog to request handlers (usually cached).
type CatalogRepository interface {
	GetCatalog(ctx context.Context) (domain.Catalog, error)
}

// LedgerSaver receives every ledger the engine produces. Implementations must not block.
type LedgerSaver interface {
	Save(userID string, ledger domain.Ledger)
}

// DiscardSaver drops ledgers; used when running without persistence.
type DiscardSaver struct{}

func (DiscardSaver) Save(string, domain.Ledger) {}
