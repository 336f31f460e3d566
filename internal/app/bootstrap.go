package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"certiflash/internal/domain"
	"go.uber.org/zap"
)

// SeedCatalog writes catalog to the store unless a catalog document already exists.
func SeedCatalog(ctx context.Context, store CatalogStore, catalog domain.Catalog, now time.Time, log *zap.Logger) (bool, error) {
	written, err := store.SaveCatalogIfAbsent(ctx, catalog, now)
	if err != nil {
		return false, fmt.Errorf("seed catalog: %w", err)
	}
	if written {
		log.Info("initial catalog content stored",
			zap.Int("modules", len(catalog.Modules())),
			zap.Int("questions", catalog.Len()),
		)
	}
	return written, nil
}

// LoadCatalog seeds the store if needed and returns the stored catalog. Any
// store failure falls back to the given catalog so the service keeps running.
func LoadCatalog(ctx context.Context, store CatalogStore, fallback domain.Catalog, now time.Time, log *zap.Logger) domain.Catalog {
	if _, err := SeedCatalog(ctx, store, fallback, now, log); err != nil {
		log.Warn("catalog seeding failed; using built-in content", zap.Error(err))
		return fallback
	}
	catalog, err := store.LoadCatalog(ctx)
	if err != nil {
		log.Warn("catalog load failed; using built-in content", zap.Error(err))
		return fallback
	}
	return catalog
}

// OpenLedger loads the user's ledger, creating and storing a starter ledger on
// first access. When the store is unreachable it returns a starter ledger with
// persistent=false, and the caller must not write it back over the real document.
func OpenLedger(ctx context.Context, store LedgerStore, userID string, now time.Time, log *zap.Logger) (ledger domain.Ledger, persistent bool) {
	ledger, err := store.LoadLedger(ctx, userID)
	if err == nil {
		return ledger, true
	}
	if !errors.Is(err, domain.ErrLedgerNotFound) {
		log.Warn("ledger load failed; running in memory",
			zap.String("user", userID),
			zap.Error(err),
		)
		return domain.NewLedger(now), false
	}

	ledger = domain.NewLedger(now)
	if err := store.SaveLedger(ctx, userID, ledger); err != nil {
		log.Warn("starter ledger not stored",
			zap.String("user", userID),
			zap.Error(err),
		)
	} else {
		log.Info("ledger created", zap.String("user", userID))
	}
	return ledger, true
}

// CatalogSource loads the catalog for the catalog cache. Every load re-checks
// the seed, so a store that was wiped while the service runs is repopulated.
type CatalogSource struct {
	store    CatalogStore
	fallback domain.Catalog
	log      *zap.Logger
	now      func() time.Time
}

func NewCatalogSource(store CatalogStore, fallback domain.Catalog, log *zap.Logger) *CatalogSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogSource{store: store, fallback: fallback, log: log, now: time.Now}
}

// LoadCatalog never fails; store errors resolve to the built-in catalog.
func (s *CatalogSource) LoadCatalog(ctx context.Context) (domain.Catalog, error) {
	return LoadCatalog(ctx, s.store, s.fallback, s.now(), s.log), nil
}
