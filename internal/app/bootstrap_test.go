package app

import (
	"context"
	"testing"

	"certiflash/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSeedCatalogWritesOnce(t *testing.T) {
	store := newFakeStore()
	catalog := testCatalog(t)

	written, err := SeedCatalog(context.Background(), store, catalog, fixedNow, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, written)

	other, err := domain.NewCatalog([]domain.Module{{ID: "other"}}, nil)
	require.NoError(t, err)
	written, err = SeedCatalog(context.Background(), store, other, fixedNow, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, written)

	loaded := LoadCatalog(context.Background(), store, other, fixedNow, zap.NewNop())
	assert.Equal(t, catalog.Len(), loaded.Len())
}

func TestLoadCatalogFallsBack(t *testing.T) {
	store := newFakeStore()
	store.failSave = true
	fallback := testCatalog(t)

	got := LoadCatalog(context.Background(), store, fallback, fixedNow, zap.NewNop())
	assert.Equal(t, fallback.Len(), got.Len())

	store.failSave = false
	store.failLoad = true
	got, err := NewCatalogSource(store, fallback, nil).LoadCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fallback.Len(), got.Len())
}

func TestOpenLedgerCreatesStarterLedger(t *testing.T) {
	store := newFakeStore()

	ledger, persistent := OpenLedger(context.Background(), store, "u1", fixedNow, zap.NewNop())
	assert.True(t, persistent)
	assert.Equal(t, domain.NewLedger(fixedNow), ledger)

	stored, writes, ok := store.stored("u1")
	require.True(t, ok)
	assert.Equal(t, 1, writes)
	assert.Equal(t, domain.StarterTokens, stored.Tokens)
}

func TestOpenLedgerReturnsExisting(t *testing.T) {
	store := newFakeStore()
	existing := domain.NewLedger(fixedNow)
	existing.XP = 220
	require.NoError(t, store.SaveLedger(context.Background(), "u1", existing))

	ledger, persistent := OpenLedger(context.Background(), store, "u1", fixedNow, zap.NewNop())
	assert.True(t, persistent)
	assert.Equal(t, 220, ledger.XP)

	_, writes, _ := store.stored("u1")
	assert.Equal(t, 1, writes, "existing ledger is not rewritten")
}

func TestOpenLedgerDegradesWhenStoreUnreachable(t *testing.T) {
	store := newFakeStore()
	store.failLoad = true

	ledger, persistent := OpenLedger(context.Background(), store, "u1", fixedNow, zap.NewNop())
	assert.False(t, persistent)
	assert.Equal(t, 0, ledger.XP)
	assert.Equal(t, domain.StarterTokens, ledger.Tokens)

	_, writes, ok := store.stored("u1")
	assert.False(t, ok)
	assert.Zero(t, writes)
}
