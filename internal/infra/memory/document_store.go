package memory

import (
	"context"
	"sync"
	"time"

	"certiflash/internal/domain"
)

// DocumentStore is an in-memory implementation of app.LedgerStore and
// app.CatalogStore. Documents are kept in their serialized form so reads go
// through the same validation as the remote stores.
type DocumentStore struct {
	appID string

	mu       sync.RWMutex
	docs     map[string][]byte
	watchers map[string]map[chan domain.Ledger]struct{}
}

func NewDocumentStore(appID string) *DocumentStore {
	return &DocumentStore{
		appID:    appID,
		docs:     make(map[string][]byte),
		watchers: make(map[string]map[chan domain.Ledger]struct{}),
	}
}

func (s *DocumentStore) LoadLedger(_ context.Context, userID string) (domain.Ledger, error) {
	s.mu.RLock()
	raw, ok := s.docs[domain.LedgerKey(s.appID, userID)]
	s.mu.RUnlock()
	if !ok {
		return domain.Ledger{}, domain.ErrLedgerNotFound
	}
	return domain.DecodeLedger(raw)
}

func (s *DocumentStore) SaveLedger(_ context.Context, userID string, ledger domain.Ledger) error {
	raw, err := domain.EncodeLedger(ledger)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[domain.LedgerKey(s.appID, userID)] = raw
	s.broadcastLocked(userID, ledger)
	return nil
}

// WatchLedger delivers every ledger saved for userID after the call.
func (s *DocumentStore) WatchLedger(_ context.Context, userID string) (<-chan domain.Ledger, func(), error) {
	ch := make(chan domain.Ledger, 8)

	s.mu.Lock()
	if s.watchers[userID] == nil {
		s.watchers[userID] = make(map[chan domain.Ledger]struct{})
	}
	s.watchers[userID][ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.watchers[userID][ch]; ok {
			delete(s.watchers[userID], ch)
			if len(s.watchers[userID]) == 0 {
				delete(s.watchers, userID)
			}
			close(ch)
		}
	}
	return ch, cancel, nil
}

func (s *DocumentStore) LoadCatalog(_ context.Context) (domain.Catalog, error) {
	s.mu.RLock()
	raw, ok := s.docs[domain.CatalogKey(s.appID)]
	s.mu.RUnlock()
	if !ok {
		return domain.Catalog{}, domain.ErrCatalogNotFound
	}
	return domain.DecodeCatalog(raw)
}

func (s *DocumentStore) SaveCatalogIfAbsent(_ context.Context, catalog domain.Catalog, now time.Time) (bool, error) {
	key := domain.CatalogKey(s.appID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[key]; ok {
		return false, nil
	}
	raw, err := domain.EncodeCatalog(catalog, now)
	if err != nil {
		return false, err
	}
	s.docs[key] = raw
	return true, nil
}

// Document returns the raw stored bytes for key.
func (s *DocumentStore) Document(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.docs[key]
	return append([]byte(nil), raw...), ok
}

func (s *DocumentStore) broadcastLocked(userID string, ledger domain.Ledger) {
	for ch := range s.watchers[userID] {
		update := ledger.Clone()
		select {
		case ch <- update:
		default:
			// Slow watcher: drop its oldest update so the newest always lands.
			select {
			case <-ch:
			default:
			}
			ch <- update
		}
	}
}
