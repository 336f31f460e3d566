package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"certiflash/internal/domain"
	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
)

// NotifyChannel carries the key of every ledger document written.
const NotifyChannel = "certiflash_ledger"

const upsertLedgerSQL = `
WITH up AS (
	INSERT INTO documents (key, data, updated_at) VALUES ($1, $2, now())
	ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	RETURNING key
)
SELECT pg_notify('` + NotifyChannel + `', key) FROM up`

var errNoWatchers = errors.New("no ledger watchers left")

// DocumentStore keeps ledger and catalog documents as JSONB rows keyed by
// document path. A single LISTEN connection is shared by all watchers and is
// opened on the first WatchLedger call. When that connection drops it is
// re-established with exponential backoff for as long as watchers remain,
// and every watched ledger is reloaded once the channel is listened to again.
type DocumentStore struct {
	pool  *pgxpool.Pool
	appID string
	log   *zap.Logger

	ctx  context.Context
	stop context.CancelFunc

	mu        sync.Mutex
	listening bool
	watchers  map[string]map[chan domain.Ledger]struct{}
}

func NewDocumentStore(pool *pgxpool.Pool, appID string, log *zap.Logger) *DocumentStore {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, stop := context.WithCancel(context.Background())
	return &DocumentStore{
		pool:     pool,
		appID:    appID,
		log:      log,
		ctx:      ctx,
		stop:     stop,
		watchers: make(map[string]map[chan domain.Ledger]struct{}),
	}
}

// Close stops the shared listener. The pool is owned by the caller.
func (s *DocumentStore) Close() {
	s.stop()
}

func (s *DocumentStore) LoadLedger(ctx context.Context, userID string) (domain.Ledger, error) {
	raw, err := s.load(ctx, domain.LedgerKey(s.appID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Ledger{}, domain.ErrLedgerNotFound
	}
	if err != nil {
		return domain.Ledger{}, fmt.Errorf("load ledger: %w", err)
	}
	return domain.DecodeLedger(raw)
}

func (s *DocumentStore) SaveLedger(ctx context.Context, userID string, ledger domain.Ledger) error {
	raw, err := domain.EncodeLedger(ledger)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, upsertLedgerSQL, domain.LedgerKey(s.appID, userID), raw); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

func (s *DocumentStore) WatchLedger(_ context.Context, userID string) (<-chan domain.Ledger, func(), error) {
	key := domain.LedgerKey(s.appID, userID)
	ch := make(chan domain.Ledger, 8)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.listening {
		conn, err := s.subscribe(s.ctx)
		if err != nil {
			return nil, nil, err
		}
		s.listening = true
		go s.listen(conn)
	}
	if s.watchers[key] == nil {
		s.watchers[key] = make(map[chan domain.Ledger]struct{})
	}
	s.watchers[key][ch] = struct{}{}

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.watchers[key][ch]; ok {
			delete(s.watchers[key], ch)
			if len(s.watchers[key]) == 0 {
				delete(s.watchers, key)
			}
			close(ch)
		}
	}
	return ch, cancel, nil
}

func (s *DocumentStore) LoadCatalog(ctx context.Context) (domain.Catalog, error) {
	raw, err := s.load(ctx, domain.CatalogKey(s.appID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Catalog{}, domain.ErrCatalogNotFound
	}
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("load catalog: %w", err)
	}
	return domain.DecodeCatalog(raw)
}

func (s *DocumentStore) SaveCatalogIfAbsent(ctx context.Context, catalog domain.Catalog, now time.Time) (bool, error) {
	raw, err := domain.EncodeCatalog(catalog, now)
	if err != nil {
		return false, err
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO documents (key, data, updated_at) VALUES ($1, $2, $3) ON CONFLICT (key) DO NOTHING`,
		domain.CatalogKey(s.appID), raw, now.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("seed catalog: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *DocumentStore) load(ctx context.Context, key string) ([]byte, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM documents WHERE key = $1`, key).Scan(&raw)
	return raw, err
}

func (s *DocumentStore) subscribe(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listener: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen: %w", err)
	}
	return conn, nil
}

func (s *DocumentStore) listen(conn *pgxpool.Conn) {
	for {
		err := s.receive(conn)
		conn.Release()
		if s.ctx.Err() != nil {
			s.stopListening()
			return
		}
		s.log.Warn("ledger listener lost, reconnecting", zap.Error(err))
		if conn = s.resubscribe(); conn == nil {
			return
		}
		s.log.Info("ledger listener reconnected")
		s.resync()
	}
}

// receive dispatches notifications until the connection fails.
func (s *DocumentStore) receive(conn *pgxpool.Conn) error {
	for {
		n, err := conn.Conn().WaitForNotification(s.ctx)
		if err != nil {
			return err
		}
		if s.watched(n.Payload) {
			s.reload(n.Payload)
		}
	}
}

// resubscribe retries the LISTEN until it succeeds, the store is closed or
// the last watcher goes away. A nil connection means the listener is done.
func (s *DocumentStore) resubscribe() *pgxpool.Conn {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 0

	var conn *pgxpool.Conn
	op := func() error {
		s.mu.Lock()
		if len(s.watchers) == 0 {
			s.listening = false
			s.mu.Unlock()
			return backoff.Permanent(errNoWatchers)
		}
		s.mu.Unlock()
		c, err := s.subscribe(s.ctx)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}
	notify := func(err error, wait time.Duration) {
		s.log.Warn("ledger listener retry", zap.Duration("wait", wait), zap.Error(err))
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, s.ctx), notify); err != nil {
		if !errors.Is(err, errNoWatchers) {
			s.stopListening()
		}
		return nil
	}
	return conn
}

// resync reloads every watched ledger so writes made while the listener was
// down still reach the watchers.
func (s *DocumentStore) resync() {
	s.mu.Lock()
	keys := make([]string, 0, len(s.watchers))
	for key := range s.watchers {
		keys = append(keys, key)
	}
	s.mu.Unlock()
	for _, key := range keys {
		s.reload(key)
	}
}

func (s *DocumentStore) reload(key string) {
	raw, err := s.load(s.ctx, key)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.log.Warn("reload notified ledger", zap.String("key", key), zap.Error(err))
		}
		return
	}
	ledger, err := domain.DecodeLedger(raw)
	if err != nil {
		s.log.Warn("bad ledger document", zap.String("key", key), zap.Error(err))
		return
	}
	s.broadcast(key, ledger)
}

func (s *DocumentStore) stopListening() {
	s.mu.Lock()
	s.listening = false
	s.mu.Unlock()
}

func (s *DocumentStore) watched(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers[key]) > 0
}

func (s *DocumentStore) broadcast(key string, ledger domain.Ledger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.watchers[key] {
		update := ledger.Clone()
		select {
		case ch <- update:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- update
		}
	}
}
