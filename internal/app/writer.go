package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"certiflash/internal/domain"
	"go.uber.org/zap"
)

// LedgerWriter persists ledgers in the background. Save never blocks; only the
// latest pending ledger per user is written, since every save is a full overwrite.
// Failed writes are logged and dropped, leaving the in-memory ledger authoritative.
type LedgerWriter struct {
	store   LedgerStore
	log     *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]domain.Ledger
	order   []string
	wake    chan struct{}
}

func NewLedgerWriter(store LedgerStore, log *zap.Logger, timeout time.Duration) *LedgerWriter {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &LedgerWriter{
		store:   store,
		log:     log,
		timeout: timeout,
		pending: make(map[string]domain.Ledger),
		wake:    make(chan struct{}, 1),
	}
}

// Save queues ledger for userID, replacing any not-yet-written version.
func (w *LedgerWriter) Save(userID string, ledger domain.Ledger) {
	w.mu.Lock()
	if _, ok := w.pending[userID]; !ok {
		w.order = append(w.order, userID)
	}
	w.pending[userID] = ledger.Clone()
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run writes queued ledgers until ctx is canceled, then flushes what is left.
func (w *LedgerWriter) Run(ctx context.Context) error {
	for {
		select {
		case <-w.wake:
			w.flush(ctx)
		case <-ctx.Done():
			w.flush(context.Background())
			return nil
		}
	}
}

// Pending reports how many users have unwritten ledgers.
func (w *LedgerWriter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func (w *LedgerWriter) flush(ctx context.Context) {
	for {
		userID, ledger, ok := w.next()
		if !ok {
			return
		}
		if err := w.write(ctx, userID, ledger); err != nil {
			w.log.Warn("ledger write failed; keeping in-memory state",
				zap.String("user", userID),
				zap.Int64("revision", ledger.Revision),
				zap.Error(err),
			)
		}
	}
}

func (w *LedgerWriter) next() (string, domain.Ledger, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.order) == 0 {
		return "", domain.Ledger{}, false
	}
	userID := w.order[0]
	w.order = w.order[1:]
	ledger := w.pending[userID]
	delete(w.pending, userID)
	return userID, ledger, true
}

func (w *LedgerWriter) write(ctx context.Context, userID string, ledger domain.Ledger) error {
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	writeCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	if err := w.store.SaveLedger(writeCtx, userID, ledger); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceWrite, err)
	}
	return nil
}
