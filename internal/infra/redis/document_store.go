package redis

import (
	"context"
	"errors"
	"time"

	"certiflash/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DocumentStore keeps ledger and catalog documents as JSON strings under their
// document keys. Every ledger save is also published on the user's channel so
// other instances watching the same ledger see it.
//
//	SET     artifacts/{app}/users/{user}/userData  <json>
//	PUBLISH certiflash:{app}:ledger:{user}         <json>
//	SETNX   artifacts/{app}/public/data/certiFlashContent <json>
type DocumentStore struct {
	client *redis.Client
	appID  string
	log    *zap.Logger
}

func NewDocumentStore(client *redis.Client, appID string, log *zap.Logger) *DocumentStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &DocumentStore{client: client, appID: appID, log: log}
}

func (s *DocumentStore) LoadLedger(ctx context.Context, userID string) (domain.Ledger, error) {
	raw, err := s.client.Get(ctx, domain.LedgerKey(s.appID, userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Ledger{}, domain.ErrLedgerNotFound
	}
	if err != nil {
		return domain.Ledger{}, err
	}
	return domain.DecodeLedger(raw)
}

func (s *DocumentStore) SaveLedger(ctx context.Context, userID string, ledger domain.Ledger) error {
	raw, err := domain.EncodeLedger(ledger)
	if err != nil {
		return err
	}
	pipe := s.client.Pipeline()
	pipe.Set(ctx, domain.LedgerKey(s.appID, userID), raw, 0)
	pipe.Publish(ctx, s.channel(userID), raw)
	_, err = pipe.Exec(ctx)
	return err
}

// WatchLedger subscribes to the user's ledger channel. The subscription is
// confirmed before returning, so saves made afterwards are not missed.
func (s *DocumentStore) WatchLedger(ctx context.Context, userID string) (<-chan domain.Ledger, func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := s.client.Subscribe(ctx, s.channel(userID))
	if _, err := sub.Receive(ctx); err != nil {
		cancel()
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan domain.Ledger, 8)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok || m == nil {
					return
				}
				ledger, err := domain.DecodeLedger([]byte(m.Payload))
				if err != nil {
					s.log.Warn("bad ledger payload", zap.String("user", userID), zap.Error(err))
					continue
				}
				select {
				case out <- ledger:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, cancel, nil
}

func (s *DocumentStore) LoadCatalog(ctx context.Context) (domain.Catalog, error) {
	raw, err := s.client.Get(ctx, domain.CatalogKey(s.appID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Catalog{}, domain.ErrCatalogNotFound
	}
	if err != nil {
		return domain.Catalog{}, err
	}
	return domain.DecodeCatalog(raw)
}

func (s *DocumentStore) SaveCatalogIfAbsent(ctx context.Context, catalog domain.Catalog, now time.Time) (bool, error) {
	raw, err := domain.EncodeCatalog(catalog, now)
	if err != nil {
		return false, err
	}
	return s.client.SetNX(ctx, domain.CatalogKey(s.appID), raw, 0).Result()
}

func (s *DocumentStore) channel(userID string) string {
	return "certiflash:" + s.appID + ":ledger:" + userID
}
