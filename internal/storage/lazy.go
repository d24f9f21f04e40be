package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sahajch/tillsync/internal/models"
)

// Ensure Lazy implements Store
var _ Store = (*Lazy)(nil)

// Lazy defers opening the underlying store until first use, so an offline
// checkout can enqueue a sale even when nothing else has touched persistence
// this session.
//
// If opening fails, Lazy degrades instead of propagating hard errors: reads
// return empty results, cache writes become logged no-ops, and only Enqueue
// keeps returning the open error so an offline sale is never silently
// dropped.
type Lazy struct {
	open func() (Store, error)

	mu      sync.Mutex
	store   Store
	openErr error
	opened  bool
}

// NewLazy wraps an opener, typically a closure around sqlite.Open.
func NewLazy(open func() (Store, error)) *Lazy {
	return &Lazy{open: open}
}

// ensure opens the store on first call and memoizes the outcome. A failed
// open is not retried within the session; the platform either has working
// persistence or it does not.
func (l *Lazy) ensure() (Store, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.opened {
		l.opened = true
		l.store, l.openErr = l.open()
		if l.openErr != nil {
			l.openErr = fmt.Errorf("%w: %v", ErrStorageUnavailable, l.openErr)
			slog.Warn("local storage unavailable, offline cache disabled", "error", l.openErr)
		}
	}
	return l.store, l.openErr
}

// Available reports whether the underlying store opened successfully,
// forcing the open attempt if it has not happened yet.
func (l *Lazy) Available() bool {
	_, err := l.ensure()
	return err == nil
}

func (l *Lazy) Put(ctx context.Context, collection string, rec *models.CacheRecord) error {
	s, err := l.ensure()
	if err != nil {
		return nil
	}
	if err := s.Put(ctx, collection, rec); err != nil {
		slog.Warn("cache write failed, keeping stale data", "collection", collection, "error", err)
	}
	return nil
}

func (l *Lazy) ReplaceAll(ctx context.Context, collection string, recs []models.CacheRecord) error {
	s, err := l.ensure()
	if err != nil {
		return nil
	}
	if err := s.ReplaceAll(ctx, collection, recs); err != nil {
		slog.Warn("cache replace failed, keeping stale data", "collection", collection, "error", err)
	}
	return nil
}

func (l *Lazy) GetAll(ctx context.Context, collection string) ([]models.CacheRecord, error) {
	s, err := l.ensure()
	if err != nil {
		return []models.CacheRecord{}, nil
	}
	recs, err := s.GetAll(ctx, collection)
	if err != nil {
		slog.Warn("cache read failed, returning empty", "collection", collection, "error", err)
		return []models.CacheRecord{}, nil
	}
	return recs, nil
}

func (l *Lazy) GetByID(ctx context.Context, collection, id string) (*models.CacheRecord, error) {
	s, err := l.ensure()
	if err != nil {
		return nil, nil
	}
	rec, err := s.GetByID(ctx, collection, id)
	if err != nil {
		slog.Warn("cache read failed, returning empty", "collection", collection, "id", id, "error", err)
		return nil, nil
	}
	return rec, nil
}

func (l *Lazy) Delete(ctx context.Context, collection, id string) error {
	s, err := l.ensure()
	if err != nil {
		return nil
	}
	return s.Delete(ctx, collection, id)
}

func (l *Lazy) Clear(ctx context.Context, collection string) error {
	s, err := l.ensure()
	if err != nil {
		return nil
	}
	return s.Clear(ctx, collection)
}

func (l *Lazy) PurgeOlderThan(ctx context.Context, collection string, cutoff time.Time) (int64, error) {
	s, err := l.ensure()
	if err != nil {
		return 0, nil
	}
	return s.PurgeOlderThan(ctx, collection, cutoff)
}

// Enqueue is the one operation that surfaces storage failure: a sale that
// cannot be made durable must fail cleanly rather than vanish.
func (l *Lazy) Enqueue(ctx context.Context, tx *models.PendingTransaction) (int64, error) {
	s, err := l.ensure()
	if err != nil {
		return 0, err
	}
	return s.Enqueue(ctx, tx)
}

func (l *Lazy) ListTransactions(ctx context.Context) ([]models.PendingTransaction, error) {
	s, err := l.ensure()
	if err != nil {
		return []models.PendingTransaction{}, nil
	}
	return s.ListTransactions(ctx)
}

func (l *Lazy) MarkFailed(ctx context.Context, id int64) error {
	s, err := l.ensure()
	if err != nil {
		return err
	}
	return s.MarkFailed(ctx, id)
}

func (l *Lazy) RemoveTransaction(ctx context.Context, id int64) error {
	s, err := l.ensure()
	if err != nil {
		return err
	}
	return s.RemoveTransaction(ctx, id)
}

func (l *Lazy) TransactionCount(ctx context.Context) (int, error) {
	s, err := l.ensure()
	if err != nil {
		return 0, nil
	}
	return s.TransactionCount(ctx)
}

func (l *Lazy) SetSetting(ctx context.Context, key, value string) error {
	s, err := l.ensure()
	if err != nil {
		return nil
	}
	if err := s.SetSetting(ctx, key, value); err != nil {
		slog.Warn("setting write failed", "key", key, "error", err)
	}
	return nil
}

func (l *Lazy) GetSetting(ctx context.Context, key string) (string, error) {
	s, err := l.ensure()
	if err != nil {
		return "", nil
	}
	value, err := s.GetSetting(ctx, key)
	if err != nil {
		slog.Warn("setting read failed, returning empty", "key", key, "error", err)
		return "", nil
	}
	return value, nil
}

func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.store != nil {
		return l.store.Close()
	}
	return nil
}
