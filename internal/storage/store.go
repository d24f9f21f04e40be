// Package storage provides abstractions for the durable local store.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sahajch/tillsync/internal/models"
)

// ErrStorageUnavailable indicates the underlying persistence layer is absent
// or cannot be opened. Callers treat the whole offline subsystem as disabled
// rather than crashing; reads degrade to empty results.
var ErrStorageUnavailable = errors.New("local storage unavailable")

// Store defines the durable local persistence surface: cached read models,
// the pending-transaction queue and settings. The store's transaction
// isolation is the concurrency boundary between the checkout path (enqueue)
// and the sync coordinator (remove / mark failed); no separate lock exists.
//
// This abstraction allows swapping storage backends without changing the
// pipeline, and makes degraded no-op stores possible when persistence is
// unavailable.
type Store interface {
	// Put upserts a cache record by its collection key, stamping
	// LastUpdated with the current time before writing.
	Put(ctx context.Context, collection string, rec *models.CacheRecord) error

	// ReplaceAll clears a collection and bulk-writes the given records in
	// one transaction. This is the wholesale replace used by cache refresh.
	ReplaceAll(ctx context.Context, collection string, recs []models.CacheRecord) error

	// GetAll returns every record in a collection, newest first by
	// LastUpdated. An empty collection yields an empty slice, not an error.
	GetAll(ctx context.Context, collection string) ([]models.CacheRecord, error)

	// GetByID returns the record with the given key, or nil if absent.
	// "Not found" is never an error.
	GetByID(ctx context.Context, collection, id string) (*models.CacheRecord, error)

	// Delete removes one record. Deleting an absent key is a no-op.
	Delete(ctx context.Context, collection, id string) error

	// Clear removes every record in a collection.
	Clear(ctx context.Context, collection string) error

	// PurgeOlderThan deletes cache records whose LastUpdated is before the
	// cutoff, bounding storage growth. Returns the number deleted.
	PurgeOlderThan(ctx context.Context, collection string, cutoff time.Time) (int64, error)

	// Enqueue appends a pending transaction and returns its local id.
	// The caller-supplied timestamp is written as-is, never restamped.
	Enqueue(ctx context.Context, tx *models.PendingTransaction) (int64, error)

	// ListTransactions returns all queued transactions in enqueue order,
	// regardless of status.
	ListTransactions(ctx context.Context) ([]models.PendingTransaction, error)

	// MarkFailed sets a transaction's status to failed and increments its
	// retry count.
	MarkFailed(ctx context.Context, id int64) error

	// RemoveTransaction deletes a confirmed-synced (or discarded) record.
	RemoveTransaction(ctx context.Context, id int64) error

	// TransactionCount returns the number of queued transactions.
	TransactionCount(ctx context.Context) (int, error)

	// SetSetting upserts a key→value setting.
	SetSetting(ctx context.Context, key, value string) error

	// GetSetting returns a setting value, or "" if the key is absent.
	GetSetting(ctx context.Context, key string) (string, error)

	// Close releases any resources held by the store.
	Close() error
}
