// Package queue is the durable FIFO of not-yet-confirmed sales, backed by
// the durable local store.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sahajch/tillsync/internal/models"
	"github.com/sahajch/tillsync/internal/storage"
)

// Queue wraps the store's transaction operations. The store (normally a
// storage.Lazy) opens itself on first use, so enqueue works even when
// nothing else has touched persistence this session.
type Queue struct {
	store storage.Store
}

// New creates a queue on top of the given store.
func New(store storage.Store) *Queue {
	return &Queue{store: store}
}

// Enqueue makes the sale durable and returns its local id. It returns as
// soon as the local write commits and never waits on network activity; this
// is the only checkout path available while offline.
func (q *Queue) Enqueue(ctx context.Context, payload *models.BillPayload, authToken string) (int64, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to encode payload: %w", err)
	}

	tx := &models.PendingTransaction{
		Payload:   raw,
		AuthToken: authToken,
		Timestamp: time.Now().UTC(),
		Status:    models.TxPending,
	}
	id, err := q.store.Enqueue(ctx, tx)
	if err != nil {
		return 0, err
	}
	slog.Info("sale queued for sync", "id", id, "reference", payload.Reference)
	return id, nil
}

// ListPending returns every queued sale regardless of status; failed records
// are re-attempted on every sync pass alongside pending ones.
func (q *Queue) ListPending(ctx context.Context) ([]models.PendingTransaction, error) {
	return q.store.ListTransactions(ctx)
}

// MarkFailed records a failed submission attempt. The record is retained.
func (q *Queue) MarkFailed(ctx context.Context, id int64) error {
	return q.store.MarkFailed(ctx, id)
}

// Remove deletes a confirmed-synced record.
func (q *Queue) Remove(ctx context.Context, id int64) error {
	return q.store.RemoveTransaction(ctx, id)
}

// Discard is an operator-initiated removal of a stuck record, the only way
// a sale leaves the queue other than a confirmed sync.
func (q *Queue) Discard(ctx context.Context, id int64) error {
	slog.Warn("discarding queued sale", "id", id)
	return q.store.RemoveTransaction(ctx, id)
}

// Count returns the number of queued sales, for the pending badge.
func (q *Queue) Count(ctx context.Context) int {
	n, err := q.store.TransactionCount(ctx)
	if err != nil {
		slog.Warn("failed to count queued sales", "error", err)
		return 0
	}
	return n
}
