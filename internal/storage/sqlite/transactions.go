package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sahajch/tillsync/internal/models"
)

// Enqueue appends a pending transaction to the queue. The caller-supplied
// timestamp is stored as-is; unlike cache records, queued sales are never
// restamped.
func (s *SQLiteStore) Enqueue(ctx context.Context, tx *models.PendingTransaction) (int64, error) {
	if tx.Status == "" {
		tx.Status = models.TxPending
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO offline_transactions (payload, auth_token, timestamp, status, retry_count)
		 VALUES (?, ?, ?, ?, ?)`,
		[]byte(tx.Payload), tx.AuthToken, tx.Timestamp.UTC().Format(time.RFC3339Nano), string(tx.Status), tx.RetryCount,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read enqueued id: %w", err)
	}
	tx.ID = id
	return id, nil
}

// ListTransactions returns every queued transaction in enqueue order,
// pending and failed alike; both are re-attempted on every sync pass.
func (s *SQLiteStore) ListTransactions(ctx context.Context) ([]models.PendingTransaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payload, auth_token, timestamp, status, retry_count
		 FROM offline_transactions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txs := []models.PendingTransaction{}
	for rows.Next() {
		var tx models.PendingTransaction
		var payload []byte
		var ts, status string
		if err := rows.Scan(&tx.ID, &payload, &tx.AuthToken, &ts, &status, &tx.RetryCount); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Payload = payload
		tx.Status = models.TxStatus(status)
		tx.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("invalid transaction timestamp %q: %w", ts, err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txs, nil
}

// MarkFailed flags a transaction after a failed submission attempt. The
// record stays in the queue; failure is never silently terminal.
func (s *SQLiteStore) MarkFailed(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE offline_transactions SET status = ?, retry_count = retry_count + 1 WHERE id = ?`,
		string(models.TxFailed), id)
	if err != nil {
		return fmt.Errorf("failed to mark transaction %d failed: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of transaction %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %d not found", id)
	}
	return nil
}

// RemoveTransaction deletes a confirmed-synced or operator-discarded record.
func (s *SQLiteStore) RemoveTransaction(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM offline_transactions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to remove transaction %d: %w", id, err)
	}
	return nil
}

// TransactionCount returns the number of queued transactions.
func (s *SQLiteStore) TransactionCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM offline_transactions").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}
