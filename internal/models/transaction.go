package models

import (
	"encoding/json"
	"time"
)

// TxStatus is the sync state of a queued offline sale.
type TxStatus string

const (
	// TxPending means the sale has not yet been submitted to the remote API.
	TxPending TxStatus = "pending"

	// TxFailed means at least one submission attempt was rejected or lost.
	// Failed transactions are retried on every sync pass; there is no
	// terminal failure state short of an operator discarding the record.
	TxFailed TxStatus = "failed"
)

// PendingTransaction is one sale attempted while offline (or speculatively
// queued after a direct submission failed in flight). It lives in the store
// from enqueue until the remote API accepts it, at which point it is deleted,
// or until an operator discards it. The sync logic never drops it silently.
type PendingTransaction struct {
	// ID is a locally assigned auto-increment identifier. It is not the
	// remote bill number.
	ID int64

	// Payload is the full settlement payload needed to replay the sale.
	Payload json.RawMessage

	// AuthToken is the bearer credential captured at enqueue time.
	// It is not refreshed later.
	AuthToken string

	// Timestamp is the creation time, supplied at enqueue and never
	// restamped afterwards.
	Timestamp time.Time

	// Status is pending or failed; a synced record is removed, not marked.
	Status TxStatus

	// RetryCount is incremented on every failed submission attempt.
	RetryCount int
}
