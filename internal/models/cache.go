package models

import (
	"encoding/json"
	"time"
)

// Collection names in the durable local store.
// These mirror the remote API's read models one-to-one.
const (
	CollectionProducts  = "products"
	CollectionCustomers = "customers"
	CollectionBills     = "bills"
)

// CacheRecord is a locally cached read-model entity (product, customer or
// bill) keyed by its remote identifier. The pipeline treats the body as an
// opaque JSON document; it is overwritten wholesale on every successful
// remote refresh.
type CacheRecord struct {
	// ID is the remote identifier of the entity.
	ID string

	// Data is the raw JSON document as fetched from the remote API.
	Data json.RawMessage

	// LastUpdated is stamped by the store on every local write.
	LastUpdated time.Time
}

// Setting is a singleton key→value record, e.g. cached aggregate stats.
type Setting struct {
	Key   string
	Value string
}

// SettingSessionToken is the settings key holding the last bearer token
// presented to the API. Background refreshes reuse it.
const SettingSessionToken = "session_token"
