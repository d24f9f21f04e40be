package sqlite

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sahajch/tillsync/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "tillsync-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := Open(filepath.Join(tempDir, "test.db"), 1)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCacheRecords(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("Put stamps lastUpdated and upserts", func(t *testing.T) {
		rec := &models.CacheRecord{ID: "p1", Data: json.RawMessage(`{"name":"Charger","price":450}`)}
		if err := store.Put(ctx, models.CollectionProducts, rec); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if rec.LastUpdated.IsZero() {
			t.Error("expected LastUpdated to be stamped")
		}

		// Upsert overwrites wholesale
		updated := &models.CacheRecord{ID: "p1", Data: json.RawMessage(`{"name":"Charger","price":500}`)}
		if err := store.Put(ctx, models.CollectionProducts, updated); err != nil {
			t.Fatalf("Put (upsert) failed: %v", err)
		}

		got, err := store.GetByID(ctx, models.CollectionProducts, "p1")
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if got == nil {
			t.Fatal("expected record, got nil")
		}
		if string(got.Data) != `{"name":"Charger","price":500}` {
			t.Errorf("data not overwritten: %s", got.Data)
		}
	})

	t.Run("GetByID returns nil for missing key", func(t *testing.T) {
		got, err := store.GetByID(ctx, models.CollectionProducts, "nope")
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil for missing key, got %+v", got)
		}
	})

	t.Run("GetAll on empty collection returns empty slice", func(t *testing.T) {
		recs, err := store.GetAll(ctx, models.CollectionCustomers)
		if err != nil {
			t.Fatalf("GetAll failed: %v", err)
		}
		if len(recs) != 0 {
			t.Errorf("expected empty, got %d records", len(recs))
		}
	})

	t.Run("ReplaceAll swaps the collection wholesale", func(t *testing.T) {
		seed := []models.CacheRecord{
			{ID: "c1", Data: json.RawMessage(`{"name":"Asha"}`)},
			{ID: "c2", Data: json.RawMessage(`{"name":"Ravi"}`)},
		}
		if err := store.ReplaceAll(ctx, models.CollectionCustomers, seed); err != nil {
			t.Fatalf("ReplaceAll failed: %v", err)
		}

		replacement := []models.CacheRecord{{ID: "c3", Data: json.RawMessage(`{"name":"Meera"}`)}}
		if err := store.ReplaceAll(ctx, models.CollectionCustomers, replacement); err != nil {
			t.Fatalf("ReplaceAll failed: %v", err)
		}

		recs, err := store.GetAll(ctx, models.CollectionCustomers)
		if err != nil {
			t.Fatalf("GetAll failed: %v", err)
		}
		if len(recs) != 1 || recs[0].ID != "c3" {
			t.Errorf("expected only c3 after replace, got %+v", recs)
		}
	})

	t.Run("Delete and Clear", func(t *testing.T) {
		store.Put(ctx, models.CollectionBills, &models.CacheRecord{ID: "b1", Data: json.RawMessage(`{}`)})
		store.Put(ctx, models.CollectionBills, &models.CacheRecord{ID: "b2", Data: json.RawMessage(`{}`)})

		if err := store.Delete(ctx, models.CollectionBills, "b1"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		// Absent key is a no-op
		if err := store.Delete(ctx, models.CollectionBills, "b1"); err != nil {
			t.Fatalf("Delete of absent key failed: %v", err)
		}
		if err := store.Clear(ctx, models.CollectionBills); err != nil {
			t.Fatalf("Clear failed: %v", err)
		}
		recs, _ := store.GetAll(ctx, models.CollectionBills)
		if len(recs) != 0 {
			t.Errorf("expected empty bills after clear, got %d", len(recs))
		}
	})

	t.Run("unknown collection is rejected", func(t *testing.T) {
		if err := store.Put(ctx, "users; DROP TABLE products", &models.CacheRecord{ID: "x"}); err == nil {
			t.Error("expected error for unknown collection")
		}
	})
}

func TestPurgeOlderThan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Put(ctx, models.CollectionProducts, &models.CacheRecord{ID: "old", Data: json.RawMessage(`{}`)})
	store.Put(ctx, models.CollectionProducts, &models.CacheRecord{ID: "fresh", Data: json.RawMessage(`{}`)})

	// Backdate one record past the retention window
	_, err := store.db.Exec("UPDATE products SET last_updated = ? WHERE id = ?",
		time.Now().UTC().AddDate(0, 0, -8).Format(time.RFC3339Nano), "old")
	if err != nil {
		t.Fatalf("backdate failed: %v", err)
	}

	n, err := store.PurgeOlderThan(ctx, models.CollectionProducts, time.Now().UTC().AddDate(0, 0, -7))
	if err != nil {
		t.Fatalf("PurgeOlderThan failed: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d records, want 1", n)
	}

	recs, _ := store.GetAll(ctx, models.CollectionProducts)
	if len(recs) != 1 || recs[0].ID != "fresh" {
		t.Errorf("expected only fresh record to survive, got %+v", recs)
	}
}

func TestTransactionQueue(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("Enqueue assigns monotonic ids and keeps caller timestamp", func(t *testing.T) {
		ts := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
		first := &models.PendingTransaction{
			Payload:   json.RawMessage(`{"grandTotal":118}`),
			AuthToken: "tok-1",
			Timestamp: ts,
		}
		id1, err := store.Enqueue(ctx, first)
		if err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		id2, err := store.Enqueue(ctx, &models.PendingTransaction{
			Payload: json.RawMessage(`{}`), AuthToken: "tok-2", Timestamp: ts.Add(time.Minute),
		})
		if err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		if id2 <= id1 {
			t.Errorf("ids not increasing: %d then %d", id1, id2)
		}

		txs, err := store.ListTransactions(ctx)
		if err != nil {
			t.Fatalf("ListTransactions failed: %v", err)
		}
		if len(txs) != 2 {
			t.Fatalf("expected 2 transactions, got %d", len(txs))
		}
		if txs[0].Status != models.TxPending || txs[0].RetryCount != 0 {
			t.Errorf("new transaction not pending/0: %+v", txs[0])
		}
		if !txs[0].Timestamp.Equal(ts) {
			t.Errorf("timestamp restamped: got %v, want %v", txs[0].Timestamp, ts)
		}
		if txs[0].AuthToken != "tok-1" {
			t.Errorf("auth token not preserved: %q", txs[0].AuthToken)
		}
	})

	t.Run("MarkFailed increments retry count and retains record", func(t *testing.T) {
		txs, _ := store.ListTransactions(ctx)
		id := txs[0].ID

		if err := store.MarkFailed(ctx, id); err != nil {
			t.Fatalf("MarkFailed failed: %v", err)
		}
		if err := store.MarkFailed(ctx, id); err != nil {
			t.Fatalf("MarkFailed failed: %v", err)
		}

		txs, _ = store.ListTransactions(ctx)
		if txs[0].Status != models.TxFailed {
			t.Errorf("status = %s, want failed", txs[0].Status)
		}
		if txs[0].RetryCount != 2 {
			t.Errorf("retry count = %d, want 2", txs[0].RetryCount)
		}
	})

	t.Run("RemoveTransaction deletes and Count reflects it", func(t *testing.T) {
		txs, _ := store.ListTransactions(ctx)
		for _, tx := range txs {
			if err := store.RemoveTransaction(ctx, tx.ID); err != nil {
				t.Fatalf("RemoveTransaction failed: %v", err)
			}
		}
		n, err := store.TransactionCount(ctx)
		if err != nil {
			t.Fatalf("TransactionCount failed: %v", err)
		}
		if n != 0 {
			t.Errorf("count = %d, want 0", n)
		}
	})
}

func TestSettings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SetSetting(ctx, "dashboardStats", `{"revenue":12500}`); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	if err := store.SetSetting(ctx, "dashboardStats", `{"revenue":13000}`); err != nil {
		t.Fatalf("SetSetting (upsert) failed: %v", err)
	}

	got, err := store.GetSetting(ctx, "dashboardStats")
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if got != `{"revenue":13000}` {
		t.Errorf("value = %q, want upserted value", got)
	}

	missing, err := store.GetSetting(ctx, "nope")
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if missing != "" {
		t.Errorf("missing key = %q, want empty", missing)
	}
}

func TestOpenIsIdempotentAcrossVersions(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "tillsync-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)
	dbPath := filepath.Join(tempDir, "test.db")

	store, err := Open(dbPath, 1)
	if err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	ctx := context.Background()
	store.Put(ctx, models.CollectionProducts, &models.CacheRecord{ID: "p1", Data: json.RawMessage(`{}`)})
	store.Close()

	// A version bump re-runs idempotent creation without touching data.
	store, err = Open(dbPath, 2)
	if err != nil {
		t.Fatalf("reopen at higher version failed: %v", err)
	}
	defer store.Close()

	rec, err := store.GetByID(ctx, models.CollectionProducts, "p1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if rec == nil {
		t.Error("existing data lost across version bump")
	}
}
