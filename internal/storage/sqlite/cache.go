package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sahajch/tillsync/internal/models"
)

// Put upserts a cache record, stamping LastUpdated with the current time.
func (s *SQLiteStore) Put(ctx context.Context, collection string, rec *models.CacheRecord) error {
	table, err := cacheTable(collection)
	if err != nil {
		return err
	}

	rec.LastUpdated = time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, data, last_updated) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET data = excluded.data, last_updated = excluded.last_updated`, table),
		rec.ID, []byte(rec.Data), rec.LastUpdated.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to put %s record: %w", collection, err)
	}
	return nil
}

// ReplaceAll clears the collection and writes the given records in a single
// transaction, so a reader never observes a half-replaced cache.
func (s *SQLiteStore) ReplaceAll(ctx context.Context, collection string, recs []models.CacheRecord) error {
	table, err := cacheTable(collection)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
		return fmt.Errorf("failed to clear %s: %w", collection, err)
	}

	now := time.Now().UTC()
	for i := range recs {
		recs[i].LastUpdated = now
		_, err := tx.ExecContext(ctx,
			fmt.Sprintf("INSERT INTO %s (id, data, last_updated) VALUES (?, ?, ?)", table),
			recs[i].ID, []byte(recs[i].Data), now.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("failed to insert %s record: %w", collection, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetAll returns every record in the collection, newest first.
func (s *SQLiteStore) GetAll(ctx context.Context, collection string) ([]models.CacheRecord, error) {
	table, err := cacheTable(collection)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT id, data, last_updated FROM %s ORDER BY last_updated DESC, id", table))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer rows.Close()

	recs := []models.CacheRecord{}
	for rows.Next() {
		rec, err := scanCacheRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s record: %w", collection, err)
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", collection, err)
	}
	return recs, nil
}

// GetByID returns the record with the given key, or nil if absent.
func (s *SQLiteStore) GetByID(ctx context.Context, collection, id string) (*models.CacheRecord, error) {
	table, err := cacheTable(collection)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT id, data, last_updated FROM %s WHERE id = ?", table), id)
	rec, err := scanCacheRecord(row.Scan)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s record: %w", collection, err)
	}
	return rec, nil
}

// Delete removes one record; deleting an absent key is a no-op.
func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	table, err := cacheTable(collection)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id); err != nil {
		return fmt.Errorf("failed to delete %s record: %w", collection, err)
	}
	return nil
}

// Clear removes every record in the collection.
func (s *SQLiteStore) Clear(ctx context.Context, collection string) error {
	table, err := cacheTable(collection)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
		return fmt.Errorf("failed to clear %s: %w", collection, err)
	}
	return nil
}

// PurgeOlderThan deletes records whose last_updated is before the cutoff.
func (s *SQLiteStore) PurgeOlderThan(ctx context.Context, collection string, cutoff time.Time) (int64, error) {
	table, err := cacheTable(collection)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE last_updated < ?", table),
		cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to purge %s: %w", collection, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged %s rows: %w", collection, err)
	}
	return n, nil
}

func scanCacheRecord(scan func(dest ...any) error) (*models.CacheRecord, error) {
	var rec models.CacheRecord
	var data []byte
	var lastUpdated string
	if err := scan(&rec.ID, &data, &lastUpdated); err != nil {
		return nil, err
	}
	rec.Data = data
	ts, err := time.Parse(time.RFC3339Nano, lastUpdated)
	if err != nil {
		return nil, fmt.Errorf("invalid last_updated %q: %w", lastUpdated, err)
	}
	rec.LastUpdated = ts
	return &rec, nil
}
