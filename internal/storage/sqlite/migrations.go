package sqlite

import (
	"database/sql"
	"fmt"
)

// schema contains the SQL statements to set up the five collections: the
// three read-model caches, the offline transaction queue and settings.
// Every statement is idempotent; a schema version increase re-runs the whole
// block and creates whatever is missing. Existing data is never migrated
// destructively.
const schema = `
CREATE TABLE IF NOT EXISTS products (
    id TEXT PRIMARY KEY,
    data BLOB NOT NULL,
    last_updated TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS customers (
    id TEXT PRIMARY KEY,
    data BLOB NOT NULL,
    last_updated TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS bills (
    id TEXT PRIMARY KEY,
    data BLOB NOT NULL,
    last_updated TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS offline_transactions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    payload BLOB NOT NULL,
    auth_token TEXT NOT NULL,
    timestamp TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    retry_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_products_last_updated ON products(last_updated);
CREATE INDEX IF NOT EXISTS idx_customers_last_updated ON customers(last_updated);
CREATE INDEX IF NOT EXISTS idx_bills_last_updated ON bills(last_updated);
CREATE INDEX IF NOT EXISTS idx_offline_transactions_timestamp ON offline_transactions(timestamp);
CREATE INDEX IF NOT EXISTS idx_offline_transactions_status ON offline_transactions(status);
`

// migrate brings the database up to targetVersion. The version lives in
// PRAGMA user_version; a database already at or beyond the target is left
// untouched.
func migrate(db *sql.DB, targetVersion int) error {
	var current int
	if err := db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if current >= targetVersion {
		return nil
	}

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", targetVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}
