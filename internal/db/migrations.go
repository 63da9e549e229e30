package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: partial unique index on item codes so that codes of
	// soft-deleted items can be reused.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_items_code_active
	     ON items(code) WHERE deleted_at IS NULL`,
	// Migration 2: speed up overdue sweeps over open checkouts.
	`CREATE INDEX IF NOT EXISTS idx_transactions_due
	     ON transactions(due_date) WHERE return_date IS NULL AND is_overdue = 0`,
}

// Migrate runs the database schema migrations.
func Migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
