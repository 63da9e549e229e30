package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/toolcrib/toolcrib/internal/metrics"
	"github.com/toolcrib/toolcrib/internal/model"
)

// SweepOverdue flags every open checkout whose due date has passed now and
// returns the newly flagged transactions. Idempotent: already-flagged rows
// are untouched, so re-running with the same now returns nothing new.
// Read paths that report overdue state call this first.
func SweepOverdue(ctx context.Context, db *sql.DB, now time.Time) ([]model.Transaction, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning sweep: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM transactions
		 WHERE type = 'check_out' AND return_date IS NULL
		   AND is_overdue = 0 AND due_date < ?`, now,
	)
	if err != nil {
		return nil, fmt.Errorf("finding stale checkouts: %w", err)
	}

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning stale checkout: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(ids) == 0 {
		return nil, tx.Commit()
	}

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`UPDATE transactions SET is_overdue = 1 WHERE id = ? AND is_overdue = 0`, id,
		); err != nil {
			return nil, fmt.Errorf("flagging checkout %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing sweep: %w", err)
	}

	metrics.OverdueFlagged.Add(float64(len(ids)))

	var flagged []model.Transaction
	for _, id := range ids {
		txn, err := GetTransaction(ctx, db, id)
		if err != nil {
			return nil, err
		}
		if txn != nil {
			flagged = append(flagged, *txn)
		}
	}
	return flagged, nil
}

// ListOverdue sweeps first, then returns all open checkouts currently
// flagged overdue, newest first.
func ListOverdue(ctx context.Context, db *sql.DB, now time.Time) ([]model.Transaction, error) {
	if _, err := SweepOverdue(ctx, db, now); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions t
		 JOIN items i ON i.id = t.item_id
		 JOIN persons p ON p.id = t.person_id
		 WHERE t.type = 'check_out' AND t.return_date IS NULL AND t.is_overdue = 1
		 ORDER BY t.due_date ASC, t.id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing overdue transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}
