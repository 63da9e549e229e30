package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/toolcrib/toolcrib/internal/model"
)

// Projection is the derived state triple for one item, computed as a pure
// fold over the ledger. Record keeps the same values incrementally on the
// item row; the two must agree for any transaction history.
type Projection struct {
	Available  int
	Status     string
	HolderID   *int64
	HolderName string
}

// ProjectItem folds the full ledger for one item into its derived state:
// available = capacity minus the sum of open checkout quantities (floored at
// zero, in case capacity was edited below the amount currently out), holder =
// person of the most recent open checkout. Ties on created_at break toward
// the higher id, matching insertion order.
func ProjectItem(ctx context.Context, db *sql.DB, itemID int64) (*Projection, error) {
	var total int
	err := db.QueryRowContext(ctx,
		`SELECT total_quantity FROM items WHERE id = ?`, itemID,
	).Scan(&total)
	if err == sql.ErrNoRows {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading item capacity: %w", err)
	}

	var open int
	err = db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM transactions
		 WHERE item_id = ? AND type = 'check_out' AND return_date IS NULL`, itemID,
	).Scan(&open)
	if err != nil {
		return nil, fmt.Errorf("summing open checkouts: %w", err)
	}

	available := total - open
	if available < 0 {
		available = 0
	}

	proj := &Projection{
		Available: available,
		Status:    model.StatusForQuantity(available),
	}

	var holderID int64
	var holderName string
	err = db.QueryRowContext(ctx,
		`SELECT t.person_id, p.name
		 FROM transactions t
		 JOIN persons p ON p.id = t.person_id
		 WHERE t.item_id = ? AND t.type = 'check_out' AND t.return_date IS NULL
		 ORDER BY t.created_at DESC, t.id DESC
		 LIMIT 1`, itemID,
	).Scan(&holderID, &holderName)
	if err == sql.ErrNoRows {
		return proj, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding current holder: %w", err)
	}
	proj.HolderID = &holderID
	proj.HolderName = holderName
	return proj, nil
}

// AttachHolders annotates items with their current holder in one query.
// Used by the item listing so every row carries derived state.
func AttachHolders(ctx context.Context, db *sql.DB, items []model.Item) error {
	if len(items) == 0 {
		return nil
	}

	rows, err := db.QueryContext(ctx,
		`SELECT t.item_id, t.person_id, p.name
		 FROM transactions t
		 JOIN persons p ON p.id = t.person_id
		 WHERE t.type = 'check_out' AND t.return_date IS NULL
		   AND t.id = (SELECT t2.id FROM transactions t2
		               WHERE t2.item_id = t.item_id
		                 AND t2.type = 'check_out' AND t2.return_date IS NULL
		               ORDER BY t2.created_at DESC, t2.id DESC
		               LIMIT 1)`,
	)
	if err != nil {
		return fmt.Errorf("querying current holders: %w", err)
	}
	defer rows.Close()

	type holder struct {
		personID int64
		name     string
	}
	holders := make(map[int64]holder)
	for rows.Next() {
		var itemID int64
		var h holder
		if err := rows.Scan(&itemID, &h.personID, &h.name); err != nil {
			return fmt.Errorf("scanning holder: %w", err)
		}
		holders[itemID] = h
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range items {
		if h, ok := holders[items[i].ID]; ok {
			id := h.personID
			items[i].HolderID = &id
			items[i].HolderName = h.name
		}
	}
	return nil
}
