package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/toolcrib/toolcrib/internal/model"
)

// RecentActivityLimit caps the recent-transaction list on the dashboard.
const RecentActivityLimit = 10

// DashboardSummary is a read-only aggregation over catalog and ledger.
// Computed fresh on every call; holds no state of its own.
type DashboardSummary struct {
	TotalItems      int                 `json:"total_items"`
	AvailableItems  int                 `json:"available_items"`
	CheckedOutItems int                 `json:"checked_out_items"`
	TotalPersons    int                 `json:"total_persons"`
	LowStockItems   []model.Item        `json:"low_stock_items"`
	RecentActivity  []model.Transaction `json:"recent_activity"`
	OverdueItems    []model.Transaction `json:"overdue_items"`
}

// Summarize runs an overdue sweep and then aggregates current state.
func Summarize(ctx context.Context, db *sql.DB, now time.Time) (*DashboardSummary, error) {
	if _, err := SweepOverdue(ctx, db, now); err != nil {
		return nil, err
	}

	s := &DashboardSummary{
		LowStockItems:  []model.Item{},
		RecentActivity: []model.Transaction{},
		OverdueItems:   []model.Transaction{},
	}

	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN available_quantity > 0 THEN 1 ELSE 0 END), 0)
		 FROM items WHERE deleted_at IS NULL`,
	).Scan(&s.TotalItems, &s.AvailableItems)
	if err != nil {
		return nil, fmt.Errorf("counting items: %w", err)
	}

	// Items with at least one open checkout.
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT t.item_id)
		 FROM transactions t
		 JOIN items i ON i.id = t.item_id AND i.deleted_at IS NULL
		 WHERE t.type = 'check_out' AND t.return_date IS NULL`,
	).Scan(&s.CheckedOutItems)
	if err != nil {
		return nil, fmt.Errorf("counting checked-out items: %w", err)
	}

	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM persons WHERE deleted_at IS NULL`,
	).Scan(&s.TotalPersons)
	if err != nil {
		return nil, fmt.Errorf("counting persons: %w", err)
	}

	lowStock, err := lowStockItems(ctx, db)
	if err != nil {
		return nil, err
	}
	s.LowStockItems = lowStock

	recent, err := recentActivity(ctx, db, RecentActivityLimit)
	if err != nil {
		return nil, err
	}
	s.RecentActivity = recent

	overdue, err := ListOverdue(ctx, db, now)
	if err != nil {
		return nil, err
	}
	if overdue != nil {
		s.OverdueItems = overdue
	}

	return s, nil
}

func lowStockItems(ctx context.Context, db *sql.DB) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, code, name, total_quantity, available_quantity, min_stock_level, status
		 FROM items
		 WHERE deleted_at IS NULL AND available_quantity <= min_stock_level
		 ORDER BY available_quantity ASC, name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing low-stock items: %w", err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		var item model.Item
		if err := rows.Scan(&item.ID, &item.Code, &item.Name, &item.TotalQuantity,
			&item.AvailableQuantity, &item.MinStockLevel, &item.Status); err != nil {
			return nil, fmt.Errorf("scanning low-stock item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// recentActivity returns the latest ledger entries with names resolved.
// A transaction whose item or person no longer resolves is skipped and
// logged rather than failing the whole dashboard.
func recentActivity(ctx context.Context, db *sql.DB, limit int) ([]model.Transaction, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT t.id, t.item_id, t.person_id, t.recorded_by, t.type, t.quantity, t.notes,
		        t.created_at, t.due_date, t.return_date, t.is_overdue,
		        i.name, i.code, p.name
		 FROM transactions t
		 LEFT JOIN items i ON i.id = t.item_id
		 LEFT JOIN persons p ON p.id = t.person_id
		 ORDER BY t.created_at DESC, t.id DESC
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing recent activity: %w", err)
	}
	defer rows.Close()

	txns := []model.Transaction{}
	for rows.Next() {
		var t model.Transaction
		var notes, itemName, itemCode, personName sql.NullString
		if err := rows.Scan(&t.ID, &t.ItemID, &t.PersonID, &t.RecordedBy, &t.Type, &t.Quantity, &notes,
			&t.CreatedAt, &t.DueDate, &t.ReturnDate, &t.IsOverdue,
			&itemName, &itemCode, &personName); err != nil {
			return nil, fmt.Errorf("scanning recent activity: %w", err)
		}
		if !itemName.Valid || !personName.Valid {
			slog.Warn("skipping transaction with dangling reference",
				"transaction", t.ID, "item", t.ItemID, "person", t.PersonID)
			continue
		}
		t.Notes = notes.String
		t.ItemName = itemName.String
		t.ItemCode = itemCode.String
		t.PersonName = personName.String
		txns = append(txns, t)
	}
	return txns, rows.Err()
}
