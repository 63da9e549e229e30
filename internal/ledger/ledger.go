// Package ledger implements the transaction ledger and availability engine:
// it appends checkout/check-in events, keeps each item's derived availability
// consistent with its open checkouts, promotes stale checkouts to overdue,
// and aggregates dashboard summaries.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/toolcrib/toolcrib/internal/metrics"
	"github.com/toolcrib/toolcrib/internal/model"
)

// DuePeriod is how long a checkout may stay open before it is overdue.
const DuePeriod = 24 * time.Hour

// Request describes a transaction to record.
type Request struct {
	ItemID     int64
	PersonID   int64
	RecordedBy *int64
	Type       string
	Quantity   int // defaults to 1 when zero; a check-in credits the matched checkout's quantity regardless
	Notes      string
}

// Record validates a transaction against current derived state, appends it to
// the ledger, and applies it to the item's availability — all in one database
// transaction, so readers never observe a partial application. Returns the
// created transaction and the updated item.
func Record(ctx context.Context, db *sql.DB, req Request) (*model.Transaction, *model.Item, error) {
	return recordAt(ctx, db, req, time.Now().UTC())
}

func recordAt(ctx context.Context, db *sql.DB, req Request, now time.Time) (*model.Transaction, *model.Item, error) {
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if err := validate(req); err != nil {
		metrics.TransactionRejections.WithLabelValues(metrics.ReasonValidation).Inc()
		return nil, nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Load the item row first. The write transaction serializes all
	// validate-and-apply sequences per database, which covers the
	// per-item requirement: no two checkouts can both pass the
	// availability check before either decrement lands.
	var total, available int
	err = tx.QueryRowContext(ctx,
		`SELECT total_quantity, available_quantity FROM items
		 WHERE id = ? AND deleted_at IS NULL`, req.ItemID,
	).Scan(&total, &available)
	if err == sql.ErrNoRows {
		metrics.TransactionRejections.WithLabelValues(metrics.ReasonNotFound).Inc()
		return nil, nil, ErrItemNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading item: %w", err)
	}

	var personExists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM persons WHERE id = ? AND deleted_at IS NULL`, req.PersonID,
	).Scan(&personExists)
	if err != nil {
		return nil, nil, fmt.Errorf("loading person: %w", err)
	}
	if personExists == 0 {
		metrics.TransactionRejections.WithLabelValues(metrics.ReasonNotFound).Inc()
		return nil, nil, ErrPersonNotFound
	}

	var txnID int64
	switch req.Type {
	case model.TypeCheckOut:
		txnID, err = applyCheckOut(ctx, tx, req, now, available)
	case model.TypeCheckIn:
		txnID, err = applyCheckIn(ctx, tx, req, now, total)
	}
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("committing transaction: %w", err)
	}

	metrics.TransactionsTotal.WithLabelValues(req.Type).Inc()

	txn, err := GetTransaction(ctx, db, txnID)
	if err != nil {
		return nil, nil, err
	}
	item, err := getItemState(ctx, db, req.ItemID)
	if err != nil {
		return nil, nil, err
	}
	return txn, item, nil
}

func validate(req Request) error {
	if req.ItemID <= 0 || req.PersonID <= 0 {
		return fmt.Errorf("%w: item and person are required", ErrValidation)
	}
	if req.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}
	if req.Type != model.TypeCheckOut && req.Type != model.TypeCheckIn {
		return fmt.Errorf("%w: unknown type %q", ErrValidation, req.Type)
	}
	return nil
}

// applyCheckOut appends a checkout event and decrements availability.
func applyCheckOut(ctx context.Context, tx *sql.Tx, req Request, now time.Time, available int) (int64, error) {
	if available < req.Quantity {
		metrics.TransactionRejections.WithLabelValues(metrics.ReasonInsufficientStock).Inc()
		return 0, &InsufficientStockError{Requested: req.Quantity, Available: available}
	}

	due := now.Add(DuePeriod)
	result, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (item_id, person_id, recorded_by, type, quantity, notes, created_at, due_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ItemID, req.PersonID, req.RecordedBy, model.TypeCheckOut, req.Quantity, req.Notes, now, due,
	)
	if err != nil {
		return 0, fmt.Errorf("appending checkout: %w", err)
	}

	newAvailable := available - req.Quantity
	if err := setItemAvailability(ctx, tx, req.ItemID, newAvailable); err != nil {
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting transaction id: %w", err)
	}
	return id, nil
}

// applyCheckIn closes the person's most recent open checkout for the item and
// appends a check-in event crediting that checkout's full quantity. The
// request quantity does not drive the credit: the checkout closes whole, so
// its whole quantity comes back, keeping available = total - sum(open).
func applyCheckIn(ctx context.Context, tx *sql.Tx, req Request, now time.Time, total int) (int64, error) {
	var openID int64
	var openQty int
	err := tx.QueryRowContext(ctx,
		`SELECT id, quantity FROM transactions
		 WHERE item_id = ? AND person_id = ? AND type = 'check_out' AND return_date IS NULL
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		req.ItemID, req.PersonID,
	).Scan(&openID, &openQty)
	if err == sql.ErrNoRows {
		metrics.TransactionRejections.WithLabelValues(metrics.ReasonInvalidCheckIn).Inc()
		return 0, ErrInvalidCheckIn
	}
	if err != nil {
		return 0, fmt.Errorf("finding open checkout: %w", err)
	}

	// Close the matched checkout.
	if _, err := tx.ExecContext(ctx,
		`UPDATE transactions SET return_date = ? WHERE id = ?`, now, openID,
	); err != nil {
		return 0, fmt.Errorf("closing checkout: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (item_id, person_id, recorded_by, type, quantity, notes, created_at, return_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ItemID, req.PersonID, req.RecordedBy, model.TypeCheckIn, openQty, req.Notes, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("appending check-in: %w", err)
	}

	// Re-derive availability from the checkouts still open rather than
	// incrementing, so a capacity edit below the amount out converges
	// back as returns arrive.
	var open int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM transactions
		 WHERE item_id = ? AND type = 'check_out' AND return_date IS NULL`, req.ItemID,
	).Scan(&open)
	if err != nil {
		return 0, fmt.Errorf("summing open checkouts: %w", err)
	}
	if err := setItemAvailability(ctx, tx, req.ItemID, total-open); err != nil {
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting transaction id: %w", err)
	}
	return id, nil
}

func setItemAvailability(ctx context.Context, tx *sql.Tx, itemID int64, available int) error {
	if available < 0 {
		available = 0
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE items SET available_quantity = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		available, model.StatusForQuantity(available), itemID,
	)
	if err != nil {
		return fmt.Errorf("updating item availability: %w", err)
	}
	return nil
}

func getItemState(ctx context.Context, db *sql.DB, itemID int64) (*model.Item, error) {
	item := &model.Item{}
	var description, imageMime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, code, name, description, category_id, total_quantity, available_quantity,
		        min_stock_level, status, image_mime, created_at, updated_at, deleted_at
		 FROM items WHERE id = ?`, itemID,
	).Scan(&item.ID, &item.Code, &item.Name, &description, &item.CategoryID,
		&item.TotalQuantity, &item.AvailableQuantity, &item.MinStockLevel, &item.Status,
		&imageMime, &item.CreatedAt, &item.UpdatedAt, &item.DeletedAt)
	if err != nil {
		return nil, fmt.Errorf("loading updated item: %w", err)
	}
	item.Description = description.String
	item.ImageMime = imageMime.String
	return item, nil
}

const transactionColumns = `t.id, t.item_id, t.person_id, t.recorded_by, t.type, t.quantity, t.notes,
	        t.created_at, t.due_date, t.return_date, t.is_overdue,
	        i.name, i.code, p.name`

// GetTransaction returns a transaction by ID with item and person resolved.
func GetTransaction(ctx context.Context, db *sql.DB, id int64) (*model.Transaction, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions t
		 JOIN items i ON i.id = t.item_id
		 JOIN persons p ON p.id = t.person_id
		 WHERE t.id = ?`, id)
	txn, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting transaction: %w", err)
	}
	return txn, nil
}

// Filter narrows ListTransactions. Zero values mean "no constraint".
type Filter struct {
	ItemID   int64
	PersonID int64
	OpenOnly bool
	Limit    int
}

// ListTransactions returns ledger entries, newest first.
func ListTransactions(ctx context.Context, db *sql.DB, f Filter) ([]model.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
	          FROM transactions t
	          JOIN items i ON i.id = t.item_id
	          JOIN persons p ON p.id = t.person_id
	          WHERE 1=1`
	var args []any

	if f.ItemID > 0 {
		query += ` AND t.item_id = ?`
		args = append(args, f.ItemID)
	}
	if f.PersonID > 0 {
		query += ` AND t.person_id = ?`
		args = append(args, f.PersonID)
	}
	if f.OpenOnly {
		query += ` AND t.type = 'check_out' AND t.return_date IS NULL`
	}

	query += ` ORDER BY t.created_at DESC, t.id DESC`

	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	t := &model.Transaction{}
	var notes sql.NullString
	err := row.Scan(&t.ID, &t.ItemID, &t.PersonID, &t.RecordedBy, &t.Type, &t.Quantity, &notes,
		&t.CreatedAt, &t.DueDate, &t.ReturnDate, &t.IsOverdue,
		&t.ItemName, &t.ItemCode, &t.PersonName)
	if err != nil {
		return nil, err
	}
	t.Notes = notes.String
	return t, nil
}

func scanTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var txns []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}

// IsBusinessError reports whether err is a rule violation (as opposed to an
// infrastructure failure), so API layers can map it to a client error.
func IsBusinessError(err error) bool {
	var stock *InsufficientStockError
	return errors.Is(err, ErrItemNotFound) || errors.Is(err, ErrPersonNotFound) ||
		errors.Is(err, ErrInvalidCheckIn) || errors.Is(err, ErrValidation) ||
		errors.As(err, &stock)
}
