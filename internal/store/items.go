package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/toolcrib/toolcrib/internal/model"
)

const itemColumns = `id, code, name, description, category_id, total_quantity,
	 available_quantity, min_stock_level, status, image_mime,
	 created_at, updated_at, deleted_at`

// NewItemCode generates a unique asset code for items created without one.
func NewItemCode() string {
	return "EQ-" + strings.ToUpper(uuid.NewString()[:8])
}

// CreateItem creates a new catalog item. An empty code gets a generated one.
// The item starts fully available: available_quantity = total_quantity.
func CreateItem(ctx context.Context, db *sql.DB, code, name, description string, categoryID *int64, totalQuantity, minStockLevel int) (*model.Item, error) {
	if totalQuantity < 0 {
		return nil, fmt.Errorf("total quantity must not be negative")
	}
	if code == "" {
		code = NewItemCode()
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO items (code, name, description, category_id, total_quantity, available_quantity, min_stock_level, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		code, name, description, categoryID, totalQuantity, totalQuantity, minStockLevel,
		model.StatusForQuantity(totalQuantity),
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID, including soft-deleted ones (for history).
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// GetItemByCode returns an active item by its asset code.
func GetItemByCode(ctx context.Context, db *sql.DB, code string) (*model.Item, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE code = ? AND deleted_at IS NULL`, code)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item by code: %w", err)
	}
	return item, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var description, imageMime sql.NullString
	err := row.Scan(&item.ID, &item.Code, &item.Name, &description, &item.CategoryID,
		&item.TotalQuantity, &item.AvailableQuantity, &item.MinStockLevel, &item.Status,
		&imageMime, &item.CreatedAt, &item.UpdatedAt, &item.DeletedAt)
	if err != nil {
		return nil, err
	}
	item.Description = description.String
	item.ImageMime = imageMime.String
	return item, nil
}

// ListItems returns all non-deleted items, optionally filtered by status,
// with category names resolved.
func ListItems(ctx context.Context, db *sql.DB, status string) ([]model.Item, error) {
	query := `SELECT i.id, i.code, i.name, i.description, i.category_id, i.total_quantity,
	                 i.available_quantity, i.min_stock_level, i.status, i.image_mime,
	                 i.created_at, i.updated_at, i.deleted_at, c.name
	          FROM items i
	          LEFT JOIN categories c ON c.id = i.category_id
	          WHERE i.deleted_at IS NULL`
	var args []any

	if status != "" {
		query += ` AND i.status = ?`
		args = append(args, status)
	}

	query += ` ORDER BY i.name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var item model.Item
		var description, imageMime, categoryName sql.NullString
		if err := rows.Scan(&item.ID, &item.Code, &item.Name, &description, &item.CategoryID,
			&item.TotalQuantity, &item.AvailableQuantity, &item.MinStockLevel, &item.Status,
			&imageMime, &item.CreatedAt, &item.UpdatedAt, &item.DeletedAt, &categoryName); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		item.Description = description.String
		item.ImageMime = imageMime.String
		item.CategoryName = categoryName.String
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateItem updates an item's metadata and reorder threshold.
func UpdateItem(ctx context.Context, db *sql.DB, id int64, name, description string, categoryID *int64, minStockLevel int) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET name = ?, description = ?, category_id = ?, min_stock_level = ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		name, description, categoryID, minStockLevel, id,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// SetItemCapacity changes an item's total quantity and re-derives the
// available quantity from the ledger: available = max(0, total - open sum).
// Open checkouts are never touched; shrinking capacity below the amount
// currently out just leaves the item out of stock until returns come in.
func SetItemCapacity(ctx context.Context, db *sql.DB, id int64, totalQuantity int) error {
	if totalQuantity < 0 {
		return fmt.Errorf("total quantity must not be negative")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var open int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM transactions
		 WHERE item_id = ? AND type = 'check_out' AND return_date IS NULL`, id,
	).Scan(&open)
	if err != nil {
		return fmt.Errorf("summing open checkouts: %w", err)
	}

	available := totalQuantity - open
	if available < 0 {
		available = 0
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE items SET total_quantity = ?, available_quantity = ?, status = ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		totalQuantity, available, model.StatusForQuantity(available), id,
	)
	if err != nil {
		return fmt.Errorf("setting item capacity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("item not found")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing capacity change: %w", err)
	}
	return nil
}

// DeleteItem soft-deletes an item. Fails while checkouts are still open.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	var open int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions
		 WHERE item_id = ? AND type = 'check_out' AND return_date IS NULL`, id,
	).Scan(&open)
	if err != nil {
		return fmt.Errorf("checking open checkouts: %w", err)
	}
	if open > 0 {
		return fmt.Errorf("cannot delete item: %d open checkouts", open)
	}

	_, err = db.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// SetItemImage sets an item's image data.
func SetItemImage(ctx context.Context, db *sql.DB, id int64, image []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return nil
}

// GetItemImage returns an item's image data and MIME type.
func GetItemImage(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}
