package model

import "time"

// Item represents a trackable equipment type (quantity-based, not per-unit).
// AvailableQuantity and Status are derived from the transaction ledger and
// are only ever written by the ledger's apply step or by capacity edits.
type Item struct {
	ID                int64      `json:"id"`
	Code              string     `json:"code"`
	Name              string     `json:"name"`
	Description       string     `json:"description,omitempty"`
	CategoryID        *int64     `json:"category_id,omitempty"`
	TotalQuantity     int        `json:"total_quantity"`
	AvailableQuantity int        `json:"available_quantity"`
	MinStockLevel     int        `json:"min_stock_level"`
	Status            string     `json:"status"`
	ImageMime         string     `json:"image_mime,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty"`

	// Joined/derived fields (not always populated).
	CategoryName string `json:"category_name,omitempty"`
	HolderID     *int64 `json:"holder_id,omitempty"`
	HolderName   string `json:"holder_name,omitempty"`
}

// Item statuses, derived from available quantity.
const (
	ItemStatusAvailable  = "available"
	ItemStatusOutOfStock = "out_of_stock"
)

// StatusForQuantity returns the derived status for an available quantity.
func StatusForQuantity(available int) string {
	if available <= 0 {
		return ItemStatusOutOfStock
	}
	return ItemStatusAvailable
}
