package model

import "time"

// Transaction is one checkout or check-in event in the ledger.
// Rows are immutable after creation except for ReturnDate and IsOverdue,
// which are the derived open/overdue cursors stamped by the ledger.
type Transaction struct {
	ID         int64      `json:"id"`
	ItemID     int64      `json:"item_id"`
	PersonID   int64      `json:"person_id"`
	RecordedBy *int64     `json:"recorded_by,omitempty"`
	Type       string     `json:"type"`
	Quantity   int        `json:"quantity"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	IsOverdue  bool       `json:"is_overdue"`

	// Joined fields (not always populated).
	ItemName   string `json:"item_name,omitempty"`
	ItemCode   string `json:"item_code,omitempty"`
	PersonName string `json:"person_name,omitempty"`
}

// Transaction types.
const (
	TypeCheckOut = "check_out"
	TypeCheckIn  = "check_in"
)

// Open reports whether this is a checkout that has not been returned.
func (t *Transaction) Open() bool {
	return t.Type == TypeCheckOut && t.ReturnDate == nil
}
