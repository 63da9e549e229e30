package ledger

import (
	"errors"
	"fmt"
)

// Business-rule errors returned by Record. None of these are retryable;
// they report a rule violation back to the caller.
var (
	ErrItemNotFound   = errors.New("item not found")
	ErrPersonNotFound = errors.New("person not found")

	// ErrInvalidCheckIn means the person has no open checkout for the item.
	// Enforced here in the ledger, not just at the API boundary, so a
	// misbehaving caller cannot corrupt the derived availability state.
	ErrInvalidCheckIn = errors.New("no open checkout for this item and person")

	// ErrValidation covers malformed input (bad quantity, unknown type).
	ErrValidation = errors.New("invalid transaction request")
)

// InsufficientStockError rejects a checkout that exceeds the available
// quantity. Available is included so callers can display it.
type InsufficientStockError struct {
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: requested %d, available %d", e.Requested, e.Available)
}
