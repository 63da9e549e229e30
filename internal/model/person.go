package model

import "time"

// Person represents personnel eligible to hold equipment. Persons are
// soft-deleted (deactivated) so historical transactions keep resolving.
type Person struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Division   string     `json:"division,omitempty"`
	Department string     `json:"department,omitempty"`
	Email      string     `json:"email,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// Active reports whether the person can hold new checkouts.
func (p *Person) Active() bool {
	return p != nil && p.DeletedAt == nil
}
