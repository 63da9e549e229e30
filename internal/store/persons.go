package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/toolcrib/toolcrib/internal/model"
)

// CreatePerson creates a new person record.
func CreatePerson(ctx context.Context, db *sql.DB, name, division, department, email, phone string) (*model.Person, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO persons (name, division, department, email, phone)
		 VALUES (?, ?, ?, ?, ?)`,
		name, division, department, email, phone,
	)
	if err != nil {
		return nil, fmt.Errorf("creating person: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting person id: %w", err)
	}

	return GetPerson(ctx, db, id)
}

// GetPerson returns a person by ID, including deactivated ones (for history).
func GetPerson(ctx context.Context, db *sql.DB, id int64) (*model.Person, error) {
	p := &model.Person{}
	var division, department, email, phone sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, name, division, department, email, phone, created_at, deleted_at
		 FROM persons WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &division, &department, &email, &phone, &p.CreatedAt, &p.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting person: %w", err)
	}
	p.Division = division.String
	p.Department = department.String
	p.Email = email.String
	p.Phone = phone.String
	return p, nil
}

// ListPersons returns all active persons, optionally filtered by division.
func ListPersons(ctx context.Context, db *sql.DB, division string) ([]model.Person, error) {
	query := `SELECT id, name, division, department, email, phone, created_at, deleted_at
	          FROM persons WHERE deleted_at IS NULL`
	var args []any

	if division != "" {
		query += ` AND division = ?`
		args = append(args, division)
	}

	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing persons: %w", err)
	}
	defer rows.Close()

	var persons []model.Person
	for rows.Next() {
		var p model.Person
		var division, department, email, phone sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &division, &department, &email, &phone, &p.CreatedAt, &p.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning person: %w", err)
		}
		p.Division = division.String
		p.Department = department.String
		p.Email = email.String
		p.Phone = phone.String
		persons = append(persons, p)
	}
	return persons, rows.Err()
}

// CountPersons returns the number of active persons.
func CountPersons(ctx context.Context, db *sql.DB) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM persons WHERE deleted_at IS NULL`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting persons: %w", err)
	}
	return count, nil
}

// UpdatePerson updates a person's details.
func UpdatePerson(ctx context.Context, db *sql.DB, id int64, name, division, department, email, phone string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE persons SET name = ?, division = ?, department = ?, email = ?, phone = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		name, division, department, email, phone, id,
	)
	if err != nil {
		return fmt.Errorf("updating person: %w", err)
	}
	return nil
}

// DeletePerson deactivates a person. Fails while they still hold equipment,
// since open checkouts must be checked in by a valid holder.
func DeletePerson(ctx context.Context, db *sql.DB, id int64) error {
	var open int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions
		 WHERE person_id = ? AND type = 'check_out' AND return_date IS NULL`, id,
	).Scan(&open)
	if err != nil {
		return fmt.Errorf("checking open checkouts: %w", err)
	}
	if open > 0 {
		return fmt.Errorf("cannot deactivate person: still holds %d open checkouts", open)
	}

	_, err = db.ExecContext(ctx,
		`UPDATE persons SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting person: %w", err)
	}
	return nil
}
