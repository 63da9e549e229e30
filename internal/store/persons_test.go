package store

import (
	"context"
	"testing"

	"github.com/toolcrib/toolcrib/internal/db"
)

func TestCreateAndGetPerson(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	person, err := CreatePerson(ctx, database, "Alice", "Maintenance", "Electrical", "alice@example.com", "555-0100")
	if err != nil {
		t.Fatalf("creating person: %v", err)
	}

	got, err := GetPerson(ctx, database, person.ID)
	if err != nil {
		t.Fatalf("getting person: %v", err)
	}
	if got == nil {
		t.Fatal("person not found")
	}
	if got.Name != "Alice" || got.Division != "Maintenance" || got.Email != "alice@example.com" {
		t.Errorf("got %+v", got)
	}
	if !got.Active() {
		t.Error("new person should be active")
	}
}

func TestListPersonsDivisionFilter(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if _, err := CreatePerson(ctx, database, "Alice", "Maintenance", "", "", ""); err != nil {
		t.Fatalf("creating person: %v", err)
	}
	if _, err := CreatePerson(ctx, database, "Bob", "Operations", "", "", ""); err != nil {
		t.Fatalf("creating person: %v", err)
	}

	all, err := ListPersons(ctx, database, "")
	if err != nil {
		t.Fatalf("listing persons: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all persons = %d, want 2", len(all))
	}

	maintenance, err := ListPersons(ctx, database, "Maintenance")
	if err != nil {
		t.Fatalf("listing filtered persons: %v", err)
	}
	if len(maintenance) != 1 || maintenance[0].Name != "Alice" {
		t.Errorf("filtered persons = %+v", maintenance)
	}

	count, err := CountPersons(ctx, database)
	if err != nil {
		t.Fatalf("counting persons: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestUpdatePerson(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	person, err := CreatePerson(ctx, database, "Alice", "Maintenance", "", "", "")
	if err != nil {
		t.Fatalf("creating person: %v", err)
	}

	if err := UpdatePerson(ctx, database, person.ID, "Alice Smith", "Operations", "Night", "a@example.com", ""); err != nil {
		t.Fatalf("updating person: %v", err)
	}

	got, _ := GetPerson(ctx, database, person.ID)
	if got.Name != "Alice Smith" || got.Division != "Operations" || got.Department != "Night" {
		t.Errorf("updated person = %+v", got)
	}
}

func TestDeletePerson(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	person, err := CreatePerson(ctx, database, "Alice", "", "", "", "")
	if err != nil {
		t.Fatalf("creating person: %v", err)
	}

	if err := DeletePerson(ctx, database, person.ID); err != nil {
		t.Fatalf("deleting person: %v", err)
	}

	persons, _ := ListPersons(ctx, database, "")
	if len(persons) != 0 {
		t.Error("deactivated person still listed")
	}

	// History lookups still resolve them.
	got, _ := GetPerson(ctx, database, person.ID)
	if got == nil || got.Active() {
		t.Errorf("deactivated person = %+v", got)
	}
}

func TestDeletePersonHoldingEquipment(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	person, err := CreatePerson(ctx, database, "Alice", "", "", "", "")
	if err != nil {
		t.Fatalf("creating person: %v", err)
	}
	item, err := CreateItem(ctx, database, "", "Winch", "", nil, 1, 0)
	if err != nil {
		t.Fatalf("creating item: %v", err)
	}
	if _, err := database.ExecContext(ctx,
		`INSERT INTO transactions (item_id, person_id, type, quantity, created_at, due_date)
		 VALUES (?, ?, 'check_out', 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		item.ID, person.ID); err != nil {
		t.Fatalf("inserting checkout: %v", err)
	}

	if err := DeletePerson(ctx, database, person.ID); err == nil {
		t.Error("expected delete to fail while holding equipment")
	}
}
