package store

import (
	"context"
	"testing"

	"github.com/toolcrib/toolcrib/internal/db"
)

func TestCreateAndListCategories(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if _, err := CreateCategory(ctx, database, "Power Tools"); err != nil {
		t.Fatalf("creating category: %v", err)
	}
	if _, err := CreateCategory(ctx, database, "Hand Tools"); err != nil {
		t.Fatalf("creating category: %v", err)
	}

	categories, err := ListCategories(ctx, database)
	if err != nil {
		t.Fatalf("listing categories: %v", err)
	}
	if len(categories) != 2 {
		t.Fatalf("categories = %d, want 2", len(categories))
	}
}

func TestCreateCategoryDuplicate(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if _, err := CreateCategory(ctx, database, "Power Tools"); err != nil {
		t.Fatalf("creating category: %v", err)
	}
	if _, err := CreateCategory(ctx, database, "Power Tools"); err == nil {
		t.Error("expected duplicate category to fail")
	}
}

func TestUpdateCategory(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	cat, err := CreateCategory(ctx, database, "Misc")
	if err != nil {
		t.Fatalf("creating category: %v", err)
	}

	if err := UpdateCategory(ctx, database, cat.ID, "Consumables"); err != nil {
		t.Fatalf("updating category: %v", err)
	}

	got, err := GetCategory(ctx, database, cat.ID)
	if err != nil {
		t.Fatalf("getting category: %v", err)
	}
	if got == nil || got.Name != "Consumables" {
		t.Errorf("updated category = %+v", got)
	}
}
