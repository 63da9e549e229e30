package store

import (
	"context"
	"strings"
	"testing"

	"github.com/toolcrib/toolcrib/internal/db"
	"github.com/toolcrib/toolcrib/internal/model"
)

func TestCreateAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := CreateItem(ctx, database, "EQ-TEST01", "Cordless Drill", "18V", nil, 4, 1)
	if err != nil {
		t.Fatalf("creating item: %v", err)
	}

	if item.Code != "EQ-TEST01" {
		t.Errorf("code = %q", item.Code)
	}
	if item.AvailableQuantity != 4 {
		t.Errorf("new item available = %d, want full capacity", item.AvailableQuantity)
	}
	if item.Status != model.ItemStatusAvailable {
		t.Errorf("status = %q", item.Status)
	}

	got, err := GetItem(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("getting item: %v", err)
	}
	if got == nil || got.Name != "Cordless Drill" {
		t.Errorf("got %+v", got)
	}

	byCode, err := GetItemByCode(ctx, database, "EQ-TEST01")
	if err != nil {
		t.Fatalf("getting item by code: %v", err)
	}
	if byCode == nil || byCode.ID != item.ID {
		t.Errorf("lookup by code returned %+v", byCode)
	}
}

func TestCreateItemGeneratesCode(t *testing.T) {
	database := db.NewTestDB(t)

	item, err := CreateItem(context.Background(), database, "", "Hammer", "", nil, 1, 0)
	if err != nil {
		t.Fatalf("creating item: %v", err)
	}
	if !strings.HasPrefix(item.Code, "EQ-") {
		t.Errorf("generated code = %q", item.Code)
	}
}

func TestCreateItemZeroQuantity(t *testing.T) {
	database := db.NewTestDB(t)

	item, err := CreateItem(context.Background(), database, "", "Rare Gauge", "", nil, 0, 0)
	if err != nil {
		t.Fatalf("creating item: %v", err)
	}
	if item.Status != model.ItemStatusOutOfStock {
		t.Errorf("status = %q, want %q", item.Status, model.ItemStatusOutOfStock)
	}
}

func TestListItemsStatusFilter(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if _, err := CreateItem(ctx, database, "", "Drill", "", nil, 2, 0); err != nil {
		t.Fatalf("creating item: %v", err)
	}
	if _, err := CreateItem(ctx, database, "", "Broken Saw", "", nil, 0, 0); err != nil {
		t.Fatalf("creating item: %v", err)
	}

	all, err := ListItems(ctx, database, "")
	if err != nil {
		t.Fatalf("listing items: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all items = %d, want 2", len(all))
	}

	available, err := ListItems(ctx, database, model.ItemStatusAvailable)
	if err != nil {
		t.Fatalf("listing available items: %v", err)
	}
	if len(available) != 1 || available[0].Name != "Drill" {
		t.Errorf("available filter returned %+v", available)
	}
}

func TestListItemsResolvesCategory(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	cat, err := CreateCategory(ctx, database, "Power Tools")
	if err != nil {
		t.Fatalf("creating category: %v", err)
	}
	if _, err := CreateItem(ctx, database, "", "Router", "", &cat.ID, 1, 0); err != nil {
		t.Fatalf("creating item: %v", err)
	}

	items, err := ListItems(ctx, database, "")
	if err != nil {
		t.Fatalf("listing items: %v", err)
	}
	if len(items) != 1 || items[0].CategoryName != "Power Tools" {
		t.Errorf("items = %+v", items)
	}
}

func TestUpdateItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := CreateItem(ctx, database, "", "Old Name", "", nil, 3, 0)
	if err != nil {
		t.Fatalf("creating item: %v", err)
	}

	if err := UpdateItem(ctx, database, item.ID, "New Name", "refurbished", nil, 2); err != nil {
		t.Fatalf("updating item: %v", err)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.Name != "New Name" || got.Description != "refurbished" || got.MinStockLevel != 2 {
		t.Errorf("updated item = %+v", got)
	}
	if got.TotalQuantity != 3 {
		t.Errorf("metadata update changed capacity to %d", got.TotalQuantity)
	}
}

func TestSetItemCapacityRederivesAvailability(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := CreateItem(ctx, database, "", "Grinder", "", nil, 5, 0)
	if err != nil {
		t.Fatalf("creating item: %v", err)
	}
	person, err := CreatePerson(ctx, database, "Alice", "", "", "", "")
	if err != nil {
		t.Fatalf("creating person: %v", err)
	}

	// Two units out on an open checkout, inserted directly.
	if _, err := database.ExecContext(ctx,
		`INSERT INTO transactions (item_id, person_id, type, quantity, created_at, due_date)
		 VALUES (?, ?, 'check_out', 2, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		item.ID, person.ID); err != nil {
		t.Fatalf("inserting checkout: %v", err)
	}

	if err := SetItemCapacity(ctx, database, item.ID, 10); err != nil {
		t.Fatalf("growing capacity: %v", err)
	}
	got, _ := GetItem(ctx, database, item.ID)
	if got.AvailableQuantity != 8 {
		t.Errorf("available = %d, want 8", got.AvailableQuantity)
	}

	// Shrinking below the amount out floors at zero.
	if err := SetItemCapacity(ctx, database, item.ID, 1); err != nil {
		t.Fatalf("shrinking capacity: %v", err)
	}
	got, _ = GetItem(ctx, database, item.ID)
	if got.AvailableQuantity != 0 {
		t.Errorf("available = %d, want 0", got.AvailableQuantity)
	}
	if got.Status != model.ItemStatusOutOfStock {
		t.Errorf("status = %q, want %q", got.Status, model.ItemStatusOutOfStock)
	}
}

func TestDeleteItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := CreateItem(ctx, database, "", "Spade", "", nil, 1, 0)
	if err != nil {
		t.Fatalf("creating item: %v", err)
	}

	if err := DeleteItem(ctx, database, item.ID); err != nil {
		t.Fatalf("deleting item: %v", err)
	}

	items, _ := ListItems(ctx, database, "")
	if len(items) != 0 {
		t.Errorf("deleted item still listed")
	}

	// History lookups still resolve it.
	got, _ := GetItem(ctx, database, item.ID)
	if got == nil || got.DeletedAt == nil {
		t.Errorf("soft-deleted item = %+v", got)
	}
}

func TestDeleteItemWithOpenCheckout(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := CreateItem(ctx, database, "", "Hoist", "", nil, 1, 0)
	if err != nil {
		t.Fatalf("creating item: %v", err)
	}
	person, err := CreatePerson(ctx, database, "Alice", "", "", "", "")
	if err != nil {
		t.Fatalf("creating person: %v", err)
	}
	if _, err := database.ExecContext(ctx,
		`INSERT INTO transactions (item_id, person_id, type, quantity, created_at, due_date)
		 VALUES (?, ?, 'check_out', 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		item.ID, person.ID); err != nil {
		t.Fatalf("inserting checkout: %v", err)
	}

	if err := DeleteItem(ctx, database, item.ID); err == nil {
		t.Error("expected delete to fail with open checkout")
	}
}

func TestItemImage(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := CreateItem(ctx, database, "", "Camera", "", nil, 1, 0)
	if err != nil {
		t.Fatalf("creating item: %v", err)
	}

	data, mime, err := GetItemImage(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("getting empty image: %v", err)
	}
	if len(data) != 0 || mime != "" {
		t.Errorf("expected no image, got %d bytes %q", len(data), mime)
	}

	if err := SetItemImage(ctx, database, item.ID, []byte{0xff, 0xd8, 0xff}, "image/jpeg"); err != nil {
		t.Fatalf("setting image: %v", err)
	}

	data, mime, err = GetItemImage(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("getting image: %v", err)
	}
	if len(data) != 3 || mime != "image/jpeg" {
		t.Errorf("image = %d bytes %q", len(data), mime)
	}
}
