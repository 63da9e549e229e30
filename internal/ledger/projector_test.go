package ledger

import (
	"context"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/toolcrib/toolcrib/internal/db"
	"github.com/toolcrib/toolcrib/internal/model"
	"github.com/toolcrib/toolcrib/internal/store"
)

// The item row is maintained incrementally by Record; ProjectItem recomputes
// the same state as a fold over the whole ledger. For any sequence of
// accepted and rejected operations the two must agree, and availability must
// stay within [0, capacity].
func TestProjectionMatchesIncrementalState(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		database := db.NewTestDB(t)
		ctx := context.Background()

		total := rapid.IntRange(1, 8).Draw(rt, "total")
		item := seedItem(t, database, "Generator", total)

		persons := make([]*model.Person, rapid.IntRange(1, 4).Draw(rt, "persons"))
		for i := range persons {
			persons[i] = seedPerson(t, database, "Person")
		}

		now := time.Now().UTC()
		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			req := Request{
				ItemID:   item.ID,
				PersonID: persons[rapid.IntRange(0, len(persons)-1).Draw(rt, "person")].ID,
				Quantity: rapid.IntRange(1, total+1).Draw(rt, "quantity"),
			}
			if rapid.Bool().Draw(rt, "checkout") {
				req.Type = model.TypeCheckOut
			} else {
				req.Type = model.TypeCheckIn
			}

			// Rule violations are expected along a random walk; only the
			// surviving state matters.
			_, _, err := recordAt(ctx, database, req, now.Add(time.Duration(i)*time.Second))
			if err != nil && !IsBusinessError(err) {
				rt.Fatalf("step %d: %v", i, err)
			}
		}

		stored, err := store.GetItem(ctx, database, item.ID)
		if err != nil {
			rt.Fatalf("getting item: %v", err)
		}

		proj, err := ProjectItem(ctx, database, item.ID)
		if err != nil {
			rt.Fatalf("projecting item: %v", err)
		}

		if proj.Available < 0 || proj.Available > total {
			rt.Fatalf("projected available %d outside [0, %d]", proj.Available, total)
		}
		if stored.AvailableQuantity != proj.Available {
			rt.Fatalf("stored available %d != projected %d", stored.AvailableQuantity, proj.Available)
		}
		if stored.Status != proj.Status {
			rt.Fatalf("stored status %q != projected %q", stored.Status, proj.Status)
		}
	})
}

func TestProjectItemHolderTieBreak(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	item := seedItem(t, database, "Welder", 4)
	alice := seedPerson(t, database, "Alice")
	bob := seedPerson(t, database, "Bob")

	// Both checkouts share the same timestamp; the later insert wins.
	now := time.Now().UTC()
	if _, _, err := recordAt(ctx, database, Request{
		ItemID: item.ID, PersonID: alice.ID, Type: model.TypeCheckOut, Quantity: 1,
	}, now); err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	if _, _, err := recordAt(ctx, database, Request{
		ItemID: item.ID, PersonID: bob.ID, Type: model.TypeCheckOut, Quantity: 1,
	}, now); err != nil {
		t.Fatalf("second checkout: %v", err)
	}

	proj, err := ProjectItem(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("projecting item: %v", err)
	}
	if proj.HolderID == nil || *proj.HolderID != bob.ID {
		t.Errorf("holder = %v, want %d (Bob)", proj.HolderID, bob.ID)
	}
	if proj.HolderName != "Bob" {
		t.Errorf("holder name = %q, want Bob", proj.HolderName)
	}

	// Bob returns his unit; the holder falls back to Alice.
	if _, _, err := recordAt(ctx, database, Request{
		ItemID: item.ID, PersonID: bob.ID, Type: model.TypeCheckIn, Quantity: 1,
	}, now.Add(time.Minute)); err != nil {
		t.Fatalf("check-in: %v", err)
	}

	proj, err = ProjectItem(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("projecting item: %v", err)
	}
	if proj.HolderName != "Alice" {
		t.Errorf("holder name = %q, want Alice", proj.HolderName)
	}
}

func TestProjectItemNoOpenCheckouts(t *testing.T) {
	database := db.NewTestDB(t)
	item := seedItem(t, database, "Compressor", 2)

	proj, err := ProjectItem(context.Background(), database, item.ID)
	if err != nil {
		t.Fatalf("projecting item: %v", err)
	}
	if proj.Available != 2 {
		t.Errorf("available = %d, want 2", proj.Available)
	}
	if proj.HolderID != nil {
		t.Errorf("holder = %v, want none", proj.HolderID)
	}
}

func TestProjectItemUnknown(t *testing.T) {
	database := db.NewTestDB(t)

	_, err := ProjectItem(context.Background(), database, 9999)
	if err != ErrItemNotFound {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestAttachHolders(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	held := seedItem(t, database, "Chainsaw", 1)
	idle := seedItem(t, database, "Sledgehammer", 1)
	person := seedPerson(t, database, "Alice")

	mustRecord(t, database, Request{
		ItemID: held.ID, PersonID: person.ID, Type: model.TypeCheckOut,
	})

	items, err := store.ListItems(ctx, database, "")
	if err != nil {
		t.Fatalf("listing items: %v", err)
	}
	if err := AttachHolders(ctx, database, items); err != nil {
		t.Fatalf("attaching holders: %v", err)
	}

	for _, item := range items {
		switch item.ID {
		case held.ID:
			if item.HolderID == nil || *item.HolderID != person.ID || item.HolderName != "Alice" {
				t.Errorf("held item holder = %v/%q", item.HolderID, item.HolderName)
			}
		case idle.ID:
			if item.HolderID != nil {
				t.Errorf("idle item has holder %v", item.HolderID)
			}
		}
	}
}
