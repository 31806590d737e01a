package roomlinkstore_test

import (
	"testing"

	roomlinkstore "github.com/dalemusser/caseroom/internal/app/store/roomlinks"
	"github.com/dalemusser/caseroom/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestLink_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := roomlinkstore.New(db)
	roomID := primitive.NewObjectID()
	contentID := primitive.NewObjectID()

	created, err := store.Link(ctx, roomID, contentID)
	if err != nil {
		t.Fatalf("first link failed: %v", err)
	}
	if !created {
		t.Error("expected created=true on first link")
	}

	created, err = store.Link(ctx, roomID, contentID)
	if err != nil {
		t.Fatalf("second link failed: %v", err)
	}
	if created {
		t.Error("expected created=false on duplicate link")
	}

	links, err := store.ListByRoom(ctx, roomID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(links) != 1 {
		t.Errorf("links = %d, want 1", len(links))
	}
}

func TestExistsAndUnlink(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := roomlinkstore.New(db)
	roomID := primitive.NewObjectID()
	contentID := primitive.NewObjectID()

	exists, err := store.Exists(ctx, roomID, contentID)
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if exists {
		t.Error("expected exists=false before linking")
	}

	if _, err := store.Link(ctx, roomID, contentID); err != nil {
		t.Fatalf("link failed: %v", err)
	}

	exists, err = store.Exists(ctx, roomID, contentID)
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if !exists {
		t.Error("expected exists=true after linking")
	}

	removed, err := store.Unlink(ctx, roomID, contentID)
	if err != nil {
		t.Fatalf("unlink failed: %v", err)
	}
	if !removed {
		t.Error("expected removed=true")
	}

	removed, err = store.Unlink(ctx, roomID, contentID)
	if err != nil {
		t.Fatalf("second unlink failed: %v", err)
	}
	if removed {
		t.Error("expected removed=false when link already gone")
	}
}

func TestDeleteByContent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := roomlinkstore.New(db)
	contentID := primitive.NewObjectID()

	for i := 0; i < 3; i++ {
		if _, err := store.Link(ctx, primitive.NewObjectID(), contentID); err != nil {
			t.Fatalf("link failed: %v", err)
		}
	}
	otherRoom := primitive.NewObjectID()
	if _, err := store.Link(ctx, otherRoom, primitive.NewObjectID()); err != nil {
		t.Fatalf("link failed: %v", err)
	}

	deleted, err := store.DeleteByContent(ctx, contentID)
	if err != nil {
		t.Fatalf("delete by content failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}

	links, err := store.ListByRoom(ctx, otherRoom)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(links) != 1 {
		t.Errorf("unrelated links = %d, want 1", len(links))
	}
}
