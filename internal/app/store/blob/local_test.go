package blob_test

import (
	"context"
	"testing"

	"github.com/dalemusser/caseroom/internal/app/store/blob"
)

func TestLocal_SaveReadDeleteExists(t *testing.T) {
	store, err := blob.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal failed: %v", err)
	}
	ctx := context.Background()

	if err := store.Save(ctx, "key-1", []byte("contract body")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	ok, err := store.Exists(ctx, "key-1")
	if err != nil || !ok {
		t.Fatalf("Exists: got %v, %v; want true, nil", ok, err)
	}

	data, err := store.Read(ctx, "key-1")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(data) != "contract body" {
		t.Errorf("Read: got %q, want %q", data, "contract body")
	}

	deleted, err := store.Delete(ctx, "key-1")
	if err != nil || !deleted {
		t.Fatalf("Delete: got %v, %v; want true, nil", deleted, err)
	}

	// Second delete reports the key was already gone.
	deleted, err = store.Delete(ctx, "key-1")
	if err != nil {
		t.Fatalf("Delete (missing) failed: %v", err)
	}
	if deleted {
		t.Error("Delete reported true for a missing key")
	}
}

func TestLocal_RejectsTraversalKeys(t *testing.T) {
	store, err := blob.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal failed: %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"", "../escape", "a/b", `a\b`} {
		if err := store.Save(ctx, key, []byte("x")); err == nil {
			t.Errorf("Save accepted invalid key %q", key)
		}
	}
}
