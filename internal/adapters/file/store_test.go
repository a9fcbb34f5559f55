package file_test

import (
	"context"
	"testing"

	"github.com/wefthq/weft/internal/adapters/file"
	"github.com/wefthq/weft/pkg/ports"
)

func TestFileStore_Contract(t *testing.T) {
	store := file.New(t.TempDir())
	ports.RunArtifactStoreContract(t, store)
}

func TestFileStore_NoTempLeftovers(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	if err := store.CreateAtomically(ctx, "a/meta/a.json", []byte("{}")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	entries, err := store.ListChildren(ctx, "a/meta")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(entries) != 1 || entries[0] != "a.json" {
		t.Errorf("temp files leaked into the tree: %v", entries)
	}
}
