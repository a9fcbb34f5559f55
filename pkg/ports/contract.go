package ports

import (
	"context"
	"errors"
	"testing"

	"github.com/wefthq/weft/pkg/domain"
)

// RunArtifactStoreContract runs a suite of tests verifying that an
// ArtifactStore implementation complies with the expected semantics.
// Adapter tests (memory, file, redis) all delegate to it.
func RunArtifactStoreContract(t *testing.T, store ArtifactStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("Read_Missing", func(t *testing.T) {
		_, err := store.Read(ctx, "gather/meta/gather.json")
		if !errors.Is(err, domain.ErrArtifactNotFound) {
			t.Errorf("expected ErrArtifactNotFound, got %v", err)
		}
	})

	t.Run("Exists_Missing", func(t *testing.T) {
		ok, err := store.Exists(ctx, "gather/meta/gather.json")
		if err != nil {
			t.Fatalf("Exists failed: %v", err)
		}
		if ok {
			t.Error("missing path reported as existing")
		}
	})

	t.Run("Create_Then_Read", func(t *testing.T) {
		payload := []byte(`{"stage":"gather"}`)
		if err := store.CreateAtomically(ctx, "gather/meta/gather.json", payload); err != nil {
			t.Fatalf("CreateAtomically failed: %v", err)
		}

		ok, err := store.Exists(ctx, "gather/meta/gather.json")
		if err != nil || !ok {
			t.Fatalf("Exists after create = (%v, %v), want (true, nil)", ok, err)
		}

		data, err := store.Read(ctx, "gather/meta/gather.json")
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if string(data) != string(payload) {
			t.Errorf("Read = %q, want %q", data, payload)
		}
	})

	t.Run("Create_Existing_Fails", func(t *testing.T) {
		err := store.CreateAtomically(ctx, "gather/meta/gather.json", []byte("other"))
		if !errors.Is(err, domain.ErrArtifactExists) {
			t.Errorf("expected ErrArtifactExists, got %v", err)
		}

		// The original content must be untouched.
		data, err := store.Read(ctx, "gather/meta/gather.json")
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if string(data) != `{"stage":"gather"}` {
			t.Errorf("existing artifact was overwritten: %q", data)
		}
	})

	t.Run("ListChildren", func(t *testing.T) {
		if err := store.CreateAtomically(ctx, "search/gather@b1/meta/gather.json", []byte("{}")); err != nil {
			t.Fatalf("CreateAtomically failed: %v", err)
		}
		if err := store.CreateAtomically(ctx, "search/gather/meta/gather.json", []byte("{}")); err != nil {
			t.Fatalf("CreateAtomically failed: %v", err)
		}

		entries, err := store.ListChildren(ctx, "search")
		if err != nil {
			t.Fatalf("ListChildren failed: %v", err)
		}

		lookup := make(map[string]bool, len(entries))
		for _, e := range entries {
			lookup[e] = true
		}
		if !lookup["gather"] || !lookup["gather@b1"] {
			t.Errorf("ListChildren = %v, want gather and gather@b1", entries)
		}
	})

	t.Run("ListChildren_Missing", func(t *testing.T) {
		entries, err := store.ListChildren(ctx, "nowhere")
		if err != nil {
			t.Fatalf("ListChildren on missing dir failed: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("expected empty list, got %v", entries)
		}
	})
}
