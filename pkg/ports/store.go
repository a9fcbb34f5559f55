package ports

import "context"

// ArtifactStore is the storage capability the core requires. Paths are
// slash-separated and relative to one session root.
//
// Implementations must guarantee atomic create-or-fail semantics for
// CreateAtomically: two concurrent creators of the same path must observe
// exactly one success and one domain.ErrArtifactExists.
type ArtifactStore interface {
	// Exists reports whether a file exists at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Read returns the file content at path.
	// Returns domain.ErrArtifactNotFound when the path is absent.
	Read(ctx context.Context, path string) ([]byte, error)

	// CreateAtomically writes data to path only if nothing exists there.
	// Returns domain.ErrArtifactExists when the path is already taken.
	// A failed create never leaves a partial file behind.
	CreateAtomically(ctx context.Context, path string, data []byte) error

	// ListChildren returns the immediate child entry names under path, in
	// unspecified order. A missing directory yields an empty list, not an
	// error.
	ListChildren(ctx context.Context, path string) ([]string, error)
}
