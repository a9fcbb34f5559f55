// Package file implements the ArtifactStore on the local filesystem.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wefthq/weft/pkg/domain"
)

// Store keeps one session tree under BasePath. Store paths are
// slash-separated and mapped onto the host filesystem.
type Store struct {
	BasePath string
}

// New creates a store rooted at basePath. If basePath is empty, it
// defaults to ".weft/session".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".weft", "session")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) abs(path string) string {
	if path == "" || path == "." {
		return s.BasePath
	}
	return filepath.Join(s.BasePath, filepath.FromSlash(path))
}

// Exists reports whether path names a file or directory.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(s.abs(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", path, err)
}

// Read returns the file content.
func (s *Store) Read(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(s.abs(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// CreateAtomically writes data to path only if nothing exists there.
//
// The content is written to a temp file in the destination directory,
// fsynced, and hard-linked into place. Linking fails when the destination
// exists, so concurrent creators observe exactly one winner and a reader
// can never see a partially written artifact.
func (s *Store) CreateAtomically(ctx context.Context, path string, data []byte) error {
	dest := s.abs(path)
	dir := filepath.Dir(dest)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure directory for %s: %w", path, err)
	}

	// Fail fast before paying for the temp file.
	if _, err := os.Stat(dest); err == nil {
		return domain.ErrArtifactExists
	}

	tmp, err := os.CreateTemp(dir, ".weft-tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Link(tmpPath, dest); err != nil {
		if errors.Is(err, os.ErrExist) {
			return domain.ErrArtifactExists
		}
		return fmt.Errorf("failed to link %s into place: %w", path, err)
	}
	return nil
}

// ListChildren returns the entry names under path. A missing directory is
// an empty list, not an error.
func (s *Store) ListChildren(ctx context.Context, path string) ([]string, error) {
	entries, err := os.ReadDir(s.abs(path))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", path, err)
	}

	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Name())
	}
	return out, nil
}
