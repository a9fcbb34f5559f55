// Package memory provides an in-memory ArtifactStore, used by tests and
// by embedders that want a throwaway session tree.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/wefthq/weft/pkg/domain"
)

// Store implements ports.ArtifactStore in memory. Safe for concurrent use.
// Directories are implicit: they exist whenever a file lives below them.
type Store struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{files: make(map[string][]byte)}
}

// Exists reports whether path names a file or an implicit directory.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.files[path]; ok {
		return true, nil
	}
	prefix := path + "/"
	for name := range s.files {
		if strings.HasPrefix(name, prefix) {
			return true, nil
		}
	}
	return false, nil
}

// Read returns a copy of the file content.
func (s *Store) Read(ctx context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.files[path]
	if !ok {
		return nil, domain.ErrArtifactNotFound
	}
	return append([]byte(nil), data...), nil
}

// CreateAtomically stores data under path, failing if the path is taken.
func (s *Store) CreateAtomically(ctx context.Context, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[path]; ok {
		return domain.ErrArtifactExists
	}
	s.files[path] = append([]byte(nil), data...)
	return nil
}

// ListChildren returns the distinct immediate entry names under path.
func (s *Store) ListChildren(ctx context.Context, path string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := ""
	if path != "" && path != "." {
		prefix = path + "/"
	}

	seen := make(map[string]bool)
	var out []string
	for name := range s.files {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := strings.TrimPrefix(name, prefix)
		entry, _, _ := strings.Cut(rest, "/")
		if entry != "" && !seen[entry] {
			seen[entry] = true
			out = append(out, entry)
		}
	}
	return out, nil
}
