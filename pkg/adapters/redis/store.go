// Package redis implements the ArtifactStore and the distributed write
// lock on Redis, for deployments where several engine instances share one
// session tree.
package redis

import (
	"context"
	"errors"
	"fmt"
	"path"

	backend "github.com/redis/go-redis/v9"

	"github.com/wefthq/weft/pkg/domain"
)

// Store implements ports.ArtifactStore on Redis. Files live in string
// keys; directory listings are kept in companion sets so ListChildren
// stays O(children).
type Store struct {
	client *backend.Client
	prefix string
}

// Option configures the Store.
type Option func(*Store)

// WithPrefix sets the key prefix (default "weft:artifact:").
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "weft:artifact:",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) fileKey(p string) string {
	return s.prefix + "file:" + p
}

func (s *Store) dirKey(p string) string {
	if p == "." {
		p = ""
	}
	return s.prefix + "dir:" + p
}

// Exists reports whether path names a file or a listed directory.
func (s *Store) Exists(ctx context.Context, p string) (bool, error) {
	n, err := s.client.Exists(ctx, s.fileKey(p), s.dirKey(p)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists failed for %s: %w", p, err)
	}
	return n > 0, nil
}

// Read returns the file content at path.
func (s *Store) Read(ctx context.Context, p string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.fileKey(p)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, domain.ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis read failed for %s: %w", p, err)
	}
	return data, nil
}

// CreateAtomically claims the path with SETNX and then records the entry
// in every ancestor directory set.
func (s *Store) CreateAtomically(ctx context.Context, p string, data []byte) error {
	ok, err := s.client.SetNX(ctx, s.fileKey(p), data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis create failed for %s: %w", p, err)
	}
	if !ok {
		return domain.ErrArtifactExists
	}

	pipe := s.client.Pipeline()
	for child := p; child != "" && child != "."; {
		parent := path.Dir(child)
		if parent == "." {
			parent = ""
		}
		pipe.SAdd(ctx, s.dirKey(parent), path.Base(child))
		child = parent
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis directory index update failed for %s: %w", p, err)
	}
	return nil
}

// ListChildren returns the entry names recorded under path.
func (s *Store) ListChildren(ctx context.Context, p string) ([]string, error) {
	entries, err := s.client.SMembers(ctx, s.dirKey(p)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list failed for %s: %w", p, err)
	}
	return entries, nil
}
