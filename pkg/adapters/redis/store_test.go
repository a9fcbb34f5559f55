package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"

	redisadapter "github.com/wefthq/weft/pkg/adapters/redis"
	"github.com/wefthq/weft/pkg/ports"
)

func newTestClient(t *testing.T) *backend.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	return backend.NewClient(&backend.Options{Addr: srv.Addr()})
}

func TestRedisStore_Contract(t *testing.T) {
	store := redisadapter.NewFromClient(newTestClient(t))
	ports.RunArtifactStoreContract(t, store)
}

func TestRedisLocker_MutualExclusion(t *testing.T) {
	client := newTestClient(t)
	locker := redisadapter.NewLocker(client, "weft:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "sess-1/gather", 5*time.Second)
	if err != nil {
		t.Fatalf("first lock failed: %v", err)
	}

	// A second holder must not acquire while the first is held.
	blockedCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(blockedCtx, "sess-1/gather", 5*time.Second); err == nil {
		t.Fatal("second lock acquired while first was held")
	}

	if err := unlock(ctx); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}

	unlock2, err := locker.Lock(ctx, "sess-1/gather", 5*time.Second)
	if err != nil {
		t.Fatalf("lock after release failed: %v", err)
	}
	_ = unlock2(ctx)
}
