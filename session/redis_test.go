package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis skips unless TEST_REDIS_ADDR points at a reachable Redis.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisStoreRoundTrip(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()
	store := NewRedisStore(rdb, time.Minute)

	t.Cleanup(func() { rdb.Del(ctx, sessionKeyPrefix+"test-5") })

	if err := store.Put(ctx, Session{ConversationID: "test-5", Email: "admin@example.com", AccessToken: "tok"}); err != nil {
		t.Fatal(err)
	}
	s, err := store.Get(ctx, "test-5")
	if err != nil || s == nil {
		t.Fatalf("Get = %v, %v", s, err)
	}
	if s.Email != "admin@example.com" || s.AccessToken != "tok" {
		t.Errorf("session = %+v", s)
	}

	// Get refreshes the TTL.
	ttl, err := rdb.TTL(ctx, sessionKeyPrefix+"test-5").Result()
	if err != nil {
		t.Fatal(err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("ttl = %v", ttl)
	}

	if err := store.Delete(ctx, "test-5"); err != nil {
		t.Fatal(err)
	}
	if s, _ := store.Get(ctx, "test-5"); s != nil {
		t.Error("session survived delete")
	}
}

func TestRedisFlowStoreRoundTrip(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()
	store := NewRedisFlowStore(rdb)

	t.Cleanup(func() { rdb.Del(ctx, flowKeyPrefix+"test-5") })

	if err := store.Put(ctx, Flow{ConversationID: "test-5", Step: StepAwaitingURL}); err != nil {
		t.Fatal(err)
	}
	f, err := store.Get(ctx, "test-5")
	if err != nil || f == nil {
		t.Fatalf("Get = %v, %v", f, err)
	}
	if f.Step != StepAwaitingURL {
		t.Errorf("flow = %+v", f)
	}
	if err := store.Delete(ctx, "test-5"); err != nil {
		t.Fatal(err)
	}
	if f, _ := store.Get(ctx, "test-5"); f != nil {
		t.Error("flow survived delete")
	}
}
