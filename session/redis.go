package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "adminsession:"
	flowKeyPrefix    = "convstate:"
)

// RedisStore keeps admin sessions in Redis so concurrent webhook instances
// share one view of who is logged in. The sliding TTL is enforced by Redis
// itself: reads refresh the key expiry via GETEX.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (r *RedisStore) Put(ctx context.Context, s Session) error {
	if s.LastActivity.IsZero() {
		s.LastActivity = time.Now()
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.rdb.Set(ctx, sessionKeyPrefix+s.ConversationID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, conversationID string) (*Session, error) {
	data, err := r.rdb.GetEx(ctx, sessionKeyPrefix+conversationID, r.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	s.LastActivity = time.Now()
	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, conversationID string) error {
	if err := r.rdb.Del(ctx, sessionKeyPrefix+conversationID).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op: Redis evicts expired session keys itself.
func (r *RedisStore) DeleteExpired(context.Context) (int, error) { return 0, nil }

func (r *RedisStore) Count(ctx context.Context) (int, error) {
	var cursor uint64
	n := 0
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, sessionKeyPrefix+"*", 100).Result()
		if err != nil {
			return 0, fmt.Errorf("scan sessions: %w", err)
		}
		n += len(keys)
		cursor = next
		if cursor == 0 {
			return n, nil
		}
	}
}

// RedisFlowStore keeps pending flows in Redis. Flows carry no TTL; they live
// until completed or replaced by a new command.
type RedisFlowStore struct {
	rdb *redis.Client
}

func NewRedisFlowStore(rdb *redis.Client) *RedisFlowStore {
	return &RedisFlowStore{rdb: rdb}
}

func (r *RedisFlowStore) Put(ctx context.Context, f Flow) error {
	if f.UpdatedAt.IsZero() {
		f.UpdatedAt = time.Now()
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal flow: %w", err)
	}
	if err := r.rdb.Set(ctx, flowKeyPrefix+f.ConversationID, data, 0).Err(); err != nil {
		return fmt.Errorf("save flow: %w", err)
	}
	return nil
}

func (r *RedisFlowStore) Get(ctx context.Context, conversationID string) (*Flow, error) {
	data, err := r.rdb.Get(ctx, flowKeyPrefix+conversationID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load flow: %w", err)
	}
	var f Flow
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshal flow: %w", err)
	}
	return &f, nil
}

func (r *RedisFlowStore) Delete(ctx context.Context, conversationID string) error {
	if err := r.rdb.Del(ctx, flowKeyPrefix+conversationID).Err(); err != nil {
		return fmt.Errorf("delete flow: %w", err)
	}
	return nil
}
