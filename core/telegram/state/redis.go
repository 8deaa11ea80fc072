package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions as JSON values with a TTL refreshed on every save.
type RedisStore[S comparable, F any] struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore builds a Redis-backed store; keys are "<prefix>:<userID>".
func NewRedisStore[S comparable, F any](client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore[S, F] {
	return &RedisStore[S, F]{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisStore[S, F]) key(userID int64) string {
	return r.prefix + ":" + strconv.FormatInt(userID, 10)
}

// Load implements Store.
func (r *RedisStore[S, F]) Load(ctx context.Context, userID int64) (Session[S, F], bool, error) {
	var sess Session[S, F]
	raw, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return sess, false, nil
	}
	if err != nil {
		return sess, false, fmt.Errorf("load session: %w", err)
	}
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session[S, F]{}, false, fmt.Errorf("decode session: %w", err)
	}
	return sess, true, nil
}

// Save implements Store.
func (r *RedisStore[S, F]) Save(ctx context.Context, userID int64, s Session[S, F]) error {
	s.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(userID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Erase implements Store.
func (r *RedisStore[S, F]) Erase(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("erase session: %w", err)
	}
	return nil
}
