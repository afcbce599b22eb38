package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	errs "github.com/jrsteele09/scaffold-dashboard/internal/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in redis so they survive a restart and every
// instance reads the latest stored tokens. Refreshes are only coordinated
// within one process: two instances can still exchange the same refresh token
// at once, so route a session to one instance when running several. Values
// are JSON encoded with a TTL equal to the remaining session lifetime.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a redis backed store. Keys are "<prefix>session:<id>".
func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (r *RedisStore) key(sessionID string) string {
	return r.prefix + "session:" + sessionID
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("sessionID is required")
	}

	data, err := r.rdb.Get(ctx, r.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errs.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[RedisStore Get] %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("[RedisStore Get] corrupt session %s: %w", sessionID, err)
	}
	return &s, nil
}

func (r *RedisStore) Upsert(ctx context.Context, session *Session, ttl time.Duration) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session ID is required")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("[RedisStore Upsert] encode: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := r.rdb.Set(ctx, r.key(session.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("[RedisStore Upsert] %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}
	if err := r.rdb.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("[RedisStore Delete] %w", err)
	}
	return nil
}
