package twofactor

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const markerKeyPrefix = "twofactor:verified:"

// RedisMarkerStore implements MarkerStore on Redis so markers survive
// restarts and are shared across instances. Expiry is delegated to
// the key TTL.
type RedisMarkerStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisMarkerStore creates a Redis-backed marker store.
func NewRedisMarkerStore(client *redis.Client, ttl time.Duration) *RedisMarkerStore {
	if ttl <= 0 {
		ttl = DefaultMarkerTTL
	}
	return &RedisMarkerStore{client: client, ttl: ttl}
}

func (r *RedisMarkerStore) MarkVerified(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrMarkerStore
	}
	if err := r.client.Set(ctx, markerKeyPrefix+userID, "1", r.ttl).Err(); err != nil {
		return errors.Join(ErrMarkerStore, err)
	}
	return nil
}

func (r *RedisMarkerStore) IsVerified(ctx context.Context, userID string) (bool, error) {
	n, err := r.client.Exists(ctx, markerKeyPrefix+userID).Result()
	if err != nil {
		return false, errors.Join(ErrMarkerStore, err)
	}
	return n > 0, nil
}

func (r *RedisMarkerStore) Clear(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, markerKeyPrefix+userID).Err(); err != nil {
		return errors.Join(ErrMarkerStore, err)
	}
	return nil
}

var _ MarkerStore = (*RedisMarkerStore)(nil)
