package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/viralforge/privacy-requests-service/internal/ports"
)

// RedisJobProgressStore persists per-request run cursors so an interrupted
// driver can resume a job from its last completed step. Entries expire after
// the TTL; a stale cursor just means the run starts over.
type RedisJobProgressStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisJobProgressStore(client *redis.Client, ttl time.Duration) *RedisJobProgressStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisJobProgressStore{client: client, ttl: ttl}
}

func (s *RedisJobProgressStore) Get(ctx context.Context, requestID uuid.UUID) (*ports.JobProgress, error) {
	raw, err := s.client.Get(ctx, progressKey(requestID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var out ports.JobProgress
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *RedisJobProgressStore) Put(ctx context.Context, requestID uuid.UUID, progress ports.JobProgress) error {
	raw, err := json.Marshal(progress)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, progressKey(requestID), raw, s.ttl).Err()
}

func (s *RedisJobProgressStore) Clear(ctx context.Context, requestID uuid.UUID) error {
	return s.client.Del(ctx, progressKey(requestID)).Err()
}

func progressKey(requestID uuid.UUID) string {
	return "privacy:progress:" + requestID.String()
}
