package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/viralforge/privacy-requests-service/internal/domain"
)

// RedisExportBundleStore accumulates exported items in a Redis list, one JSON
// entry per item, preserving append order across steps.
type RedisExportBundleStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisExportBundleStore(client *redis.Client, ttl time.Duration) *RedisExportBundleStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisExportBundleStore{client: client, ttl: ttl}
}

func (s *RedisExportBundleStore) Append(ctx context.Context, requestID uuid.UUID, items []domain.ExportItem) error {
	if len(items) == 0 {
		return nil
	}
	values := make([]any, 0, len(items))
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return err
		}
		values = append(values, raw)
	}
	key := bundleKey(requestID)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, key, values...)
		p.Expire(ctx, key, s.ttl)
		return nil
	})
	return err
}

func (s *RedisExportBundleStore) Items(ctx context.Context, requestID uuid.UUID) ([]domain.ExportItem, error) {
	raws, err := s.client.LRange(ctx, bundleKey(requestID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	items := make([]domain.ExportItem, 0, len(raws))
	for _, raw := range raws {
		var item domain.ExportItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *RedisExportBundleStore) Clear(ctx context.Context, requestID uuid.UUID) error {
	return s.client.Del(ctx, bundleKey(requestID)).Err()
}

func bundleKey(requestID uuid.UUID) string {
	return "privacy:export:" + requestID.String()
}
