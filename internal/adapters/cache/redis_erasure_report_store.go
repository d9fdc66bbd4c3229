package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/viralforge/privacy-requests-service/internal/domain"
)

// RedisErasureReportStore keeps running erasure totals in a Redis hash and
// the per-page operator messages in a companion list.
type RedisErasureReportStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisErasureReportStore(client *redis.Client, ttl time.Duration) *RedisErasureReportStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisErasureReportStore{client: client, ttl: ttl}
}

func (s *RedisErasureReportStore) Add(ctx context.Context, requestID uuid.UUID, page domain.ErasurePage) error {
	countsKey := reportCountsKey(requestID)
	messagesKey := reportMessagesKey(requestID)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HIncrBy(ctx, countsKey, "items_removed", int64(page.ItemsRemoved))
		p.HIncrBy(ctx, countsKey, "items_retained", int64(page.ItemsRetained))
		if len(page.Messages) > 0 {
			values := make([]any, 0, len(page.Messages))
			for _, m := range page.Messages {
				values = append(values, m)
			}
			p.RPush(ctx, messagesKey, values...)
			p.Expire(ctx, messagesKey, s.ttl)
		}
		p.Expire(ctx, countsKey, s.ttl)
		return nil
	})
	return err
}

func (s *RedisErasureReportStore) Report(ctx context.Context, requestID uuid.UUID) (domain.ErasureReport, error) {
	counts, err := s.client.HGetAll(ctx, reportCountsKey(requestID)).Result()
	if err != nil {
		return domain.ErasureReport{}, err
	}
	report := domain.ErasureReport{}
	if raw, ok := counts["items_removed"]; ok {
		if n, convErr := strconv.Atoi(raw); convErr == nil {
			report.ItemsRemoved = n
		}
	}
	if raw, ok := counts["items_retained"]; ok {
		if n, convErr := strconv.Atoi(raw); convErr == nil {
			report.ItemsRetained = n
		}
	}

	messages, err := s.client.LRange(ctx, reportMessagesKey(requestID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.ErasureReport{}, err
	}
	report.Messages = messages
	return report, nil
}

func (s *RedisErasureReportStore) Clear(ctx context.Context, requestID uuid.UUID) error {
	return s.client.Del(ctx, reportCountsKey(requestID), reportMessagesKey(requestID)).Err()
}

func reportCountsKey(requestID uuid.UUID) string {
	return "privacy:erasure:counts:" + requestID.String()
}

func reportMessagesKey(requestID uuid.UUID) string {
	return "privacy:erasure:messages:" + requestID.String()
}
