package cache

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Connect opens the Redis client that backs job progress and export bundle
// storage. The dependency config may name the server as a redis:// URL
// (with credentials and db index) or as a bare host:port.
func Connect(_ context.Context, redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") {
		opt, parseErr := redis.ParseURL(redisURL)
		if parseErr != nil {
			return nil, fmt.Errorf("parse redis url: %w", parseErr)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}
