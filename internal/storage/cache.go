package storage

import (
	"context"
	"errors"
	"strconv"

	"kiitcms/backend/internal/config"
	"kiitcms/backend/internal/logger"

	"github.com/redis/go-redis/v9"
)

const countKeyPrefix = "stats:count:"

// cachedCount serves a count from Redis when present. Redis problems are
// logged and fall through to the database; they never fail the count.
func (s *Service) cachedCount(ctx context.Context, key string, load func() (int64, error)) (int64, error) {
	if s.Redis == nil {
		return load()
	}

	raw, err := s.Redis.Get(ctx, countKeyPrefix+key).Result()
	switch {
	case err == nil:
		if n, convErr := strconv.ParseInt(raw, 10, 64); convErr == nil {
			return n, nil
		}
	case !errors.Is(err, redis.Nil):
		logger.Warn().Err(err).Str("key", key).Msg("count cache read failed")
	}

	n, err := load()
	if err != nil {
		return 0, err
	}
	if err := s.Redis.Set(ctx, countKeyPrefix+key, n, config.StatsCacheTTL).Err(); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("count cache write failed")
	}
	return n, nil
}

// invalidateCounts drops every cached count. Called after each committed write.
func (s *Service) invalidateCounts(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	iter := s.Redis.Scan(ctx, 0, countKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.Warn().Err(err).Msg("count cache scan failed")
		return
	}
	if len(keys) > 0 {
		if err := s.Redis.Del(ctx, keys...).Err(); err != nil {
			logger.Warn().Err(err).Msg("count cache invalidate failed")
		}
	}
}
