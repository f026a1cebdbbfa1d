package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const unreadKeyPrefix = "unread_count:"

// RedisCounter shares the unread-count cache across instances. Redis applies
// the TTL itself, so expiry never needs a lazy check here. Errors degrade to
// cache misses; the source of truth stays the database either way.
type RedisCounter struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCounter builds a counter on an established client.
func NewRedisCounter(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCounter {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisCounter{client: client, ttl: ttl, logger: logger}
}

func unreadKey(userID int64) string {
	return unreadKeyPrefix + strconv.FormatInt(userID, 10)
}

func (r *RedisCounter) Get(ctx context.Context, userID int64) (int64, bool) {
	val, err := r.client.Get(ctx, unreadKey(userID)).Int64()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("unread cache read failed", zap.Int64("user_id", userID), zap.Error(err))
		}
		return 0, false
	}
	return val, true
}

func (r *RedisCounter) Put(ctx context.Context, userID int64, count int64) {
	if err := r.client.Set(ctx, unreadKey(userID), count, r.ttl).Err(); err != nil {
		r.logger.Warn("unread cache write failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (r *RedisCounter) Invalidate(ctx context.Context, userID int64) {
	if err := r.client.Del(ctx, unreadKey(userID)).Err(); err != nil {
		r.logger.Warn("unread cache invalidation failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}
