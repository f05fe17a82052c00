package lineguard

import (
	"context"
	"fmt"
	"time"

	"coffeecart/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

type redisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// Redis shares claims between API replicas. Claims expire after ttl so a crashed
// holder cannot block a line forever.
type Redis struct {
	client redisClient
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedis(client redisClient, prefix string, ttl time.Duration, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := r.prefix + key
	value := uuid.NewString()
	ok, err := r.client.SetNX(ctx, redisKey, value, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire line lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrConflictInProgress
	}
	return func() {
		// Release must outlive a cancelled request context.
		relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.client.Eval(relCtx, releaseScript, []string{redisKey}, value).Err(); err != nil {
			r.logger.Warn("release line lock failed", zap.String("key", redisKey), zap.Error(err))
		}
	}, nil
}
