package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const releaseScript = `
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	else
		return 0
	end`

// Redis shares leases between bot replicas. A lease expires after ttl even
// if its holder dies, so ttl must exceed the longest delivery plus commit.
type Redis struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl, prefix: "remindline:lease:"}
}

// Dial connects to the server named by a redis:// URL and pings it.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), bool, error) {
	full := r.prefix + key
	token := uuid.NewString()

	ok, err := r.rdb.SetNX(ctx, full, token, r.ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}

	return func() {
		// Release must run even when the caller's context is already cancelled.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = r.rdb.Eval(rctx, releaseScript, []string{full}, token).Err()
	}, true, nil
}
