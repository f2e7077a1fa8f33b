package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/habitlink/habitlink-backend/internal/logger"
)

// Locker is the per-requester mutual-exclusion guard around a
// recommendation computation. Two overlapping stale reads for the same user
// must not both run the delete-and-replace.
type Locker interface {
	// Acquire blocks until the lock is held or ctx expires. The returned
	// release func is safe to call exactly once.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
	Close() error
}

type redisLocker struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

// release is a compare-and-delete so an expired lock taken over by another
// holder is never deleted out from under them.
var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0
`)

func NewLocker(log *logger.Logger) (Locker, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	prefix := strings.TrimSpace(os.Getenv("REDIS_LOCK_PREFIX"))
	if prefix == "" {
		prefix = "matching:lock"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisLocker{
		log:    log.With("service", "RedisLocker"),
		rdb:    rdb,
		prefix: prefix,
	}, nil
}

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if l == nil || l.rdb == nil {
		return nil, fmt.Errorf("locker not initialized")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	fullKey := l.prefix + ":" + key
	token := uuid.NewString()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		ok, err := l.rdb.SetNX(ctx, fullKey, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis setnx: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("lock acquire: %w", ctx.Err())
		case <-ticker.C:
		}
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.rdb, []string{fullKey}, token).Err(); err != nil {
			l.log.Warn("lock release failed", "key", fullKey, "error", err)
		}
	}
	return release, nil
}

func (l *redisLocker) Close() error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Close()
}
