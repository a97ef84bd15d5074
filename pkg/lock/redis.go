package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"helpdesk-inbox/backend/pkg/logger"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "lock:"

// RedisLocker holds locks in Redis so several replicas serialize on the same key.
type RedisLocker struct {
	rs  *redsync.Redsync
	ttl time.Duration
	log *logger.Logger
}

// NewRedisLocker creates a Locker backed by client. ttl bounds how long a
// crashed holder can keep a key.
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration, log *logger.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &RedisLocker{
		rs:  redsync.New(goredis.NewPool(client)),
		ttl: ttl,
		log: log,
	}
}

// Lock implements Locker.
func (l *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	mutex := l.rs.NewMutex(keyPrefix+key,
		redsync.WithExpiry(l.ttl),
		redsync.WithRetryDelay(20*time.Millisecond),
		redsync.WithTries(int(l.ttl/(20*time.Millisecond))+1),
	)

	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to acquire lock %q: %w", key, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if _, err := mutex.UnlockContext(context.Background()); err != nil {
				l.log.Warn("Failed to release lock", "key", key, "error", err.Error())
			}
		})
	}, nil
}
