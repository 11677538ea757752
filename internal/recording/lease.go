package recording

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Lease grants exclusive ownership of a candidate's capture device to one session.
type Lease interface {
	Acquire(ctx context.Context, deviceKey, owner string) error
	Release(ctx context.Context, deviceKey, owner string) error
}

// MemoryLease keeps ownership in process.
type MemoryLease struct {
	mu     sync.Mutex
	owners map[string]string
}

func NewMemoryLease() *MemoryLease {
	return &MemoryLease{owners: make(map[string]string)}
}

func (l *MemoryLease) Acquire(_ context.Context, deviceKey, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.owners[deviceKey]; ok && cur != owner {
		return ErrDeviceBusy
	}
	l.owners[deviceKey] = owner
	return nil
}

func (l *MemoryLease) Release(_ context.Context, deviceKey, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owners[deviceKey] == owner {
		delete(l.owners, deviceKey)
	}
	return nil
}

// releaseScript deletes the key only when it still belongs to the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLease shares device ownership across service instances.
type RedisLease struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisLease(client *redis.Client, ttl time.Duration) *RedisLease {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &RedisLease{client: client, prefix: "recording:device:", ttl: ttl}
}

func (l *RedisLease) Acquire(ctx context.Context, deviceKey, owner string) error {
	key := l.prefix + deviceKey
	ok, err := l.client.SetNX(ctx, key, owner, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire device lease: %w", err)
	}
	if ok {
		return nil
	}

	cur, err := l.client.Get(ctx, key).Result()
	if err == redis.Nil {
		// expired between SETNX and GET; try once more
		ok, err = l.client.SetNX(ctx, key, owner, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("failed to acquire device lease: %w", err)
		}
		if ok {
			return nil
		}
		return ErrDeviceBusy
	}
	if err != nil {
		return fmt.Errorf("failed to read device lease: %w", err)
	}
	if cur != owner {
		return ErrDeviceBusy
	}
	return l.client.Expire(ctx, key, l.ttl).Err()
}

func (l *RedisLease) Release(ctx context.Context, deviceKey, owner string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.prefix + deviceKey}, owner).Err(); err != nil {
		log.Error().Err(err).Str("deviceKey", deviceKey).Str("owner", owner).Msg("RedisLease: failed to release device lease")
		return fmt.Errorf("failed to release device lease: %w", err)
	}
	return nil
}
