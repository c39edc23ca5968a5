package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the shared cache connection
type RedisConfig struct {
	Addr     string // e.g. localhost:6379
	Password string
	DB       int
}

// casScript stores {seq, val} in a hash and refuses to go backwards.
// Sequences must stay below 2^53 to compare exactly as Lua numbers.
var casScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'seq')
if cur and tonumber(cur) > tonumber(ARGV[1]) then
  return 0
end
redis.call('HSET', KEYS[1], 'seq', ARGV[1], 'val', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// RedisBackend is the durable shared Backend.
type RedisBackend struct {
	client redis.UniversalClient
}

// NewRedisBackend connects and verifies the server with a ping.
func NewRedisBackend(ctx context.Context, cfg RedisConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return &RedisBackend{client: client}, nil
}

// NewRedisBackendWithClient wraps an existing client.
func NewRedisBackendWithClient(client redis.UniversalClient) *RedisBackend {
	return &RedisBackend{client: client}
}

func (r *RedisBackend) Load(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.HGet(ctx, key, "val").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return val, nil
}

func (r *RedisBackend) StoreIfNewer(ctx context.Context, key string, seq uint64, value []byte, ttl time.Duration) (bool, error) {
	n, err := casScript.Run(ctx, r.client, []string{key}, seq, value, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to store %s: %w", key, err)
	}
	return n == 1, nil
}

func (r *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

func (r *RedisBackend) Flush(ctx context.Context, prefix string) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan %s*: %w", prefix, err)
		}
		if err := r.Delete(ctx, keys...); err != nil {
			return err
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close closes the underlying Redis client
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
