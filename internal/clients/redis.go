package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/Swap-nul/statusoverview/internal/config"
	"github.com/Swap-nul/statusoverview/internal/orchestrator"
)

const (
	redisProbeName = "redis"
	cacheKeyPrefix = "statusoverview:"
)

// redisConn is the subset of Redis used by RedisClient. It is implemented by
// the real go-redis client and by test doubles.
type redisConn interface {
	PingResult(ctx context.Context) (string, error)
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Close() error
}

// realRedisConn adapts *redis.Client to redisConn so tests never need to
// construct *redis.StatusCmd values.
type realRedisConn struct {
	client *redis.Client
}

func (r *realRedisConn) PingResult(ctx context.Context) (string, error) {
	return r.client.Ping(ctx).Result()
}

func (r *realRedisConn) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *realRedisConn) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, val, ttl).Err()
}

func (r *realRedisConn) Close() error {
	return r.client.Close()
}

// RedisClient is the response cache. It wraps a go-redis connection with a
// circuit breaker and exposes a Probe for health checks.
type RedisClient struct {
	cfg config.RedisConfig
	cb  *gobreaker.CircuitBreaker

	mu   sync.Mutex
	conn redisConn
}

// NewRedisClient creates a RedisClient. The go-redis client is built lazily
// on first use; go-redis itself dials on demand.
func NewRedisClient(cfg config.RedisConfig, cb *gobreaker.CircuitBreaker) *RedisClient {
	return &RedisClient{
		cfg: cfg,
		cb:  cb,
	}
}

// Probe sends a PING command to Redis and validates the PONG response. After
// 3 consecutive failures the breaker opens and calls return "circuit open".
func (c *RedisClient) Probe(ctx context.Context) orchestrator.ProbeResult {
	start := time.Now()

	_, err := c.cb.Execute(func() (any, error) {
		val, err := c.client().PingResult(ctx)
		if err != nil {
			return nil, fmt.Errorf("ping: %w", err)
		}
		if val != "PONG" {
			return nil, fmt.Errorf("unexpected PING response: %q", val)
		}
		return nil, nil
	})

	return probeResult(redisProbeName, start, err)
}

// GetJSON loads key into dst. It reports false on a cache miss.
func (c *RedisClient) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	res, err := c.cb.Execute(func() (any, error) {
		b, ok, err := c.client().Get(ctx, cacheKeyPrefix+key)
		if err != nil {
			return nil, fmt.Errorf("redis get %s: %w", key, err)
		}
		if !ok {
			return nil, nil
		}
		return b, nil
	})
	if err != nil {
		return false, err
	}

	b, _ := res.([]byte)
	if b == nil {
		return false, nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, fmt.Errorf("decoding cached %s: %w", key, err)
	}
	return true, nil
}

// SetJSON stores v under key for ttl.
func (c *RedisClient) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s for cache: %w", key, err)
	}

	_, err = c.cb.Execute(func() (any, error) {
		if err := c.client().Set(ctx, cacheKeyPrefix+key, b, ttl); err != nil {
			return nil, fmt.Errorf("redis set %s: %w", key, err)
		}
		return nil, nil
	})
	return err
}

// Close releases the underlying connection pool if one was built.
func (c *RedisClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *RedisClient) client() redisConn {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		c.conn = &realRedisConn{
			client: redis.NewClient(&redis.Options{
				Addr:     fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port),
				Password: c.cfg.Password,
				DB:       c.cfg.DB,
			}),
		}
	}
	return c.conn
}
