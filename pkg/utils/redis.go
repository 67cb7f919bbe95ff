package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig controls redis client behavior.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	PoolSize     int
	MinIdleConns int

	PingTimeout time.Duration
}

func (c RedisConfig) withDefaults() RedisConfig {
	out := c
	if out.DialTimeout <= 0 {
		out.DialTimeout = 3 * time.Second
	}
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = 2 * time.Second
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = 2 * time.Second
	}
	if out.PoolSize <= 0 {
		out.PoolSize = 20
	}
	if out.MinIdleConns < 0 {
		out.MinIdleConns = 0
	}
	if out.PingTimeout <= 0 {
		out.PingTimeout = 2 * time.Second
	}
	return out
}

// OpenRedis initializes a Redis client and validates connectivity via PING.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	cfg = cfg.withDefaults()
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

var concurrencyAcquireScript = redis.NewScript(`
-- KEYS[1] = holder set (member = holder, score = lease expiry ms)
-- ARGV[1] = holder
-- ARGV[2] = limit (int)
-- ARGV[3] = now_ms
-- ARGV[4] = ttl_ms
-- Returns 1 if held (new or renewed), 0 if the limit is reached.
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[3])
local expiry = tonumber(ARGV[3]) + tonumber(ARGV[4])
if redis.call('ZSCORE', KEYS[1], ARGV[1]) then
  redis.call('ZADD', KEYS[1], expiry, ARGV[1])
  redis.call('PEXPIRE', KEYS[1], ARGV[4])
  return 1
end
if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[2]) then
  return 0
end
redis.call('ZADD', KEYS[1], expiry, ARGV[1])
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return 1
`)

var concurrencyReleaseScript = redis.NewScript(`
-- KEYS[1] = holder set
-- ARGV[1] = holder
-- Returns 1 if the holder had a slot, 0 otherwise.
local removed = redis.call('ZREM', KEYS[1], ARGV[1])
if redis.call('ZCARD', KEYS[1]) == 0 then
  redis.call('DEL', KEYS[1])
end
return removed
`)

// ConcurrencyCap bounds how many holders may hold a slot per key at once.
// Slots are leased per holder: releasing a holder that has no slot is a no-op,
// and expired leases (a crashed holder) are reclaimed on the next Acquire.
type ConcurrencyCap struct {
	rdb    redis.Scripter
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewConcurrencyCap returns a cap whose keys are "<prefix>:<key>".
func NewConcurrencyCap(rdb redis.Scripter, prefix string, ttl time.Duration) *ConcurrencyCap {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ConcurrencyCap{rdb: rdb, prefix: prefix, ttl: ttl, now: time.Now}
}

func (c *ConcurrencyCap) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

func (c *ConcurrencyCap) check(key, holder string) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("redis client is nil")
	}
	if key == "" {
		return fmt.Errorf("key is required")
	}
	if holder == "" {
		return fmt.Errorf("holder is required")
	}
	return nil
}

// Acquire takes (or renews) holder's slot for key if fewer than limit are held.
func (c *ConcurrencyCap) Acquire(ctx context.Context, key, holder string, limit int) (bool, error) {
	if err := c.check(key, holder); err != nil {
		return false, err
	}
	if limit <= 0 {
		return false, fmt.Errorf("limit must be > 0")
	}
	res, err := concurrencyAcquireScript.Run(ctx, c.rdb, []string{c.key(key)},
		holder, limit, c.now().UnixMilli(), c.ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// Release gives back holder's slot. It reports whether holder had one.
func (c *ConcurrencyCap) Release(ctx context.Context, key, holder string) (bool, error) {
	if err := c.check(key, holder); err != nil {
		return false, err
	}
	res, err := concurrencyReleaseScript.Run(ctx, c.rdb, []string{c.key(key)}, holder).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}
