package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for the redis store
type RedisConfig struct {
	Addr        string
	User        string
	Password    string
	DB          int
	MaxRetries  int
	DialTimeout time.Duration
	Timeout     time.Duration
	Prefix      string
}

// Redis shares cooldowns between processes with SET NX PX
type Redis struct {
	db     redis.UniversalClient
	period time.Duration
	prefix string
}

// NewRedisClient opens a client and checks the connection
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	const op = "cooldown.NewRedisClient"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return db, nil
}

// NewRedis returns a store allowing one call per key every period
func NewRedis(db redis.UniversalClient, period time.Duration, prefix string) *Redis {
	if prefix == "" {
		prefix = "cooldown:"
	}
	return &Redis{
		db:     db,
		period: period,
		prefix: prefix,
	}
}

// Acquire reports whether key may run now. When it may not, the remaining
// TTL of the key is returned.
func (r *Redis) Acquire(ctx context.Context, key string) (bool, time.Duration, error) {
	const op = "cooldown.Redis.Acquire"
	if r.period <= 0 {
		return true, 0, nil
	}

	k := r.prefix + key
	ok, err := r.db.SetNX(ctx, k, 1, r.period).Result()
	if err != nil {
		return false, 0, fmt.Errorf("%s: %w", op, err)
	}
	if ok {
		return true, 0, nil
	}

	ttl, err := r.db.PTTL(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("%s: %w", op, err)
	}
	if ttl <= 0 {
		ttl = r.period
	}
	return false, ttl, nil
}

// Reset removes the cooldown for key
func (r *Redis) Reset(ctx context.Context, key string) error {
	return r.db.Del(ctx, r.prefix+key).Err()
}
