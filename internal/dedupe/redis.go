package dedupe

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisStore shares seen texts between processes through a Redis set, so
// separate runs and splits can avoid emitting the same utterance twice.
type RedisStore struct {
	client *redis.Client
	config *Config
	logger *zap.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisStore creates a new Redis-based dedupe store
func NewRedisStore(config *Config, logger *zap.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.MaxConnections > 0 {
		opts.PoolSize = config.MaxConnections
	}
	opts.MinIdleConns = config.MinIdleConns

	store := &RedisStore{
		client: redis.NewClient(opts),
		config: config,
		logger: logger,
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.client.Ping(ctx).Err(); err != nil {
		store.client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Dedupe store initialized",
		zap.String("redis_url", maskRedisURL(config.RedisURL)),
		zap.String("set_key", store.setKey()),
		zap.Duration("ttl", config.TTL))

	return store, nil
}

// Seen implements Store with a single SADD; the reply tells whether the
// member was new.
func (rs *RedisStore) Seen(ctx context.Context, text string) (bool, error) {
	key := rs.setKey()
	added, err := rs.client.SAdd(ctx, key, TextHash(text)).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe lookup failed: %w", err)
	}

	if rs.config.TTL > 0 && added > 0 {
		if err := rs.client.Expire(ctx, key, rs.config.TTL).Err(); err != nil {
			rs.logger.Warn("Failed to refresh dedupe TTL", zap.Error(err))
		}
	}

	if added == 0 {
		rs.hits.Add(1)
		return true, nil
	}
	rs.misses.Add(1)
	return false, nil
}

// Stats implements Store.
func (rs *RedisStore) Stats(ctx context.Context) (*Stats, error) {
	total, err := rs.client.SCard(ctx, rs.setKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to count dedupe keys: %w", err)
	}

	hits, misses := rs.hits.Load(), rs.misses.Load()
	return &Stats{
		Hits:      hits,
		Misses:    misses,
		HitRate:   hitRate(hits, misses),
		TotalKeys: total,
	}, nil
}

// Clear implements Store.
func (rs *RedisStore) Clear(ctx context.Context) error {
	if err := rs.client.Del(ctx, rs.setKey()).Err(); err != nil {
		return fmt.Errorf("failed to clear dedupe set: %w", err)
	}
	rs.logger.Info("Dedupe store cleared", zap.String("set_key", rs.setKey()))
	return nil
}

// Close closes the Redis connection
func (rs *RedisStore) Close() error {
	if rs.client != nil {
		return rs.client.Close()
	}
	return nil
}

func (rs *RedisStore) setKey() string {
	return setKey(rs.config.KeyPrefix)
}

func setKey(prefix string) string {
	if prefix == "" {
		prefix = "datagen"
	}
	return prefix + ":texts"
}

// maskRedisURL masks the password of a Redis URL for logging
func maskRedisURL(url string) string {
	at := strings.LastIndex(url, "@")
	if at < 0 {
		return url
	}
	userPart := url[:at]
	colon := strings.LastIndex(userPart, ":")
	scheme := strings.Index(userPart, "://")
	if colon < 0 || colon <= scheme+2 {
		return url
	}
	return userPart[:colon+1] + "***" + url[at:]
}
