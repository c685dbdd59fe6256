package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"demand-forecast/internal/domain"
	"demand-forecast/internal/observability"
)

const redisKeyPrefix = "forecast:"

// Redis caches forecasts in a shared Redis so replicas reuse each other's results.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

var _ Cache = (*Redis)(nil)

// RedisOptions configures a Redis cache.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Logger   *log.Logger
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewRedisWithClient(client, opts.TTL, opts.Logger), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, ttl time.Duration, logger *log.Logger) *Redis {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Redis{client: client, ttl: ttl, logger: logger}
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, key string) (*domain.ForecastSeries, bool) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Printf("redis GET failed: %v", err)
		}
		observability.RecordCache("redis", false)
		return nil, false
	}

	var s domain.ForecastSeries
	if err := json.Unmarshal(data, &s); err != nil {
		r.logger.Printf("redis entry %s undecodable: %v", key, err)
		observability.RecordCache("redis", false)
		return nil, false
	}
	observability.RecordCache("redis", true)
	return &s, true
}

// Set implements Cache. Failures are logged and otherwise ignored.
func (r *Redis) Set(ctx context.Context, key string, series *domain.ForecastSeries) {
	data, err := json.Marshal(series)
	if err != nil {
		r.logger.Printf("marshal forecast for cache: %v", err)
		return
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, data, r.ttl).Err(); err != nil {
		r.logger.Printf("redis SET failed: %v", err)
	}
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
