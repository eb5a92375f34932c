// Package cache provides a Redis-backed read-through cache for serving
// predictions and market prices without hitting Postgres or the upstream
// APIs on every request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrCacheMiss is returned when a key is not present
var ErrCacheMiss = errors.New("cache miss")

// Config holds Redis connection configuration
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// RedisCache wraps the Redis client with domain-specific accessors
type RedisCache struct {
	client *redis.Client

	predictionTTL time.Duration
	priceTTL      time.Duration
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(cfg Config, predictionTTL, priceTTL time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Str("port", cfg.Port).
		Int("db", cfg.DB).
		Msg("Redis cache connected")

	return &RedisCache{
		client:        client,
		predictionTTL: predictionTTL,
		priceTTL:      priceTTL,
	}, nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// SetPrediction caches a serialized prediction response by game ID
func (c *RedisCache) SetPrediction(ctx context.Context, gameID string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling prediction: %w", err)
	}

	key := fmt.Sprintf("prediction:%s", gameID)
	if err := c.client.Set(ctx, key, data, c.predictionTTL).Err(); err != nil {
		return fmt.Errorf("caching prediction: %w", err)
	}
	return nil
}

// GetPrediction retrieves a cached prediction response by game ID
func (c *RedisCache) GetPrediction(ctx context.Context, gameID string, dest any) error {
	key := fmt.Sprintf("prediction:%s", gameID)

	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("reading prediction cache: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("unmarshaling cached prediction: %w", err)
	}
	return nil
}

// InvalidatePrediction drops a cached prediction, e.g. after a re-run
func (c *RedisCache) InvalidatePrediction(ctx context.Context, gameID string) error {
	key := fmt.Sprintf("prediction:%s", gameID)
	return c.client.Del(ctx, key).Err()
}

// MarketSnapshot is the cached price pair for a market
type MarketSnapshot struct {
	Yes       float64   `json:"yes"`
	No        float64   `json:"no"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// SetMarketPrices caches the latest observed prices for a market
func (c *RedisCache) SetMarketPrices(ctx context.Context, marketID string, snap MarketSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling market snapshot: %w", err)
	}

	key := fmt.Sprintf("market:%s:prices", marketID)
	if err := c.client.Set(ctx, key, data, c.priceTTL).Err(); err != nil {
		return fmt.Errorf("caching market prices: %w", err)
	}
	return nil
}

// GetMarketPrices retrieves cached prices for a market
func (c *RedisCache) GetMarketPrices(ctx context.Context, marketID string) (*MarketSnapshot, error) {
	key := fmt.Sprintf("market:%s:prices", marketID)

	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("reading market price cache: %w", err)
	}

	var snap MarketSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("unmarshaling market snapshot: %w", err)
	}
	return &snap, nil
}

// Health pings Redis
func (c *RedisCache) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}
