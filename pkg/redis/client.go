package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/canopy-network/regionledger/pkg/utils"
)

// DefaultStreamMaxLen caps each history stream unless REDIS_STREAM_MAXLEN overrides it.
const DefaultStreamMaxLen = 100000

// Client wraps the Redis client used to fan out committed ledger facts (Streams and Pub/Sub).
type Client struct {
	client       *redis.Client
	logger       *zap.Logger
	streamMaxLen int64 // 0 = unlimited
}

// NewClient creates a Redis client using environment variables for configuration.
// Environment variables:
//   - REDIS_HOST: Redis host (default: "localhost")
//   - REDIS_PORT: Redis port (default: "6379")
//   - REDIS_PASSWORD: Redis password (default: "")
//   - REDIS_DB: Redis database number (default: "0")
//   - REDIS_STREAM_MAXLEN: Max entries per stream (default: 100000, 0 = unlimited)
func NewClient(ctx context.Context, logger *zap.Logger) (*Client, error) {
	host := utils.Env("REDIS_HOST", "localhost")
	port := utils.Env("REDIS_PORT", "6379")
	addr := fmt.Sprintf("%s:%s", host, port)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: utils.Env("REDIS_PASSWORD", ""),
		DB:       utils.EnvInt("REDIS_DB", 0),

		PoolSize:     10,
		MinIdleConns: 2,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return connect(ctx, rdb, logger, utils.EnvInt64("REDIS_STREAM_MAXLEN", DefaultStreamMaxLen))
}

func connect(ctx context.Context, rdb *redis.Client, logger *zap.Logger, streamMaxLen int64) (*Client, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	addr := rdb.Options().Addr
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	logger.Info("Connected to Redis",
		zap.String("addr", addr),
		zap.Int("db", rdb.Options().DB),
		zap.Int64("streamMaxLen", streamMaxLen))

	return &Client{client: rdb, logger: logger, streamMaxLen: streamMaxLen}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// Health checks if Redis is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Publish sends message to a Pub/Sub channel.
func (c *Client) Publish(ctx context.Context, channel string, message interface{}) error {
	if err := c.client.Publish(ctx, channel, message).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// XAdd appends an entry to stream, trimming it approximately to the configured MAXLEN.
// Returns the entry ID (e.g. "1234567890123-0").
func (c *Client) XAdd(ctx context.Context, stream string, values map[string]interface{}) (string, error) {
	args := &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}
	if c.streamMaxLen > 0 {
		args.MaxLen = c.streamMaxLen
		args.Approx = true
	}

	id, err := c.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", stream, err)
	}
	return id, nil
}
