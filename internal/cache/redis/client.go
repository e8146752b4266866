package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fieldmate/backend/pkg/logger"
)

// ErrCacheMiss is returned by Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Client wraps redis for the three roles it plays here: response cache,
// research queue transport, and enqueue-suppression guard.
type Client struct {
	rdb *redis.Client
}

func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", addr))

	return &Client{rdb: rdb}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return val, nil
}

func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Push appends a message to the named list queue. Workers consume with BRPOP
// on the other side.
func (c *Client) Push(ctx context.Context, queueName, payload string) error {
	if err := c.rdb.LPush(ctx, queueName, payload).Err(); err != nil {
		return fmt.Errorf("failed to push to queue %s: %w", queueName, err)
	}
	return nil
}

// AcquireEnqueueGuard sets a guard key for the fingerprint if none exists.
// It returns true when this caller won the guard and should enqueue; repeat
// callers within the window get false.
func (c *Client) AcquireEnqueueGuard(ctx context.Context, fingerprint string, window time.Duration) (bool, error) {
	key := "gaps:enqueue_guard:" + fingerprint
	ok, err := c.rdb.SetNX(ctx, key, "1", window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire enqueue guard: %w", err)
	}
	return ok, nil
}
