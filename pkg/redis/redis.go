package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pgvplaning/backend/config"
)

// ErrCacheMiss no cached value for the key.
var ErrCacheMiss = errors.New("cache: clé absente")

// Client wraps go-redis for the calendar cache and rate limiting.
type Client struct {
	rdb         *goredis.Client
	calendarTTL time.Duration
	logger      *zap.Logger
}

// NewClient connects and pings (5s timeout).
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connexion Redis impossible: %w", err)
	}

	logger.Info("Redis connecté", zap.String("addr", cfg.Addr))

	ttl := cfg.CalendarTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Client{rdb: rdb, calendarTTL: ttl, logger: logger}, nil
}

// ── Calendar cache ──

const calendarPrefix = "pgvplaning:calendar:"

// GetCalendar returns the cached snapshot document and its version.
func (c *Client) GetCalendar(ctx context.Context, userID string) ([]byte, int, error) {
	vals, err := c.rdb.HMGet(ctx, calendarPrefix+userID, "data", "version").Result()
	if err != nil {
		return nil, 0, err
	}
	data, ok1 := vals[0].(string)
	ver, ok2 := vals[1].(string)
	if !ok1 || !ok2 {
		return nil, 0, ErrCacheMiss
	}
	version, err := strconv.Atoi(ver)
	if err != nil {
		return nil, 0, ErrCacheMiss
	}
	return []byte(data), version, nil
}

// SetCalendar caches a snapshot document for the configured TTL.
func (c *Client) SetCalendar(ctx context.Context, userID string, data []byte, version int) error {
	key := calendarPrefix + userID
	_, err := c.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, key, "data", data, "version", version)
		pipe.Expire(ctx, key, c.calendarTTL)
		return nil
	})
	return err
}

// InvalidateCalendar drops the cached snapshot.
func (c *Client) InvalidateCalendar(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, calendarPrefix+userID).Err()
}

// ── Rate limit ──

// CheckRateLimit records one hit in a sliding window kept as a sorted set
// and reports whether the hit is within limit.
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window).UnixNano()

	var card *goredis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
		pipe.ZAdd(ctx, key, goredis.Z{
			Score:  float64(now.UnixNano()),
			Member: uuid.NewString(),
		})
		card = pipe.ZCard(ctx, key)
		pipe.Expire(ctx, key, window)
		return nil
	})
	if err != nil {
		return false, err
	}
	return card.Val() <= int64(limit), nil
}

// Close closes the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
