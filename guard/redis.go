package guard

import (
	"context"
	"fmt"
	"time"

	"cubeduel/models"

	"github.com/redis/go-redis/v9"
)

const (
	throwKeyPrefix    = "cube:throw"
	cooldownKeyPrefix = "cube:cooldown"
)

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisThrowGuard shares in-flight throws between bot processes. Keys expire
// after ttl so a crashed process cannot hold a seat forever.
type RedisThrowGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisThrowGuard(client *redis.Client, ttl time.Duration) *RedisThrowGuard {
	return &RedisThrowGuard{client: client, ttl: ttl}
}

func throwRedisKey(matchID int64, seat models.Seat) string {
	return fmt.Sprintf("%s:%d:%d", throwKeyPrefix, matchID, seat)
}

func (g *RedisThrowGuard) Acquire(ctx context.Context, matchID int64, seat models.Seat) (bool, error) {
	ok, err := g.client.SetNX(ctx, throwRedisKey(matchID, seat), 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire throw guard for match %d: %w", matchID, err)
	}
	return ok, nil
}

func (g *RedisThrowGuard) Release(ctx context.Context, matchID int64, seat models.Seat) error {
	if err := g.client.Del(ctx, throwRedisKey(matchID, seat)).Err(); err != nil {
		return fmt.Errorf("failed to release throw guard for match %d: %w", matchID, err)
	}
	return nil
}

func (g *RedisThrowGuard) Clear(ctx context.Context, matchID int64) error {
	err := g.client.Del(ctx,
		throwRedisKey(matchID, models.SeatHost),
		throwRedisKey(matchID, models.SeatGuest),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to clear throw guards for match %d: %w", matchID, err)
	}
	return nil
}

// RedisCooldowns stores rejoin cooldowns as expiring keys
type RedisCooldowns struct {
	client *redis.Client
	window time.Duration
}

func NewRedisCooldowns(client *redis.Client, window time.Duration) *RedisCooldowns {
	return &RedisCooldowns{client: client, window: window}
}

func cooldownRedisKey(telegramID int64) string {
	return fmt.Sprintf("%s:%d", cooldownKeyPrefix, telegramID)
}

func (c *RedisCooldowns) Start(ctx context.Context, telegramID int64) error {
	if c.window <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, cooldownRedisKey(telegramID), 1, c.window).Err(); err != nil {
		return fmt.Errorf("failed to start cooldown for %d: %w", telegramID, err)
	}
	return nil
}

// Remaining reads the key's TTL. Missing keys report negative TTLs, which mean no cooldown.
func (c *RedisCooldowns) Remaining(ctx context.Context, telegramID int64) (time.Duration, error) {
	ttl, err := c.client.PTTL(ctx, cooldownRedisKey(telegramID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read cooldown for %d: %w", telegramID, err)
	}
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}
