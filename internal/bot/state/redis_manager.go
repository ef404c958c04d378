package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisManager stores sessions in Redis; the key TTL is refreshed on every
// save so idle sessions expire by themselves.
type RedisManager struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient connects to Redis and checks the connection
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisManager creates a Redis-backed session store
func NewRedisManager(client *redis.Client, ttl time.Duration) *RedisManager {
	return &RedisManager{client: client, ttl: ttl}
}

func sessionKey(userID int64) string {
	return fmt.Sprintf("user:%d:session", userID)
}

func (m *RedisManager) Get(ctx context.Context, userID int64) (*Session, error) {
	data, err := m.client.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &s, nil
}

func (m *RedisManager) Save(ctx context.Context, s *Session) error {
	s.UpdatedAt = time.Now()
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := m.client.Set(ctx, sessionKey(s.UserID), data, m.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func (m *RedisManager) Clear(ctx context.Context, userID int64) error {
	if err := m.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (m *RedisManager) Close() error {
	return m.client.Close()
}
