package routing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const routeKeyPrefix = "route:"

// RedisStore implements Store on Redis so every instance behind the
// load balancer shares one routing table.
type RedisStore struct {
	client *redis.Client
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return &RedisStore{client: client}, nil
}

func routeKey(sessionID string) string {
	return routeKeyPrefix + sessionID
}

// Register records instance ownership of a session.
func (s *RedisStore) Register(ctx context.Context, sessionID, instance string, ttl time.Duration) error {
	if err := s.client.Set(ctx, routeKey(sessionID), instance, ttl).Err(); err != nil {
		return fmt.Errorf("failed to register route for %s: %w", sessionID, err)
	}
	return nil
}

// Lookup returns the route for a session.
func (s *RedisStore) Lookup(ctx context.Context, sessionID string) (*Route, error) {
	instance, err := s.client.Get(ctx, routeKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRouteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up route for %s: %w", sessionID, err)
	}

	return &Route{SessionID: sessionID, Instance: instance}, nil
}

// Refresh extends a live route's TTL.
func (s *RedisStore) Refresh(ctx context.Context, sessionID string, ttl time.Duration) error {
	ok, err := s.client.Expire(ctx, routeKey(sessionID), ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to refresh route for %s: %w", sessionID, err)
	}
	if !ok {
		return ErrRouteNotFound
	}
	return nil
}

// Unregister drops a session's route.
func (s *RedisStore) Unregister(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, routeKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to unregister route for %s: %w", sessionID, err)
	}
	return nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
