// Package cache provides the Redis-backed snapshot cache. The first
// serialized already-used response for a code is stored here so replays
// return byte-identical payloads.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func NewRedisClient(cfg *RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Service wraps the Redis client with the snapshot operations the
// redemption service needs.
type Service struct {
	client *redis.Client
	ttl    time.Duration
}

func NewService(client *redis.Client, ttl time.Duration) *Service {
	return &Service{client: client, ttl: ttl}
}

// GetSnapshot returns the cached serialized snapshot for a code, or
// redis.Nil via the wrapped error when the cache is cold.
func (s *Service) GetSnapshot(ctx context.Context, code string) ([]byte, error) {
	val, err := s.client.Get(ctx, snapshotKey(code)).Bytes()
	if err != nil {
		return nil, err
	}
	return val, nil
}

// SetSnapshot stores the serialized snapshot only if no snapshot exists
// yet, so the first consumed view wins and later writes cannot change it.
func (s *Service) SetSnapshot(ctx context.Context, code string, data []byte) error {
	return s.client.SetNX(ctx, snapshotKey(code), data, s.ttl).Err()
}

// InvalidateSnapshot removes a cached snapshot. Only used by seeding and
// tests; production code never rewrites a consumed snapshot.
func (s *Service) InvalidateSnapshot(ctx context.Context, code string) error {
	return s.client.Del(ctx, snapshotKey(code)).Err()
}

func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

func (s *Service) Close() error {
	return s.client.Close()
}

func snapshotKey(code string) string {
	return fmt.Sprintf("redemption:snapshot:%s", code)
}
