// Package session provides storage backends for conversation sessions.
//
// This file implements the Redis-backed store for multi-instance deployments.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/KayitWorks/KayitFlow/internal/models"
)

// sessionKeyPrefix namespaces session keys in Redis.
const sessionKeyPrefix = "session:"

// RedisStore stores sessions as JSON values with a server-side TTL.
// TTL refresh happens on every Set; expiry is handled entirely by Redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed session store and verifies connectivity.
func NewRedisStore(opts ...Option) (*RedisStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	addr := cfg.RedisAddr
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Error("RedisStore connection failed", "error", err, "addr", addr)
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	slog.Info("RedisStore connected", "addr", addr, "db", cfg.RedisDB, "ttl", cfg.TTL)
	return &RedisStore{client: client, ttl: cfg.TTL}, nil
}

// Get returns the session for id, or nil when the key is absent or expired.
func (s *RedisStore) Get(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, models.ErrEmptyUserID
	}
	data, err := s.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		slog.Error("RedisStore Get failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to read session for %s: %w", id, err)
	}
	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		slog.Error("RedisStore Get unmarshal failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to decode session for %s: %w", id, err)
	}
	return &sess, nil
}

// Set stores the session as JSON under id, refreshing the TTL.
func (s *RedisStore) Set(ctx context.Context, id string, sess *models.Session) error {
	if id == "" {
		return models.ErrEmptyUserID
	}
	data, err := json.Marshal(sess)
	if err != nil {
		slog.Error("RedisStore Set marshal failed", "error", err, "id", id)
		return fmt.Errorf("failed to encode session for %s: %w", id, err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+id, data, s.ttl).Err(); err != nil {
		slog.Error("RedisStore Set failed", "error", err, "id", id)
		return fmt.Errorf("failed to store session for %s: %w", id, err)
	}
	slog.Debug("RedisStore Set succeeded", "id", id, "stage", sess.Stage, "ttl", s.ttl)
	return nil
}

// Delete removes the session for id. Deleting an absent key is a no-op.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return models.ErrEmptyUserID
	}
	if err := s.client.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		slog.Error("RedisStore Delete failed", "error", err, "id", id)
		return fmt.Errorf("failed to delete session for %s: %w", id, err)
	}
	slog.Debug("RedisStore Delete succeeded", "id", id)
	return nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
