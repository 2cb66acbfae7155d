package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/parley-hq/parley/pkg/models"
)

const sessionKeyPrefix = "parley:session:"

// RedisStore stores sessions as JSON values with a native key TTL, so
// abandoned conversations expire without any sweep.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisStore connects to Redis and verifies the connection. A
// non-positive ttl falls back to DefaultTTL.
func NewRedisStore(ctx context.Context, logger *slog.Logger, redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger.With("module", "redis_session_store"),
	}, nil
}

func sessionKey(conversationID string) string {
	return sessionKeyPrefix + conversationID
}

func (s *RedisStore) Create(ctx context.Context, state *models.WorkflowState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, sessionKey(state.ConversationID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	if !ok {
		return ErrSessionExists
	}

	return nil
}

func (s *RedisStore) Get(ctx context.Context, conversationID string) (*models.WorkflowState, error) {
	data, err := s.client.Get(ctx, sessionKey(conversationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var state models.WorkflowState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", conversationID, err)
	}

	return &state, nil
}

func (s *RedisStore) Update(ctx context.Context, state *models.WorkflowState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	// SET XX keeps Update from resurrecting an expired or deleted session.
	ok, err := s.client.SetXX(ctx, sessionKey(state.ConversationID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	if !ok {
		return ErrSessionNotFound
	}

	return nil
}

func (s *RedisStore) Delete(ctx context.Context, conversationID string) error {
	removed, err := s.client.Del(ctx, sessionKey(conversationID)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if removed == 0 {
		return ErrSessionNotFound
	}

	return nil
}

func (s *RedisStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close(_ context.Context) error {
	return s.client.Close()
}
