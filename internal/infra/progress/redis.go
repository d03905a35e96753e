package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domain "github.com/kp-analyzer/backend/internal/domain/analysis"
)

// Store keeps the latest ProgressState per run in Redis. States are
// short-lived display data, so every write refreshes a TTL instead of
// accumulating history.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

const defaultTTL = time.Hour

func New(addr, password string, db int) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return &Store{client: rdb, ttl: defaultTTL}, nil
}

// NewWithClient wires an existing client (tests use miniredis here).
func NewWithClient(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

func key(tenant string, runID domain.RunID) string {
	return fmt.Sprintf("progress:%s:%s", tenant, runID)
}

// Publish replaces the stored state wholesale.
func (s *Store) Publish(ctx context.Context, tenant string, state domain.ProgressState) error {
	b, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key(tenant, state.RunID), b, s.ttl).Err()
}

// Get returns nil when no state exists for the run.
func (s *Store) Get(ctx context.Context, tenant string, runID domain.RunID) (*domain.ProgressState, error) {
	raw, err := s.client.Get(ctx, key(tenant, runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state domain.ProgressState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Clear drops the state when a run ends or is cancelled.
func (s *Store) Clear(ctx context.Context, tenant string, runID domain.RunID) error {
	return s.client.Del(ctx, key(tenant, runID)).Err()
}

// Ping tests the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
