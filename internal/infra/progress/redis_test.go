package progress

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/kp-analyzer/backend/internal/domain/analysis"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewWithClient(client, time.Minute)
}

func TestStore_PublishAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	state := domain.ProgressState{
		RunID:       "run-1",
		Stage:       domain.StageAnalysis,
		Progress:    42.5,
		CurrentTask: "Анализ предложения 2 из 4",
		UpdatedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Publish(ctx, "acme", state))

	got, err := store.Get(ctx, "acme", "run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, state, *got)
}

func TestStore_PublishReplacesWholesale(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Publish(ctx, "acme", domain.ProgressState{RunID: "run-1", Stage: domain.StageUpload, Progress: 10, CurrentTask: "first"}))
	require.NoError(t, store.Publish(ctx, "acme", domain.ProgressState{RunID: "run-1", Stage: domain.StageComparison, Progress: 80}))

	got, err := store.Get(ctx, "acme", "run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.StageComparison, got.Stage)
	assert.Empty(t, got.CurrentTask)
}

func TestStore_GetMissingIsNil(t *testing.T) {
	store := newTestStore(t)
	got, err := store.Get(context.Background(), "acme", "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_TenantsAreIsolated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Publish(ctx, "acme", domain.ProgressState{RunID: "run-1", Stage: domain.StageUpload}))

	got, err := store.Get(ctx, "globex", "run-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_Clear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Publish(ctx, "acme", domain.ProgressState{RunID: "run-1", Stage: domain.StageUpload}))
	require.NoError(t, store.Clear(ctx, "acme", "run-1"))

	got, err := store.Get(ctx, "acme", "run-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
