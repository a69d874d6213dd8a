package snapshot

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*RedisRepository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisRepository(client), mr
}

func TestSaveAndGet(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	err := repo.Save(ctx, &Snapshot{
		Path:   "/api/status",
		Body:   json.RawMessage(`{"alerts_total":2}`),
		Runner: "fetch#1",
	}, time.Minute)
	require.NoError(t, err)

	got, err := repo.Get(ctx, "/api/status")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "/api/status", got.Path)
	assert.JSONEq(t, `{"alerts_total":2}`, string(got.Body))
	assert.Equal(t, "fetch#1", got.Runner)
	assert.False(t, got.FetchedAt.IsZero())
}

func TestGetMissing(t *testing.T) {
	repo, _ := newTestRepo(t)

	got, err := repo.Get(context.Background(), "/api/alerts")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = repo.Get(context.Background(), "")
	require.Error(t, err)
}

func TestSaveRejectsInvalid(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.Error(t, repo.Save(ctx, nil, time.Minute))
	require.Error(t, repo.Save(ctx, &Snapshot{Body: json.RawMessage(`{}`)}, time.Minute))
}

func TestSnapshotExpires(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &Snapshot{Path: "/api/scans", Body: json.RawMessage(`[]`)}, 15*time.Second))
	require.NoError(t, repo.Save(ctx, &Snapshot{Path: "/api/health", Body: json.RawMessage(`{"status":"ok"}`)}, time.Hour))

	paths, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/api/health", "/api/scans"}, paths)

	mr.FastForward(20 * time.Second)

	got, err := repo.Get(ctx, "/api/scans")
	require.NoError(t, err)
	assert.Nil(t, got)

	paths, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/api/health"}, paths)

	members, err := mr.SMembers(snapshotPathsKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"/api/health"}, members)
}

func TestDelete(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &Snapshot{Path: "/api/pending", Body: json.RawMessage(`[]`)}, 0))
	require.NoError(t, repo.Delete(ctx, "/api/pending"))

	got, err := repo.Get(ctx, "/api/pending")
	require.NoError(t, err)
	assert.Nil(t, got)

	paths, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, paths)
}
