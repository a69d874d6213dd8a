package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	snapshotKeyPrefix = "snapshot:"
	snapshotPathsKey  = "snapshot:paths"
)

type Repository interface {
	Get(ctx context.Context, path string) (*Snapshot, error)
	Save(ctx context.Context, s *Snapshot, ttl time.Duration) error
	Delete(ctx context.Context, path string) error
	List(ctx context.Context) ([]string, error)
}

type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{
		client: client,
	}
}

func (r *RedisRepository) key(path string) string {
	return snapshotKeyPrefix + path
}

func (r *RedisRepository) Get(ctx context.Context, path string) (*Snapshot, error) {
	if path == "" {
		return nil, fmt.Errorf("snapshot: empty path")
	}

	s, err := r.client.Get(ctx, r.key(path)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(s), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (r *RedisRepository) Save(ctx context.Context, s *Snapshot, ttl time.Duration) error {
	if s == nil {
		return fmt.Errorf("snapshot: nil snapshot")
	}
	if s.Path == "" {
		return fmt.Errorf("snapshot: empty path")
	}
	if s.FetchedAt.IsZero() {
		s.FetchedAt = time.Now()
	}

	b, err := json.Marshal(s)
	if err != nil {
		return err
	}

	if ttl < 0 {
		ttl = 0
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(s.Path), b, ttl)
	pipe.SAdd(ctx, snapshotPathsKey, s.Path)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisRepository) Delete(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("snapshot: empty path")
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key(path))
	pipe.SRem(ctx, snapshotPathsKey, path)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns the paths that still have a live snapshot. Paths whose key
// expired are pruned from the index as a side effect.
func (r *RedisRepository) List(ctx context.Context) ([]string, error) {
	paths, err := r.client.SMembers(ctx, snapshotPathsKey).Result()
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return []string{}, nil
	}

	keys := make([]string, len(paths))
	for i, p := range paths {
		keys[i] = r.key(p)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	live := make([]string, 0, len(paths))
	var stale []any
	for i, v := range values {
		if v == nil {
			stale = append(stale, paths[i])
			continue
		}
		live = append(live, paths[i])
	}

	if len(stale) > 0 {
		if err := r.client.SRem(ctx, snapshotPathsKey, stale...).Err(); err != nil {
			return nil, err
		}
	}

	sort.Strings(live)
	return live, nil
}
