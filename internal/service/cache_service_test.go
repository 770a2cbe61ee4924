package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studynotion-api/internal/models"
	appErrors "github.com/noah-isme/studynotion-api/pkg/errors"
)

type mapCacheRepo struct {
	entries map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
}

func newMapCacheRepo() *mapCacheRepo {
	return &mapCacheRepo{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (r *mapCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if r.getErr != nil {
		return r.getErr
	}
	raw, ok := r.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *mapCacheRepo) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.entries[key] = raw
	r.ttls[key] = ttl
	return nil
}

func (r *mapCacheRepo) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(r.entries, k)
	}
	return nil
}

func TestReadThroughCachesLoadedValue(t *testing.T) {
	repo := newMapCacheRepo()
	metrics := NewMetricsService()
	cache := NewCacheService(repo, metrics, time.Minute, nil, true)

	loads := 0
	load := func(context.Context) (*models.CourseStructure, error) {
		loads++
		return &models.CourseStructure{CourseID: "C1"}, nil
	}

	first, err := readThrough(context.Background(), cache, "course:structure:C1", 0, load)
	require.NoError(t, err)
	second, err := readThrough(context.Background(), cache, "course:structure:C1", 0, load)
	require.NoError(t, err)

	assert.Equal(t, 1, loads)
	assert.Equal(t, "C1", first.CourseID)
	assert.Equal(t, "C1", second.CourseID)
	assert.Equal(t, time.Minute, repo.ttls["course:structure:C1"])

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
}

func TestReadThroughDoesNotCacheErrors(t *testing.T) {
	repo := newMapCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)

	boom := errors.New("db down")
	_, err := readThrough(context.Background(), cache, "k", 0, func(context.Context) ([]models.Category, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, repo.entries)
}

func TestReadThroughSurvivesBrokenCache(t *testing.T) {
	repo := newMapCacheRepo()
	repo.getErr = errors.New("connection refused")
	cache := NewCacheService(repo, nil, time.Minute, nil, true)

	got, err := readThrough(context.Background(), cache, "k", 0, func(context.Context) ([]string, error) {
		return []string{"fresh"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, got)
}

func TestDisabledCacheAlwaysLoads(t *testing.T) {
	repo := newMapCacheRepo()
	var nilCache *CacheService
	for _, cache := range []*CacheService{nilCache, NewCacheService(repo, nil, 0, nil, false)} {
		loads := 0
		for i := 0; i < 2; i++ {
			_, err := readThrough(context.Background(), cache, "k", 0, func(context.Context) (int, error) {
				loads++
				return loads, nil
			})
			require.NoError(t, err)
		}
		assert.Equal(t, 2, loads)
		assert.NoError(t, cache.Forget(context.Background(), "k"))
	}
	assert.Empty(t, repo.entries)
}

func TestForgetDropsEntry(t *testing.T) {
	repo := newMapCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)

	_, err := readThrough(context.Background(), cache, "catalog:categories", 0, func(context.Context) ([]string, error) {
		return []string{"Go"}, nil
	})
	require.NoError(t, err)
	require.Contains(t, repo.entries, "catalog:categories")

	require.NoError(t, cache.Forget(context.Background(), "catalog:categories"))
	assert.NotContains(t, repo.entries, "catalog:categories")
}
