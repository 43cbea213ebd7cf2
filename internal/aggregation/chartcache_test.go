package aggregation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCache is a map-backed Cache with injectable failures.
type fakeCache struct {
	entries   map[string]*ChartData
	getErr    error
	setErr    error
	deleteErr error
	setCalls  int
	delCalls  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*ChartData)}
}

func (c *fakeCache) Get(_ context.Context, key string) (*ChartData, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}

	value, ok := c.entries[key]

	return value, ok, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value *ChartData, _ time.Duration) error {
	c.setCalls++

	if c.setErr != nil {
		return c.setErr
	}

	c.entries[key] = value

	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.delCalls++

	if c.deleteErr != nil {
		return c.deleteErr
	}

	delete(c.entries, key)

	return nil
}

func populatedStore() *stubStore {
	return &stubStore{
		exists: true,
		genders: []GenderCount{
			{Gender: "M", Count: 3},
			{Gender: "F", Count: 2},
		},
		regions: []RegionGenderCount{
			{Region: "North", Gender: "M", Count: 3},
			{Region: "North", Gender: "F", Count: 2},
		},
	}
}

func TestChartService_EmptyStoreReturnsNoData(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	cache := newFakeCache()
	service := NewChartService(&stubStore{exists: false}, cache)

	data, err := service.ChartData(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoData)
	assert.Nil(t, data)
	assert.Empty(t, cache.entries, "cache must not be populated for an empty store")
}

func TestChartService_EmptyStoreInvalidatesStaleCache(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	cache := newFakeCache()
	cache.entries[ChartDataKey] = &ChartData{GenderLabels: []string{"stale"}}

	service := NewChartService(&stubStore{exists: false}, cache)

	_, err := service.ChartData(context.Background())

	assert.ErrorIs(t, err, ErrNoData)
	assert.Empty(t, cache.entries)
	assert.Equal(t, 1, cache.delCalls)
}

func TestChartService_MissComputesAndCaches(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	store := populatedStore()
	cache := newFakeCache()
	service := NewChartService(store, cache)

	data, err := service.ChartData(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"M", "F"}, data.GenderLabels)
	assert.Equal(t, 1, cache.setCalls)
	assert.Same(t, data, cache.entries[ChartDataKey])
}

func TestChartService_HitSkipsRecomputation(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	store := populatedStore()
	cache := newFakeCache()
	service := NewChartService(store, cache)

	first, err := service.ChartData(context.Background())
	require.NoError(t, err)

	second, err := service.ChartData(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, store.genderCalls, "second call must be served from cache")
	assert.Equal(t, 1, cache.setCalls)
}

func TestChartService_CacheReadFailureDegradesToRecompute(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	store := populatedStore()
	cache := newFakeCache()
	cache.getErr = errors.New("redis timeout")

	service := NewChartService(store, cache)

	data, err := service.ChartData(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"M", "F"}, data.GenderLabels)
	assert.Equal(t, 1, store.genderCalls)
}

func TestChartService_CacheWriteFailureStillReturnsData(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	store := populatedStore()
	cache := newFakeCache()
	cache.setErr = errors.New("redis timeout")

	service := NewChartService(store, cache)

	data, err := service.ChartData(context.Background())

	require.NoError(t, err)
	require.NotNil(t, data)
}

func TestChartService_StoreExistsErrorPropagates(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	checkErr := errors.New("connection refused")
	service := NewChartService(&stubStore{existsErr: checkErr}, newFakeCache())

	data, err := service.ChartData(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, checkErr)
	assert.Nil(t, data)
}

func TestChartService_ComputeErrorPropagates(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	queryErr := errors.New("connection reset")
	store := &stubStore{exists: true, gendersErr: queryErr}
	cache := newFakeCache()

	service := NewChartService(store, cache)

	data, err := service.ChartData(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, queryErr)
	assert.Nil(t, data)
	assert.Empty(t, cache.entries)
}
