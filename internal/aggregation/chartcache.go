package aggregation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ChartDataKey is the fixed cache key for the computed chart aggregates.
const ChartDataKey = "chart_data"

// ChartDataTTL is the fixed expiry for cached chart aggregates.
const ChartDataTTL = 600 * time.Second

// ErrNoData is the explicit no-data marker: the store holds no records, so
// there is nothing to chart. Callers render an empty state, never partial
// aggregates.
var ErrNoData = errors.New("no records to aggregate")

var (
	chartCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demoscope_chart_cache_hits_total",
		Help: "Number of chart data requests served from cache",
	})

	chartCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demoscope_chart_cache_misses_total",
		Help: "Number of chart data requests that recomputed aggregates",
	})
)

type (
	// Cache is the get/set/delete key-value cache with TTL consumed by the
	// chart service. Implementations (Redis, in-memory) live in
	// internal/storage; the dependency is injected so tests substitute an
	// in-memory fake without process-wide state.
	Cache interface {
		// Get returns the cached value for key, with false when absent or expired.
		Get(ctx context.Context, key string) (*ChartData, bool, error)

		// Set stores value under key with the given expiry.
		Set(ctx context.Context, key string, value *ChartData, ttl time.Duration) error

		// Delete removes key. Deleting an absent key is not an error.
		Delete(ctx context.Context, key string) error
	}

	// ChartService serves chart aggregates through the cache.
	//
	// The cache read/write pair is not protected by a lock: concurrent misses
	// may recompute redundantly, which is accepted since recomputation is
	// idempotent and pure.
	ChartService struct {
		store  Store
		engine *Engine
		cache  Cache
		logger *slog.Logger
	}

	// ChartServiceOption configures optional ChartService behavior.
	ChartServiceOption func(*ChartService)
)

// WithServiceLogger overrides the chart service logger.
func WithServiceLogger(logger *slog.Logger) ChartServiceOption {
	return func(s *ChartService) {
		s.logger = logger
	}
}

// NewChartService creates a chart service over the given store and cache.
func NewChartService(store Store, cache Cache, opts ...ChartServiceOption) *ChartService {
	s := &ChartService{
		store:  store,
		engine: NewEngine(store),
		cache:  cache,
		logger: slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// ChartData returns the chart aggregates, cached under the fixed key.
//
// When the store is empty, any cached entry is invalidated and ErrNoData is
// returned without populating the cache. On a cache hit the cached value is
// returned unchanged; on a miss the aggregates are computed, cached with the
// fixed TTL, and returned. Cache failures degrade to recomputation rather
// than failing the request.
func (s *ChartService) ChartData(ctx context.Context) (*ChartData, error) {
	exists, err := s.store.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check store: %w", err)
	}

	if !exists {
		if err := s.cache.Delete(ctx, ChartDataKey); err != nil {
			s.logger.Warn("Failed to invalidate chart cache", slog.String("error", err.Error()))
		}

		return nil, ErrNoData
	}

	cached, hit, err := s.cache.Get(ctx, ChartDataKey)
	if err != nil {
		s.logger.Warn("Chart cache read failed, recomputing", slog.String("error", err.Error()))
	} else if hit {
		chartCacheHits.Inc()

		return cached, nil
	}

	chartCacheMisses.Inc()

	data, err := s.engine.ComputeChartData(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, ChartDataKey, data, ChartDataTTL); err != nil {
		s.logger.Warn("Chart cache write failed", slog.String("error", err.Error()))
	}

	return data, nil
}
