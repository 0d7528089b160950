package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/sakif/devcompass/internal/metrics"
	"github.com/sakif/devcompass/internal/model"
)

const keyPrefix = "devcompass"

// DefaultStatsTTL is used for a platform without a configured TTL.
const DefaultStatsTTL = 2 * time.Hour

// StatsCache memoizes per-platform stats in a Store.
type StatsCache struct {
	store  Store
	ttls   map[model.Platform]time.Duration
	logger *slog.Logger
}

// NewStatsCache builds a cache over store. ttls overrides DefaultStatsTTL
// per platform.
func NewStatsCache(store Store, ttls map[model.Platform]time.Duration, logger *slog.Logger) *StatsCache {
	merged := make(map[model.Platform]time.Duration, len(ttls))
	for p, ttl := range ttls {
		if ttl > 0 {
			merged[p] = ttl
		}
	}
	return &StatsCache{store: store, ttls: merged, logger: logger}
}

// StatsKey builds the cache key for a handle. Handles are trimmed and
// lower-cased so differently cased input shares one entry.
func StatsKey(platform model.Platform, handle string) string {
	return keyPrefix + ":" + string(platform) + ":" + strings.ToLower(strings.TrimSpace(handle))
}

// TTL returns the entry lifetime used for platform.
func (c *StatsCache) TTL(platform model.Platform) time.Duration {
	if ttl, ok := c.ttls[platform]; ok {
		return ttl
	}
	return DefaultStatsTTL
}

// Invalidate drops the cached stats of a handle.
func (c *StatsCache) Invalidate(ctx context.Context, platform model.Platform, handle string) error {
	return c.store.Delete(ctx, StatsKey(platform, handle))
}

// GetOrFetch returns the cached stats for (platform, handle) or calls fetch
// and caches its result.
//
// A fetch error or a nil value is returned to the caller and never stored,
// so the next call fetches again. Store failures only cost a cache miss:
// they are logged and the fetched value is still returned.
func GetOrFetch[T any](ctx context.Context, c *StatsCache, platform model.Platform, handle string,
	fetch func(ctx context.Context) (*T, error)) (*T, error) {

	key := StatsKey(platform, handle)
	cacheName := string(platform)

	raw, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var cached T
		jsonErr := json.Unmarshal(raw, &cached)
		if jsonErr == nil {
			metrics.CacheRequests.WithLabelValues(cacheName, "hit").Inc()
			return &cached, nil
		}
		c.logger.Warn("discarding undecodable cache entry",
			slog.String("key", key), slog.String("error", jsonErr.Error()))
	case !errors.Is(err, ErrMiss):
		c.logger.Warn("cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	metrics.CacheRequests.WithLabelValues(cacheName, "miss").Inc()

	fresh, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		return nil, nil
	}

	data, err := json.Marshal(fresh)
	if err != nil {
		c.logger.Warn("cache encode failed", slog.String("key", key), slog.String("error", err.Error()))
		return fresh, nil
	}
	if err := c.store.Set(ctx, key, data, c.TTL(platform)); err != nil {
		c.logger.Warn("cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return fresh, nil
}
