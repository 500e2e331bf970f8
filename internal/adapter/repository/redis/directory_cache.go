package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crewbase/crewbase/internal/adapter/metrics"
	"github.com/crewbase/crewbase/internal/domain"
)

const hostKeyPrefix = "directory:host:"

// DirectoryCache is a read-through cache over the tenant directory's
// hostname lookup, the hottest read in the system. Entries carry a short TTL
// rather than being invalidated on writes, so a lifecycle edit (suspend,
// renew) is visible within the TTL at the latest.
type DirectoryCache struct {
	inner   domain.TenantDirectory
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.IdentityMetrics
}

// NewDirectoryCache wraps a directory with a Redis cache. metrics may be nil.
func NewDirectoryCache(inner domain.TenantDirectory, client *redis.Client, ttl time.Duration, logger *slog.Logger, m *metrics.IdentityMetrics) *DirectoryCache {
	return &DirectoryCache{inner: inner, client: client, ttl: ttl, logger: logger, metrics: m}
}

// FindByHostname resolves a host, consulting Redis first. Cache failures
// degrade to the underlying directory; they never fail the request.
func (c *DirectoryCache) FindByHostname(ctx context.Context, hostname string) (*domain.Tenant, error) {
	key := hostKeyPrefix + strings.ToLower(hostname)

	raw, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var t domain.Tenant
		if err := json.Unmarshal([]byte(raw), &t); err == nil {
			c.hit()
			return &t, nil
		}
		// Corrupt entry; fall through to the directory.
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("directory cache read failed", "error", err, "hostname", hostname)
	}
	c.miss()

	t, err := c.inner.FindByHostname(ctx, hostname)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(t); err == nil {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("directory cache write failed", "error", err, "hostname", hostname)
		}
	}
	return t, nil
}

// FindBySlug delegates to the underlying directory. Slug lookups happen on
// admin operations only and are not worth caching.
func (c *DirectoryCache) FindBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	return c.inner.FindBySlug(ctx, slug)
}

func (c *DirectoryCache) hit() {
	if c.metrics != nil {
		c.metrics.DirectoryCacheHits.Inc()
	}
}

func (c *DirectoryCache) miss() {
	if c.metrics != nil {
		c.metrics.DirectoryCacheMisses.Inc()
	}
}
