package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheVersionKey = "portfolio:version"
	snapshotKey     = "portfolio:snapshot"
)

// ErrCacheUnavailable marks failures talking to Redis, as opposed to loader failures.
var ErrCacheUnavailable = errors.New("portfolio: snapshot cache unavailable")

// DocumentLoader supplies raw development documents.
type DocumentLoader interface {
	Documents(ctx context.Context) ([]DevelopmentDocument, error)
}

// Cache wraps Redis based caching with versioning controls.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl, logger: slog.Default()}
}

// WithLogger replaces the logger used for best-effort cache writes.
func (c *Cache) WithLogger(logger *slog.Logger) *Cache {
	if c != nil && logger != nil {
		c.logger = logger
	}
	return c
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
		}
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, cacheVersionKey, ver, 0).Err(); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
		}
	}
	return ver, nil
}

// BuildKey composes the cache key with the current version.
func (c *Cache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	joined := strings.Join(parts, ":")
	if c == nil || c.client == nil {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", joined, ver), nil
}

// FetchJSON loads a cached value or populates it using the loader. Redis read
// failures are wrapped in ErrCacheUnavailable; a failed write only logs.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("snapshot cache write skipped", slog.String("key", key), slog.Any("error", err))
	}
	return json.Unmarshal(raw, dest)
}

// Bump invalidates the cache by incrementing the shared version key.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
	}
	c.logger.Info("snapshot cache bumped", slog.Int64("version", ver))
	return nil
}

type cachedDocuments struct {
	TakenAt time.Time             `json:"takenAt"`
	Docs    []DevelopmentDocument `json:"docs"`
}

// CachedSource serves snapshots from Redis, loading documents on a miss.
type CachedSource struct {
	loader DocumentLoader
	cache  *Cache
	now    func() time.Time
}

// NewCachedSource wires a loader with a cache. A nil cache always loads.
func NewCachedSource(loader DocumentLoader, cache *Cache) *CachedSource {
	return &CachedSource{loader: loader, cache: cache, now: time.Now}
}

// Snapshot returns the cached portfolio snapshot. When Redis cannot be reached
// the documents are loaded directly.
func (s *CachedSource) Snapshot(ctx context.Context) (Snapshot, error) {
	if s == nil || s.loader == nil {
		return Snapshot{}, errors.New("portfolio: cached source not configured")
	}
	key, err := s.cache.BuildKey(ctx, snapshotKey)
	if err != nil {
		return s.uncached(ctx, err)
	}
	var cached cachedDocuments
	err = s.cache.FetchJSON(ctx, key, &cached, func(ctx context.Context) (interface{}, error) {
		docs, err := s.loader.Documents(ctx)
		if err != nil {
			return nil, err
		}
		return cachedDocuments{TakenAt: s.now().UTC(), Docs: docs}, nil
	})
	if errors.Is(err, ErrCacheUnavailable) {
		return s.uncached(ctx, err)
	}
	if err != nil {
		return Snapshot{}, err
	}
	return NewSnapshot(cached.Docs, cached.TakenAt)
}

func (s *CachedSource) uncached(ctx context.Context, cause error) (Snapshot, error) {
	if !errors.Is(cause, ErrCacheUnavailable) {
		return Snapshot{}, cause
	}
	s.cache.logger.Warn("snapshot cache unavailable, loading directly", slog.Any("error", cause))
	docs, err := s.loader.Documents(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return NewSnapshot(docs, s.now().UTC())
}

// Invalidate bumps the cache version so the next snapshot reloads.
func (s *CachedSource) Invalidate(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.cache.Bump(ctx)
}
