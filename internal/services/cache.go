package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/config"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/logger"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/models"
	"github.com/Momen-Elshamy/mvrouter-sub000/internal/repositories"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss is returned by CacheService.Get when the key is absent
var ErrCacheMiss = errors.New("cache miss")

// CatalogCachePattern matches every catalog cache key
const CatalogCachePattern = "catalog:*"

// CacheService provides caching functionality using Redis
type CacheService struct {
	client *redis.Client
}

// NewCacheService creates a new cache service
func NewCacheService(client *redis.Client) *CacheService {
	return &CacheService{client: client}
}

// Get retrieves a value from cache
func (cs *CacheService) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := cs.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get cache key %s: %w", key, err)
	}

	if err := json.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cached value for key %s: %w", key, err)
	}
	return nil
}

// Set stores a value in cache with expiration
func (cs *CacheService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %s: %w", key, err)
	}

	if err := cs.client.Set(ctx, key, data, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}
	return nil
}

// Delete removes a key from cache
func (cs *CacheService) Delete(ctx context.Context, key string) error {
	if err := cs.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache key %s: %w", key, err)
	}
	return nil
}

// DeletePattern removes all keys matching a pattern
func (cs *CacheService) DeletePattern(ctx context.Context, pattern string) (int, error) {
	keys, err := cs.client.Keys(ctx, pattern).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get keys for pattern %s: %w", pattern, err)
	}

	if len(keys) > 0 {
		if err := cs.client.Del(ctx, keys...).Err(); err != nil {
			return 0, fmt.Errorf("failed to delete keys for pattern %s: %w", pattern, err)
		}
	}
	return len(keys), nil
}

// Ping checks the connection to Redis
func (cs *CacheService) Ping(ctx context.Context) error {
	return cs.client.Ping(ctx).Err()
}

// Cache key builders for catalog entities
func BuildProviderKey(slug string) string {
	return fmt.Sprintf("catalog:provider:%s", slug)
}

func BuildModelKey(providerID, slug string) string {
	return fmt.Sprintf("catalog:model:%s:%s", providerID, slug)
}

func BuildDefaultModelKey(providerID string) string {
	return fmt.Sprintf("catalog:default_model:%s", providerID)
}

func BuildEndpointKey(providerID, name string) string {
	return fmt.Sprintf("catalog:endpoint:%s:%s", providerID, name)
}

func BuildDefaultEndpointKey(providerID string) string {
	return fmt.Sprintf("catalog:default_endpoint:%s", providerID)
}

func BuildMappingSetKey(endpointID string) string {
	return fmt.Sprintf("catalog:mapping_set:%s", endpointID)
}

func BuildParameterSetKey(id string) string {
	return fmt.Sprintf("catalog:parameter_set:%s", id)
}

// cachedCatalog is a read-through cache in front of the catalog repository.
// Misses are not cached and cache failures fall through to the database.
type cachedCatalog struct {
	repo   repositories.CatalogRepository
	cache  *CacheService
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedCatalog wraps repo with the Redis cache when caching is enabled
func NewCachedCatalog(repo repositories.CatalogRepository, cache *CacheService, cfg *config.Config, logger *logger.Logger) repositories.CatalogRepository {
	if !cfg.Cache.Enabled || cache == nil {
		return repo
	}
	ttl := time.Duration(cfg.Cache.CatalogTTL) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &cachedCatalog{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// readThrough loads key into dest from the cache, or calls load and stores its result
func readThrough[T any](ctx context.Context, c *cachedCatalog, key string, load func() (*T, error)) (*T, error) {
	var cached T
	err := c.cache.Get(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.logger.WithError(err).WithField("key", key).Warn("Catalog cache read failed")
	}

	value, err := load()
	if err != nil || value == nil {
		return value, err
	}

	if err := c.cache.Set(ctx, key, value, c.ttl); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Catalog cache write failed")
	}
	return value, nil
}

func (c *cachedCatalog) GetProviderBySlug(ctx context.Context, slug string) (*models.Provider, error) {
	return readThrough(ctx, c, BuildProviderKey(slug), func() (*models.Provider, error) {
		return c.repo.GetProviderBySlug(ctx, slug)
	})
}

func (c *cachedCatalog) GetModel(ctx context.Context, providerID, slug string) (*models.AIModel, error) {
	return readThrough(ctx, c, BuildModelKey(providerID, slug), func() (*models.AIModel, error) {
		return c.repo.GetModel(ctx, providerID, slug)
	})
}

func (c *cachedCatalog) GetDefaultModel(ctx context.Context, providerID string) (*models.AIModel, error) {
	return readThrough(ctx, c, BuildDefaultModelKey(providerID), func() (*models.AIModel, error) {
		return c.repo.GetDefaultModel(ctx, providerID)
	})
}

func (c *cachedCatalog) GetEndpoint(ctx context.Context, providerID, name string) (*models.Endpoint, error) {
	return readThrough(ctx, c, BuildEndpointKey(providerID, name), func() (*models.Endpoint, error) {
		return c.repo.GetEndpoint(ctx, providerID, name)
	})
}

func (c *cachedCatalog) GetDefaultEndpoint(ctx context.Context, providerID string) (*models.Endpoint, error) {
	return readThrough(ctx, c, BuildDefaultEndpointKey(providerID), func() (*models.Endpoint, error) {
		return c.repo.GetDefaultEndpoint(ctx, providerID)
	})
}

func (c *cachedCatalog) GetActiveMappingSet(ctx context.Context, endpointID string) (*models.MappingSet, error) {
	return readThrough(ctx, c, BuildMappingSetKey(endpointID), func() (*models.MappingSet, error) {
		return c.repo.GetActiveMappingSet(ctx, endpointID)
	})
}

func (c *cachedCatalog) GetParameterSet(ctx context.Context, id string) (*models.ParameterSet, error) {
	return readThrough(ctx, c, BuildParameterSetKey(id), func() (*models.ParameterSet, error) {
		return c.repo.GetParameterSet(ctx, id)
	})
}
