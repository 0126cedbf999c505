package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/wen-tracker-go/internal/config"
	"github.com/wen-tracker-go/internal/models"
)

// Service caches analysis summaries so polling dashboards do not hammer the
// upstream API with identical requests.
type Service interface {
	Get(ctx context.Context, requestKey string) (*models.AnalysisSummary, bool)
	Set(ctx context.Context, requestKey string, summary *models.AnalysisSummary) error
	Clear(ctx context.Context) error
}

// Cache implements caching service
type Cache struct {
	enabled bool
	cache   *cache.Cache
	logger  *logrus.Logger
	maxSize int
}

type entry struct {
	summary   *models.AnalysisSummary
	createdAt time.Time
}

// NewCache creates a new cache service
func NewCache(cfg *config.Config, logger *logrus.Logger) Service {
	if !cfg.Cache.Enabled {
		return &Cache{enabled: false}
	}

	return &Cache{
		enabled: true,
		cache:   cache.New(cfg.Cache.TTL, cfg.Cache.TTL*2),
		logger:  logger,
		maxSize: cfg.Cache.MaxSize,
	}
}

// Disabled returns a no-op cache for adapters that always fetch fresh data
func Disabled() Service {
	return &Cache{enabled: false}
}

// Get retrieves a cached summary
func (c *Cache) Get(ctx context.Context, requestKey string) (*models.AnalysisSummary, bool) {
	if !c.enabled {
		return nil, false
	}

	key := c.generateKey(requestKey)
	if val, found := c.cache.Get(key); found {
		e := val.(*entry)
		c.logger.WithFields(logrus.Fields{
			"key": key,
			"age": time.Since(e.createdAt),
		}).Debug("Summary cache hit")
		return e.summary, true
	}

	return nil, false
}

// Set stores a summary in cache
func (c *Cache) Set(ctx context.Context, requestKey string, summary *models.AnalysisSummary) error {
	if !c.enabled {
		return nil
	}

	// Check cache size
	if c.cache.ItemCount() >= c.maxSize {
		c.logger.Warn("Cache size limit reached, clearing old entries")
		c.cache.DeleteExpired()
	}

	key := c.generateKey(requestKey)
	c.cache.SetDefault(key, &entry{summary: summary, createdAt: time.Now()})
	c.logger.WithField("key", key).Debug("Summary cached")

	return nil
}

// Clear removes all cached entries
func (c *Cache) Clear(ctx context.Context) error {
	if !c.enabled {
		return nil
	}

	c.cache.Flush()
	c.logger.Info("Cache cleared")
	return nil
}

// generateKey creates a unique cache key
func (c *Cache) generateKey(requestKey string) string {
	hash := sha256.Sum256([]byte(requestKey))
	return hex.EncodeToString(hash[:])
}
