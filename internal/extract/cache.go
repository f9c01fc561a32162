package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"strings"
	"time"

	"deal-tracker/internal/common/database"
	"deal-tracker/internal/common/logger"
	"deal-tracker/internal/models"
)

const cacheKeyPrefix = "deal-tracker:extract:"

// CachingExtractor memoizes successful extractions in Redis. Cache failures
// are logged and the wrapped extractor is called as if the cache were absent.
type CachingExtractor struct {
	next     Extractor
	redis    *database.RedisClient
	ttl      time.Duration
	provider string
	model    string
	logger   logger.Logger
}

func NewCachingExtractor(next Extractor, redis *database.RedisClient, ttl time.Duration, provider, model string, log logger.Logger) *CachingExtractor {
	return &CachingExtractor{
		next:     next,
		redis:    redis,
		ttl:      ttl,
		provider: provider,
		model:    model,
		logger:   log.With(map[string]interface{}{"component": "extract-cache"}),
	}
}

func (c *CachingExtractor) Extract(ctx context.Context, req models.ExtractionRequest) ([]models.RawDeal, error) {
	key := c.Key(req)

	var cached []models.RawDeal
	err := c.redis.GetJSON(ctx, key, &cached)
	switch {
	case err == nil:
		c.logger.Debug("extraction cache hit", map[string]interface{}{"source": req.SourceName})
		return cached, nil
	case !stderrors.Is(err, database.ErrCacheMiss):
		c.logger.Warn("extraction cache read failed", map[string]interface{}{"source": req.SourceName, "error": err.Error()})
	}

	deals, err := c.next.Extract(ctx, req)
	if err != nil {
		return nil, err
	}
	if deals == nil {
		deals = []models.RawDeal{}
	}
	if err := c.redis.SetJSON(ctx, key, deals, c.ttl); err != nil {
		c.logger.Warn("extraction cache write failed", map[string]interface{}{"source": req.SourceName, "error": err.Error()})
	}
	return deals, nil
}

// Key identifies a request by provider, model, source URL, date and text.
func (c *CachingExtractor) Key(req models.ExtractionRequest) string {
	h := sha256.New()
	h.Write([]byte(strings.Join([]string{c.provider, c.model, req.SourceURL, req.Today, req.Text}, "|")))
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}
