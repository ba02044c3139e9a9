package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"reminder-engine/internal/common/logger"
	"reminder-engine/internal/models"

	"github.com/redis/go-redis/v9"
)

// CachedReader puts a Redis cache in front of another Reader. Cache
// trouble degrades to a direct lookup; it never blocks a send decision.
type CachedReader struct {
	inner  Reader
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedReader(inner Reader, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedReader {
	return &CachedReader{
		inner:  inner,
		redis:  rdb,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "pref-cache"}),
	}
}

func cacheKey(userID string) string {
	return fmt.Sprintf("prefs:user:%s", userID)
}

func (c *CachedReader) GetPreference(ctx context.Context, userID string) (*models.NotificationPreference, error) {
	key := cacheKey(userID)

	raw, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var p models.NotificationPreference
		if jsonErr := json.Unmarshal([]byte(raw), &p); jsonErr == nil {
			return &p, nil
		}
		// Corrupt entry: drop it and fall through to the database.
		c.redis.Del(ctx, key)
	} else if err != redis.Nil {
		c.logger.Warn("preference cache read failed", map[string]interface{}{
			"userId": userID,
			"error":  err.Error(),
		})
	}

	p, err := c.inner.GetPreference(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, jsonErr := json.Marshal(p); jsonErr == nil {
		if setErr := c.redis.Set(ctx, key, data, c.ttl).Err(); setErr != nil {
			c.logger.Warn("preference cache write failed", map[string]interface{}{
				"userId": userID,
				"error":  setErr.Error(),
			})
		}
	}

	return p, nil
}
