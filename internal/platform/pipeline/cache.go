package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const mappingCachePrefix = "ayushmap:mapping:"

// CachedMapper memoizes another Mapper's candidates in Redis. A Redis failure
// falls through to the wrapped mapper and is only logged.
type CachedMapper struct {
	next   Mapper
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewCachedMapper(next Mapper, client *redis.Client, ttl time.Duration, logger zerolog.Logger) *CachedMapper {
	return &CachedMapper{next: next, client: client, ttl: ttl, logger: logger}
}

func (c *CachedMapper) Map(ctx context.Context, info *ExtractedInfo) (*MappingCandidate, error) {
	if info == nil {
		return nil, missing("extracted info")
	}
	key := cacheKey(info)

	raw, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var cand MappingCandidate
		if jerr := json.Unmarshal([]byte(raw), &cand); jerr == nil && checkCandidate(&cand) == nil {
			return &cand, nil
		}
		c.logger.Warn().Str("key", key).Msg("discarding unreadable cached mapping")
	case !errors.Is(err, redis.Nil):
		c.logger.Warn().Err(err).Msg("mapping cache read failed")
	}

	cand, err := c.next.Map(ctx, info)
	if err != nil {
		return nil, err
	}

	if data, jerr := json.Marshal(cand); jerr == nil {
		if serr := c.client.Set(ctx, key, data, c.ttl).Err(); serr != nil {
			c.logger.Warn().Err(serr).Msg("mapping cache write failed")
		}
	}
	return cand, nil
}

func cacheKey(info *ExtractedInfo) string {
	norm := strings.Join(strings.Fields(strings.ToLower(info.PrimaryCondition)), " ")
	sum := sha256.Sum256([]byte(norm + "|" + string(info.AyushSystem)))
	return mappingCachePrefix + hex.EncodeToString(sum[:])
}
