package biz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/sentinel-kb/pkg/errors"
)

// DefaultEmbedCacheTTL is how long cached vectors stay valid. Embeddings for
// a given model and text never change, so the TTL only bounds memory use.
const DefaultEmbedCacheTTL = 24 * time.Hour

const embedCachePrefix = "kb:emb:"

// CachedEmbedder wraps an Embedder with a Redis lookaside cache keyed by the
// model name and a SHA-256 of the text. Reprocessing a document re-embeds
// only the chunks whose content actually changed; everything else is served
// from cache. Cache failures degrade to the underlying embedder.
type CachedEmbedder struct {
	embedder Embedder
	redis    *goredis.Client
	model    string
	ttl      time.Duration
}

// NewCachedEmbedder creates a cache wrapper around embedder. A zero ttl uses
// DefaultEmbedCacheTTL.
func NewCachedEmbedder(embedder Embedder, redis *goredis.Client, model string, ttl time.Duration) *CachedEmbedder {
	if ttl <= 0 {
		ttl = DefaultEmbedCacheTTL
	}
	return &CachedEmbedder{
		embedder: embedder,
		redis:    redis,
		model:    model,
		ttl:      ttl,
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	hash := sha256.Sum256([]byte(text))
	return embedCachePrefix + c.model + ":" + hex.EncodeToString(hash[:])
}

// Embed returns vectors for texts, serving cached entries where possible and
// batching the misses into a single underlying call.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if c.redis == nil {
		return c.embedder.Embed(ctx, texts)
	}

	vectors := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		data, err := c.redis.Get(ctx, c.cacheKey(text)).Bytes()
		if err == nil {
			var vec []float32
			if err := json.Unmarshal(data, &vec); err == nil {
				vectors[i] = vec
				continue
			}
			// Corrupted entry, drop it and recompute.
			_ = c.redis.Del(ctx, c.cacheKey(text)).Err()
		} else if err != goredis.Nil {
			logger.Warnw("embed cache read failed, falling back to embedder", "error", err.Error())
		}

		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return vectors, nil
	}

	computed, err := c.embedder.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(computed) != len(missTexts) {
		return nil, errors.ErrCollaboratorUnavailable.WithMessagef(
			"embedder returned %d vectors for %d texts", len(computed), len(missTexts))
	}

	for i, idx := range missIdx {
		vectors[idx] = computed[i]

		data, err := json.Marshal(computed[i])
		if err != nil {
			continue
		}
		if err := c.redis.Set(ctx, c.cacheKey(missTexts[i]), data, c.ttl).Err(); err != nil {
			logger.Warnw("embed cache write failed", "error", err.Error())
		}
	}

	logger.Debugw("embedding batch served",
		"total", len(texts),
		"cached", len(texts)-len(missTexts),
		"computed", len(missTexts))

	return vectors, nil
}

// ClearCache removes every cached vector for this embedder's model.
func (c *CachedEmbedder) ClearCache(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}

	iter := c.redis.Scan(ctx, 0, embedCachePrefix+c.model+":*", 0).Iterator()
	deleted := 0
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warnw("failed to delete embed cache key", "key", iter.Val(), "error", err.Error())
			continue
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return err
	}

	logger.Infow("embed cache cleared", "deleted", deleted)
	return nil
}

var _ Embedder = (*CachedEmbedder)(nil)
