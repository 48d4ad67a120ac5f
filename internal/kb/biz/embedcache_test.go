package biz

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-kb/pkg/errors"
)

// shortEmbedder answers every batch with one vector too few.
type shortEmbedder struct {
	dim int
}

func (e *shortEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors := make([][]float32, len(texts)-1)
	for i := range vectors {
		vectors[i] = make([]float32, e.dim)
	}
	return vectors, nil
}

// unreachableRedis returns a client whose every command fails fast, driving
// the cache down its degraded miss path.
func unreachableRedis(t *testing.T) *goredis.Client {
	t.Helper()
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCachedEmbedderNilRedisDelegates(t *testing.T) {
	inner := &fakeEmbedder{dim: 4}
	cached := NewCachedEmbedder(inner, nil, "test-model", 0)

	vectors, err := cached.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vectors, 2)
	assert.Equal(t, 1, inner.Calls())
}

func TestCachedEmbedderRejectsShortResponse(t *testing.T) {
	cached := NewCachedEmbedder(&shortEmbedder{dim: 4}, unreachableRedis(t), "test-model", 0)

	// A truncated embedder response must surface as a collaborator error,
	// not blow up while backfilling the miss slots.
	vectors, err := cached.Embed(context.Background(), []string{"a", "b", "c"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCollaboratorUnavailable.Code))
	assert.Nil(t, vectors)
}
