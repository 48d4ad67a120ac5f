package staging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-kb/internal/model"
	"github.com/kart-io/sentinel-kb/pkg/errors"
)

func newTestDraft(id string) *model.Draft {
	return &model.Draft{
		ID:        id,
		Tenant:    "t1",
		Name:      "test draft",
		Config:    model.DefaultKBConfig(),
		CreatedAt: time.Now(),
	}
}

func TestMemoryStorePutGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	draft := newTestDraft("d1")
	draft.Sources = []model.Source{
		{ID: "s1", Type: model.SourceText, Content: "hello", Status: model.SourceReady},
	}
	require.NoError(t, store.Put(ctx, draft))

	got, err := store.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "d1", got.ID)
	assert.Equal(t, "t1", got.Tenant)
	require.Len(t, got.Sources, 1)
	assert.Equal(t, "hello", got.Sources[0].Content)
	assert.False(t, got.ExpiresAt.IsZero())
}

func TestMemoryStoreGetMissing(t *testing.T) {
	store := NewMemoryStore(time.Hour)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, errors.ErrDraftNotFound)
}

func TestMemoryStoreReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	require.NoError(t, store.Put(ctx, newTestDraft("d1")))

	first, err := store.Get(ctx, "d1")
	require.NoError(t, err)
	first.Name = "mutated"

	second, err := store.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "test draft", second.Name)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	base := time.Now()
	store.now = func() time.Time { return base }
	require.NoError(t, store.Put(ctx, newTestDraft("d1")))

	// Still alive just before the deadline.
	store.now = func() time.Time { return base.Add(59 * time.Minute) }
	_, err := store.Get(ctx, "d1")
	require.NoError(t, err)

	// Gone after the deadline.
	store.now = func() time.Time { return base.Add(61 * time.Minute) }
	_, err = store.Get(ctx, "d1")
	assert.ErrorIs(t, err, errors.ErrDraftNotFound)
}

func TestMemoryStoreTTLRefreshOnPut(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	base := time.Now()
	store.now = func() time.Time { return base }
	require.NoError(t, store.Put(ctx, newTestDraft("d1")))

	// Updating near the deadline slides the window forward.
	store.now = func() time.Time { return base.Add(59 * time.Minute) }
	draft, err := store.Get(ctx, "d1")
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, draft))

	store.now = func() time.Time { return base.Add(90 * time.Minute) }
	_, err = store.Get(ctx, "d1")
	assert.NoError(t, err)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	require.NoError(t, store.Put(ctx, newTestDraft("d1")))

	require.NoError(t, store.Delete(ctx, "d1"))
	_, err := store.Get(ctx, "d1")
	assert.ErrorIs(t, err, errors.ErrDraftNotFound)

	// Deleting again is not an error.
	assert.NoError(t, store.Delete(ctx, "d1"))
}
