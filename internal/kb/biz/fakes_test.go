package biz

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kart-io/sentinel-kb/internal/kb/store"
	"github.com/kart-io/sentinel-kb/pkg/infra/pool"
)

func newTestFactory(t *testing.T) store.Factory {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, store.AutoMigrate(db))
	return store.New(db)
}

func newTestPool(t *testing.T) *pool.Pool {
	t.Helper()

	p, err := pool.NewPool("test", pool.DefaultPool, nil)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

// fakeExtractor serves canned page and site responses.
type fakeExtractor struct {
	mu          sync.Mutex
	pageContent map[string]string
	pageErr     map[string]error
	sites       map[string][]ExtractedPage
	siteErr     error
	siteCalls   int
}

func (f *fakeExtractor) ExtractPage(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.pageErr[url]; ok {
		return "", err
	}
	if content, ok := f.pageContent[url]; ok {
		return content, nil
	}
	return "", fmt.Errorf("no fixture for %s", url)
}

func (f *fakeExtractor) ExtractSite(_ context.Context, url string) ([]ExtractedPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.siteCalls++
	if f.siteErr != nil {
		return nil, f.siteErr
	}
	return f.sites[url], nil
}

func (f *fakeExtractor) SiteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.siteCalls
}

// fakeEmbedder returns deterministic vectors and can fail the first N calls.
// When gated, it signals started and blocks until proceed is closed.
type fakeEmbedder struct {
	mu       sync.Mutex
	dim      int
	failures int
	failErr  error
	calls    int

	started chan struct{}
	proceed chan struct{}
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.proceed != nil {
		<-f.proceed
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, f.failErr
	}

	vectors := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, f.dim)
		for j := range vec {
			vec[j] = float32(i + j)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (f *fakeEmbedder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeVector records collection and vector operations in memory.
type fakeVector struct {
	mu          sync.Mutex
	collections map[string]int                 // kbID -> dimension
	chunks      map[string]map[string]struct{} // documentID -> live chunk ids
	deleted     []string                       // document ids
	dropped     []string                       // kb ids

	ensureErr error
	upsertErr error
	deleteErr error
	dropErr   error
}

func newFakeVector() *fakeVector {
	return &fakeVector{
		collections: make(map[string]int),
		chunks:      make(map[string]map[string]struct{}),
	}
}

func (f *fakeVector) EnsureCollection(_ context.Context, kbID string, dim int, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ensureErr != nil {
		return f.ensureErr
	}
	f.collections[kbID] = dim
	return nil
}

func (f *fakeVector) Upsert(_ context.Context, kbID string, ids []string, vectors [][]float32, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if _, ok := f.collections[kbID]; !ok {
		return fmt.Errorf("collection for %s does not exist", kbID)
	}
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids/vectors length mismatch")
	}
	// Milvus upserts by primary key: known ids are overwritten, new ids are
	// added, nothing is removed.
	live := f.chunks[documentID]
	if live == nil {
		live = make(map[string]struct{})
		f.chunks[documentID] = live
	}
	for _, id := range ids {
		live[id] = struct{}{}
	}
	return nil
}

func (f *fakeVector) DeleteByDocument(_ context.Context, _ string, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.chunks, documentID)
	f.deleted = append(f.deleted, documentID)
	return nil
}

func (f *fakeVector) DropCollection(_ context.Context, kbID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dropErr != nil {
		return f.dropErr
	}
	delete(f.collections, kbID)
	f.dropped = append(f.dropped, kbID)
	return nil
}

func (f *fakeVector) UpsertedChunks(documentID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.chunks[documentID]))
	for id := range f.chunks[documentID] {
		ids = append(ids, id)
	}
	return ids
}

func (f *fakeVector) SetDeleteErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteErr = err
}
