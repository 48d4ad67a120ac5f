package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kart-io/sentinel-kb/internal/model"
)

func newTestFactory(t *testing.T) Factory {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	return New(db)
}

func TestKnowledgeBaseCRUD(t *testing.T) {
	ctx := context.Background()
	ds := newTestFactory(t)

	kb := &model.KnowledgeBase{
		ID:     "kb1",
		Tenant: "t1",
		Name:   "docs",
		Config: "{}",
		Status: model.KnowledgeBaseProcessing,
	}
	require.NoError(t, ds.KnowledgeBases().Create(ctx, kb))

	got, err := ds.KnowledgeBases().Get(ctx, "kb1")
	require.NoError(t, err)
	assert.Equal(t, "docs", got.Name)
	assert.Equal(t, model.KnowledgeBaseProcessing, got.Status)

	got.Status = model.KnowledgeBaseReady
	require.NoError(t, ds.KnowledgeBases().Update(ctx, got))

	got, err = ds.KnowledgeBases().Get(ctx, "kb1")
	require.NoError(t, err)
	assert.Equal(t, model.KnowledgeBaseReady, got.Status)

	require.NoError(t, ds.KnowledgeBases().Delete(ctx, "kb1"))
	_, err = ds.KnowledgeBases().Get(ctx, "kb1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestKnowledgeBaseListScopedByTenant(t *testing.T) {
	ctx := context.Background()
	ds := newTestFactory(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, ds.KnowledgeBases().Create(ctx, &model.KnowledgeBase{
			ID: fmt.Sprintf("kb-a-%d", i), Tenant: "a", Name: "x", Config: "{}",
		}))
	}
	require.NoError(t, ds.KnowledgeBases().Create(ctx, &model.KnowledgeBase{
		ID: "kb-b-0", Tenant: "b", Name: "y", Config: "{}",
	}))

	count, kbs, err := ds.KnowledgeBases().List(ctx, "a", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
	assert.Len(t, kbs, 3)

	count, _, err = ds.KnowledgeBases().List(ctx, "b", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestDocumentListByStatus(t *testing.T) {
	ctx := context.Background()
	ds := newTestFactory(t)

	require.NoError(t, ds.Documents().CreateBatch(ctx, []*model.Document{
		{ID: "d1", KnowledgeBaseID: "kb1", SourceType: model.SourceText, Status: model.DocumentPending},
		{ID: "d2", KnowledgeBaseID: "kb1", SourceType: model.SourceText, Status: model.DocumentPendingDeletion},
		{ID: "d3", KnowledgeBaseID: "kb2", SourceType: model.SourceText, Status: model.DocumentPendingDeletion},
	}))

	pending, err := ds.Documents().ListByStatus(ctx, model.DocumentPendingDeletion)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	for _, doc := range pending {
		assert.Equal(t, model.DocumentPendingDeletion, doc.Status)
	}
}

func TestChunkBatchAndDelete(t *testing.T) {
	ctx := context.Background()
	ds := newTestFactory(t)

	batch := []*model.Chunk{
		{ID: "c1", DocumentID: "d1", KnowledgeBaseID: "kb1", Content: "one", Position: 0},
		{ID: "c2", DocumentID: "d1", KnowledgeBaseID: "kb1", Content: "two", Position: 1},
		{ID: "c3", DocumentID: "d2", KnowledgeBaseID: "kb1", Content: "three", Position: 0},
	}
	require.NoError(t, ds.Chunks().CreateBatch(ctx, batch))

	count, err := ds.Chunks().CountByDocument(ctx, "d1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	listed, err := ds.Chunks().ListByDocument(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "one", listed[0].Content)
	assert.Equal(t, "two", listed[1].Content)

	// Attach embeddings and save back.
	listed[0].Embedding = []byte{1, 2, 3}
	listed[1].Embedding = []byte{4, 5, 6}
	require.NoError(t, ds.Chunks().UpdateBatch(ctx, listed))

	listed, err = ds.Chunks().ListByDocument(ctx, "d1")
	require.NoError(t, err)
	assert.True(t, listed[0].HasEmbedding())

	require.NoError(t, ds.Chunks().DeleteByDocument(ctx, "d1"))
	count, err = ds.Chunks().CountByDocument(ctx, "d1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	require.NoError(t, ds.Chunks().DeleteByKnowledgeBase(ctx, "kb1"))
	count, err = ds.Chunks().CountByDocument(ctx, "d2")
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestExecutionCRUD(t *testing.T) {
	ctx := context.Background()
	ds := newTestFactory(t)

	exec := &model.PipelineExecution{
		ID:              "e1",
		KnowledgeBaseID: "kb1",
		Status:          model.ExecutionRunning,
	}
	require.NoError(t, ds.Executions().Create(ctx, exec))

	exec.Status = model.ExecutionCompleted
	exec.Progress = 100
	require.NoError(t, ds.Executions().Update(ctx, exec))

	got, err := ds.Executions().Get(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)

	execs, err := ds.Executions().ListByKnowledgeBase(ctx, "kb1")
	require.NoError(t, err)
	assert.Len(t, execs, 1)
}

func TestTxRollback(t *testing.T) {
	ctx := context.Background()
	ds := newTestFactory(t)

	err := ds.Tx(ctx, func(tx Factory) error {
		if err := tx.KnowledgeBases().Create(ctx, &model.KnowledgeBase{
			ID: "kb1", Tenant: "t1", Name: "x", Config: "{}",
		}); err != nil {
			return err
		}
		if err := tx.Documents().Create(ctx, &model.Document{
			ID: "d1", KnowledgeBaseID: "kb1", SourceType: model.SourceText,
		}); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	// Nothing committed.
	_, err = ds.KnowledgeBases().Get(ctx, "kb1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = ds.Documents().Get(ctx, "d1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTxCommit(t *testing.T) {
	ctx := context.Background()
	ds := newTestFactory(t)

	err := ds.Tx(ctx, func(tx Factory) error {
		if err := tx.KnowledgeBases().Create(ctx, &model.KnowledgeBase{
			ID: "kb1", Tenant: "t1", Name: "x", Config: "{}",
		}); err != nil {
			return err
		}
		return tx.Documents().Create(ctx, &model.Document{
			ID: "d1", KnowledgeBaseID: "kb1", SourceType: model.SourceText, Status: model.DocumentPending,
		})
	})
	require.NoError(t, err)

	kb, err := ds.KnowledgeBases().Get(ctx, "kb1")
	require.NoError(t, err)
	assert.Equal(t, "kb1", kb.ID)

	doc, err := ds.Documents().Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, model.DocumentPending, doc.Status)
}
