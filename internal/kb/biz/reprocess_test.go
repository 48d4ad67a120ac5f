package biz

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-kb/internal/model"
	"github.com/kart-io/sentinel-kb/pkg/errors"
)

func newReprocessor(env *pipelineEnv) *Reprocessor {
	return NewReprocessor(env.store, env.vector, env.tracker, env.pipeline)
}

// seedCompleted runs a text document through the whole pipeline so reprocess
// tests start from a realistic completed state.
func seedCompleted(t *testing.T, env *pipelineEnv, content string) (*model.KnowledgeBase, *model.Document) {
	t.Helper()

	kb := env.seedKB(t, testKBConfig())
	doc := env.seedDoc(t, kb.ID, &model.Document{
		SourceType: model.SourceText,
		Content:    content,
	})
	exec := env.run(t, kb, doc)
	final := env.waitTerminal(t, exec.ID)
	require.Equal(t, model.ExecutionCompleted, final.Status)

	fresh, err := env.store.Documents().Get(context.Background(), doc.ID)
	require.NoError(t, err)
	return kb, fresh
}

func TestUpdateDocumentUnchangedIsNoOp(t *testing.T) {
	ctx := context.Background()
	env := newPipelineEnv(t, nil)
	rep := newReprocessor(env)

	content := strings.Repeat("stable ", 60)
	kb, doc := seedCompleted(t, env, content)

	before, err := env.store.Executions().ListByKnowledgeBase(ctx, kb.ID)
	require.NoError(t, err)

	got, exec, err := rep.UpdateDocument(ctx, kb.ID, doc.ID, content)
	require.NoError(t, err)
	assert.Nil(t, exec, "unchanged content must not start an execution")
	assert.Equal(t, model.DocumentCompleted, got.Status)

	after, err := env.store.Executions().ListByKnowledgeBase(ctx, kb.ID)
	require.NoError(t, err)
	assert.Len(t, after, len(before))
}

func TestUpdateDocumentReprocesses(t *testing.T) {
	ctx := context.Background()
	env := newPipelineEnv(t, nil)
	rep := newReprocessor(env)

	kb, doc := seedCompleted(t, env, strings.Repeat("old ", 60))
	oldFingerprint := doc.Fingerprint

	newContent := strings.Repeat("new ", 60)
	_, exec, err := rep.UpdateDocument(ctx, kb.ID, doc.ID, newContent)
	require.NoError(t, err)
	require.NotNil(t, exec)

	final := env.waitTerminal(t, exec.ID)
	assert.Equal(t, model.ExecutionCompleted, final.Status)

	got, err := env.store.Documents().Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentCompleted, got.Status)
	assert.NotEqual(t, oldFingerprint, got.Fingerprint)
	assert.Equal(t, newContent, got.Content)
}

func TestUpdateDocumentReplacesVectors(t *testing.T) {
	ctx := context.Background()
	env := newPipelineEnv(t, nil)
	rep := newReprocessor(env)

	kb, doc := seedCompleted(t, env, strings.Repeat("first generation ", 40))
	firstGen := env.vector.UpsertedChunks(doc.ID)
	require.NotEmpty(t, firstGen)

	_, exec, err := rep.UpdateDocument(ctx, kb.ID, doc.ID, strings.Repeat("second generation ", 40))
	require.NoError(t, err)
	require.NotNil(t, exec)
	final := env.waitTerminal(t, exec.ID)
	require.Equal(t, model.ExecutionCompleted, final.Status)

	// Reprocessing mints new chunk ids; the index must hold exactly the
	// current generation, nothing from before the update.
	chunks, err := env.store.Chunks().ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	live := env.vector.UpsertedChunks(doc.ID)
	assert.Len(t, live, len(chunks))
	for _, old := range firstGen {
		assert.NotContains(t, live, old, "stale vector survived the reprocess")
	}
}

func TestUpdateDocumentWrongKnowledgeBase(t *testing.T) {
	ctx := context.Background()
	env := newPipelineEnv(t, nil)
	rep := newReprocessor(env)

	kb, doc := seedCompleted(t, env, strings.Repeat("a ", 60))
	other := env.seedKB(t, testKBConfig())

	_, _, err := rep.UpdateDocument(ctx, other.ID, doc.ID, "whatever")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrDocumentNotFound.Code))
	_ = kb
}

func TestDeleteDocument(t *testing.T) {
	ctx := context.Background()
	env := newPipelineEnv(t, nil)
	rep := newReprocessor(env)

	kb, doc := seedCompleted(t, env, strings.Repeat("gone ", 60))

	require.NoError(t, rep.DeleteDocument(ctx, kb.ID, doc.ID))

	_, err := env.store.Documents().Get(ctx, doc.ID)
	assert.True(t, errors.IsCode(err, errors.ErrDocumentNotFound.Code))

	count, err := env.store.Chunks().CountByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, env.vector.UpsertedChunks(doc.ID))
}

func TestDeleteDocumentParksOnVectorFailure(t *testing.T) {
	ctx := context.Background()
	env := newPipelineEnv(t, nil)
	rep := newReprocessor(env)

	kb, doc := seedCompleted(t, env, strings.Repeat("stuck ", 60))
	env.vector.SetDeleteErr(fmt.Errorf("milvus unreachable"))

	// The delete succeeds from the caller's perspective; the document parks.
	require.NoError(t, rep.DeleteDocument(ctx, kb.ID, doc.ID))

	got, err := env.store.Documents().Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentPendingDeletion, got.Status)

	// Chunk rows stay until the vectors are confirmed gone.
	count, err := env.store.Chunks().CountByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.NotZero(t, count)

	// Sweeper retries once the index recovers.
	env.vector.SetDeleteErr(nil)
	NewSweeper(env.store, env.vector, 0).Sweep(ctx)

	_, err = env.store.Documents().Get(ctx, doc.ID)
	assert.True(t, errors.IsCode(err, errors.ErrDocumentNotFound.Code))
	count, err = env.store.Chunks().CountByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSweeperKeepsParkedOnRepeatedFailure(t *testing.T) {
	ctx := context.Background()
	env := newPipelineEnv(t, nil)
	rep := newReprocessor(env)

	kb, doc := seedCompleted(t, env, strings.Repeat("sticky ", 60))
	env.vector.SetDeleteErr(fmt.Errorf("still down"))
	require.NoError(t, rep.DeleteDocument(ctx, kb.ID, doc.ID))

	NewSweeper(env.store, env.vector, 0).Sweep(ctx)

	got, err := env.store.Documents().Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentPendingDeletion, got.Status)
}

func TestDeleteKnowledgeBase(t *testing.T) {
	ctx := context.Background()
	env := newPipelineEnv(t, nil)
	rep := newReprocessor(env)

	kb, doc := seedCompleted(t, env, strings.Repeat("cascade ", 60))

	require.NoError(t, rep.DeleteKnowledgeBase(ctx, kb.ID))

	_, err := env.store.KnowledgeBases().Get(ctx, kb.ID)
	assert.True(t, errors.IsCode(err, errors.ErrKnowledgeBaseNotFound.Code))
	_, err = env.store.Documents().Get(ctx, doc.ID)
	assert.True(t, errors.IsCode(err, errors.ErrDocumentNotFound.Code))

	count, err := env.store.Chunks().CountByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Contains(t, env.vector.dropped, kb.ID)
}

func TestDeleteKnowledgeBaseDropFailure(t *testing.T) {
	ctx := context.Background()
	env := newPipelineEnv(t, nil)
	rep := newReprocessor(env)

	kb, doc := seedCompleted(t, env, strings.Repeat("keep ", 60))
	env.vector.dropErr = fmt.Errorf("milvus unreachable")

	err := rep.DeleteKnowledgeBase(ctx, kb.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrVectorDeleteFailed.Code))

	// Relational state untouched; the caller retries the whole delete.
	_, err = env.store.KnowledgeBases().Get(ctx, kb.ID)
	assert.NoError(t, err)
	_, err = env.store.Documents().Get(ctx, doc.ID)
	assert.NoError(t, err)
}
