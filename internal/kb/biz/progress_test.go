package biz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-kb/internal/model"
	"github.com/kart-io/sentinel-kb/pkg/id"
)

func trackerFixture(t *testing.T, docCount int) (*Tracker, *model.PipelineExecution, []*model.Document) {
	t.Helper()
	ctx := context.Background()
	factory := newTestFactory(t)
	tracker := NewTracker(factory)

	kbID := id.NewULID()
	docs := make([]*model.Document, docCount)
	for i := range docs {
		docs[i] = &model.Document{
			ID:              id.NewULID(),
			KnowledgeBaseID: kbID,
			SourceType:      model.SourceText,
			Content:         "content",
			Status:          model.DocumentPending,
		}
		require.NoError(t, factory.Documents().Create(ctx, docs[i]))
	}

	exec, err := tracker.StartExecution(ctx, kbID, docs)
	require.NoError(t, err)
	return tracker, exec, docs
}

func TestTrackerStageBands(t *testing.T) {
	ctx := context.Background()
	tracker, exec, docs := trackerFixture(t, 1)
	doc := docs[0]

	steps := []struct {
		stage model.DocumentStatus
		want  int
	}{
		{model.DocumentScraping, 10},
		{model.DocumentParsing, 40},
		{model.DocumentChunking, 55},
		{model.DocumentEmbedding, 70},
		{model.DocumentIndexing, 90},
	}
	for _, step := range steps {
		require.NoError(t, tracker.EnterStage(ctx, exec.ID, doc, step.stage))
		assert.Equal(t, step.want, doc.Progress, "band start for %s", step.stage)
	}

	// Halfway through indexing sits mid-band.
	require.NoError(t, tracker.StageProgress(ctx, exec.ID, doc, 0.5))
	assert.Equal(t, 95, doc.Progress)

	// Fractions are clamped.
	require.NoError(t, tracker.StageProgress(ctx, exec.ID, doc, 2.0))
	assert.Equal(t, 100, doc.Progress)
	require.NoError(t, tracker.StageProgress(ctx, exec.ID, doc, -1))
	assert.Equal(t, 90, doc.Progress)
}

func TestTrackerExecutionProgressIsMean(t *testing.T) {
	ctx := context.Background()
	tracker, exec, docs := trackerFixture(t, 2)
	factory := tracker.store

	require.NoError(t, tracker.EnterStage(ctx, exec.ID, docs[0], model.DocumentEmbedding)) // 70
	require.NoError(t, tracker.EnterStage(ctx, exec.ID, docs[1], model.DocumentScraping))  // 10

	got, err := factory.Executions().Get(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Progress)

	outcomes, err := ParseOutcomes(got)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, model.DocumentEmbedding, outcomes[0].Status)
	assert.Equal(t, model.DocumentScraping, outcomes[1].Status)
}

func TestTrackerFailFreezesProgress(t *testing.T) {
	ctx := context.Background()
	tracker, exec, docs := trackerFixture(t, 1)
	doc := docs[0]

	require.NoError(t, tracker.EnterStage(ctx, exec.ID, doc, model.DocumentChunking))
	require.NoError(t, tracker.Fail(ctx, exec.ID, doc, assert.AnError))

	assert.Equal(t, model.DocumentFailed, doc.Status)
	assert.Equal(t, 55, doc.Progress, "failure must freeze progress where it stopped")
	assert.Equal(t, assert.AnError.Error(), doc.Error)
}

func TestTrackerTerminalExecutionIsFrozen(t *testing.T) {
	ctx := context.Background()
	tracker, exec, docs := trackerFixture(t, 1)
	doc := docs[0]

	require.NoError(t, tracker.FinishExecution(ctx, exec.ID, model.ExecutionCompleted))

	// Late progress reports after settlement must not resurrect the row.
	require.NoError(t, tracker.EnterStage(ctx, exec.ID, doc, model.DocumentEmbedding))

	got, err := tracker.store.Executions().Get(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionCompleted, got.Status)
	assert.Equal(t, 0, got.Progress)

	// And a second finish with a different status is ignored.
	require.NoError(t, tracker.FinishExecution(ctx, exec.ID, model.ExecutionFailed))
	got, err = tracker.store.Executions().Get(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionCompleted, got.Status)
}
