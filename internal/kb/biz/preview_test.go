package biz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-kb/internal/model"
	"github.com/kart-io/sentinel-kb/pkg/errors"
)

func previewDraft() *model.Draft {
	cfg := model.DefaultKBConfig()
	return &model.Draft{
		ID:     "draft-1",
		Config: cfg,
		Sources: []model.Source{
			{ID: "src-ready", Type: model.SourceText, Content: strings.Repeat("a", 5000), Status: model.SourceReady},
			{ID: "src-small", Type: model.SourceText, Content: "short text", Status: model.SourceReady},
			{ID: "src-error", Type: model.SourceWebsite, Locator: "https://example.com", Status: model.SourceError},
		},
	}
}

func TestPreviewDefaultsToReadySources(t *testing.T) {
	previewer := NewPreviewer(NewChunker(), nil)

	result, err := previewer.Preview(previewDraft(), nil)
	require.NoError(t, err)

	require.Len(t, result.Sources, 2, "error sources are excluded from the default selection")
	assert.Equal(t, "src-ready", result.Sources[0].SourceID)
	assert.Equal(t, 7, result.Sources[0].ChunkCount)
	assert.Equal(t, 1, result.Sources[1].ChunkCount)
	assert.Equal(t, 8, result.TotalChunks)
	assert.Equal(t, 5010, result.TotalChars)
	assert.Equal(t, 5010/4, result.EstimatedTokens)
	assert.Zero(t, result.EstimatedCost, "no price table configured")
}

func TestPreviewSelectedSources(t *testing.T) {
	previewer := NewPreviewer(NewChunker(), nil)

	result, err := previewer.Preview(previewDraft(), []string{"src-small"})
	require.NoError(t, err)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "src-small", result.Sources[0].SourceID)
}

func TestPreviewUnknownSource(t *testing.T) {
	previewer := NewPreviewer(NewChunker(), nil)

	_, err := previewer.Preview(previewDraft(), []string{"src-missing"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrSourceNotFound.Code))
}

func TestPreviewNotReadySource(t *testing.T) {
	previewer := NewPreviewer(NewChunker(), nil)

	_, err := previewer.Preview(previewDraft(), []string{"src-error"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrDraftInvalid.Code))
}

func TestPreviewIsDeterministic(t *testing.T) {
	previewer := NewPreviewer(NewChunker(), nil)
	draft := previewDraft()

	first, err := previewer.Preview(draft, nil)
	require.NoError(t, err)
	second, err := previewer.Preview(draft, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPreviewCostEstimate(t *testing.T) {
	prices := map[string]float64{"nomic-embed-text": 0.02}
	previewer := NewPreviewer(NewChunker(), prices)

	result, err := previewer.Preview(previewDraft(), nil)
	require.NoError(t, err)

	wantTokens := 5010 / 4
	assert.InDelta(t, float64(wantTokens)/1000*0.02, result.EstimatedCost, 1e-9)
	assert.Equal(t, "nomic-embed-text", result.EmbeddingModel)
}
