package biz

import (
	"unicode/utf8"

	"github.com/kart-io/sentinel-kb/internal/model"
	"github.com/kart-io/sentinel-kb/pkg/errors"
)

// SourcePreview is the chunking result for one source.
type SourcePreview struct {
	SourceID   string      `json:"source_id"`
	Locator    string      `json:"locator,omitempty"`
	Chunks     []TextChunk `json:"chunks"`
	ChunkCount int         `json:"chunk_count"`
	CharCount  int         `json:"char_count"`
}

// PreviewResult is the outcome of a dry-run chunking over a draft.
type PreviewResult struct {
	Sources         []SourcePreview `json:"sources"`
	TotalChunks     int             `json:"total_chunks"`
	TotalChars      int             `json:"total_chars"`
	EstimatedTokens int             `json:"estimated_tokens"`
	EstimatedCost   float64         `json:"estimated_cost"`
	EmbeddingModel  string          `json:"embedding_model"`
}

// Previewer chunks draft sources without persisting anything or calling any
// collaborator. Running it twice on the same draft yields identical results.
type Previewer struct {
	chunker *Chunker
	prices  map[string]float64 // model -> price per 1k tokens
}

// NewPreviewer creates a Previewer. prices may be nil when cost estimation
// is not configured; estimates then report zero cost.
func NewPreviewer(chunker *Chunker, prices map[string]float64) *Previewer {
	return &Previewer{chunker: chunker, prices: prices}
}

// Preview chunks the selected sources using the draft's chunking config.
// An empty sourceIDs selects every ready source. Selecting an id that is not
// in the draft fails with ErrSourceNotFound; selecting one that is not ready
// fails with ErrDraftInvalid.
func (p *Previewer) Preview(draft *model.Draft, sourceIDs []string) (*PreviewResult, error) {
	var selected []model.Source
	if len(sourceIDs) == 0 {
		selected = draft.ReadySources()
	} else {
		for _, sid := range sourceIDs {
			src := draft.FindSource(sid)
			if src == nil {
				return nil, errors.ErrSourceNotFound.WithMessagef("source %s not found in draft %s", sid, draft.ID)
			}
			if !src.Ready() {
				return nil, errors.ErrDraftInvalid.WithMessagef("source %s is not ready (status %s)", sid, src.Status)
			}
			selected = append(selected, *src)
		}
	}

	result := &PreviewResult{
		Sources:        make([]SourcePreview, 0, len(selected)),
		EmbeddingModel: draft.Config.Embedding.Model,
	}

	for _, src := range selected {
		chunks := p.chunker.Chunk(src.Content, draft.Config.Chunking)
		chars := utf8.RuneCountInString(src.Content)

		result.Sources = append(result.Sources, SourcePreview{
			SourceID:   src.ID,
			Locator:    src.Locator,
			Chunks:     chunks,
			ChunkCount: len(chunks),
			CharCount:  chars,
		})
		result.TotalChunks += len(chunks)
		result.TotalChars += chars
	}

	// Rough heuristic: ~4 characters per token.
	result.EstimatedTokens = result.TotalChars / 4
	if price, ok := p.prices[draft.Config.Embedding.Model]; ok {
		result.EstimatedCost = float64(result.EstimatedTokens) / 1000 * price
	}

	return result, nil
}
