package biz

import (
	"context"
)

// ExtractedPage is one page returned by the content extraction service.
// A page either carries content or a scrape error, never both.
type ExtractedPage struct {
	URL     string `json:"url"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ContentExtractor fetches raw content from external locations. Implemented
// by pkg/component/extractor; failures surface as ErrCollaboratorUnavailable.
type ContentExtractor interface {
	// ExtractPage fetches a single page, used while staging draft sources.
	ExtractPage(ctx context.Context, url string) (string, error)

	// ExtractSite crawls a website and returns per-page results. Individual
	// page failures are reported inside the slice; the call itself only
	// fails when the extractor is unreachable.
	ExtractSite(ctx context.Context, url string) ([]ExtractedPage, error)
}

// Embedder turns text batches into embedding vectors. Implemented by
// pkg/component/ollama.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex is the per-knowledge-base vector collection surface.
// Implemented by pkg/component/milvus.
type VectorIndex interface {
	// EnsureCollection creates the knowledge base's collection if missing.
	EnsureCollection(ctx context.Context, kbID string, dim int, metric string) error

	// Upsert writes chunk vectors, replacing any prior entries with the
	// same chunk ids.
	Upsert(ctx context.Context, kbID string, ids []string, vectors [][]float32, documentID string) error

	// DeleteByDocument removes every vector belonging to the document.
	DeleteByDocument(ctx context.Context, kbID, documentID string) error

	// DropCollection removes the knowledge base's collection entirely.
	DropCollection(ctx context.Context, kbID string) error
}
