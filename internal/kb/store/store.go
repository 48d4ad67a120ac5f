package store

import (
	"context"

	"github.com/kart-io/sentinel-kb/internal/model"
)

// Factory defines the factory interface for creating stores.
type Factory interface {
	KnowledgeBases() KnowledgeBaseStore
	Documents() DocumentStore
	Chunks() ChunkStore
	Executions() ExecutionStore

	// Tx runs fn inside a single database transaction. The Factory passed to
	// fn is bound to that transaction; any error rolls everything back.
	Tx(ctx context.Context, fn func(Factory) error) error

	Close() error
}

// KnowledgeBaseStore defines the knowledge base storage interface.
type KnowledgeBaseStore interface {
	Create(ctx context.Context, kb *model.KnowledgeBase) error
	Update(ctx context.Context, kb *model.KnowledgeBase) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.KnowledgeBase, error)
	List(ctx context.Context, tenant string, offset, limit int) (int64, []*model.KnowledgeBase, error)
}

// DocumentStore defines the document storage interface.
type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	CreateBatch(ctx context.Context, docs []*model.Document) error
	Update(ctx context.Context, doc *model.Document) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.Document, error)
	ListByKnowledgeBase(ctx context.Context, kbID string) ([]*model.Document, error)
	ListByStatus(ctx context.Context, status model.DocumentStatus) ([]*model.Document, error)
}

// ChunkStore defines the chunk storage interface.
type ChunkStore interface {
	CreateBatch(ctx context.Context, chunks []*model.Chunk) error
	UpdateBatch(ctx context.Context, chunks []*model.Chunk) error
	ListByDocument(ctx context.Context, documentID string) ([]*model.Chunk, error)
	CountByDocument(ctx context.Context, documentID string) (int64, error)
	DeleteByDocument(ctx context.Context, documentID string) error
	DeleteByKnowledgeBase(ctx context.Context, kbID string) error
}

// ExecutionStore defines the pipeline execution storage interface.
type ExecutionStore interface {
	Create(ctx context.Context, exec *model.PipelineExecution) error
	Update(ctx context.Context, exec *model.PipelineExecution) error
	Get(ctx context.Context, id string) (*model.PipelineExecution, error)
	ListByKnowledgeBase(ctx context.Context, kbID string) ([]*model.PipelineExecution, error)
}
