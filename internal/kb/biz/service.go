// Package biz implements the knowledge base ingestion domain: draft staging,
// chunk preview, finalization, the document pipeline, and reprocessing.
package biz

import (
	"context"
	"time"

	"github.com/kart-io/sentinel-kb/internal/kb/staging"
	"github.com/kart-io/sentinel-kb/internal/kb/store"
	"github.com/kart-io/sentinel-kb/internal/model"
	"github.com/kart-io/sentinel-kb/pkg/errors"
	"github.com/kart-io/sentinel-kb/pkg/infra/pool"
)

// Service is the facade the transport layer talks to. It composes the draft
// manager, previewer, finalizer, pipeline, and reprocessor over one store
// factory.
type Service struct {
	store store.Factory

	Drafts      *DraftManager
	Previewer   *Previewer
	Finalizer   *Finalizer
	Pipeline    *Pipeline
	Reprocessor *Reprocessor
	Sweeper     *Sweeper
	Tracker     *Tracker
}

// ServiceConfig bundles the collaborators and tuning a Service needs.
type ServiceConfig struct {
	Store     store.Factory
	Staging   staging.Store
	Extractor ContentExtractor
	Embedder  Embedder
	Vector    VectorIndex
	Pool      *pool.Pool
	Pipeline  *PipelineConfig
	// SweepInterval is how often parked deletions are retried. Zero uses
	// DefaultSweepInterval.
	SweepInterval time.Duration
	// Prices maps embedding model names to a price per thousand tokens for
	// preview cost estimation. Optional.
	Prices map[string]float64
}

// NewService wires the domain together.
func NewService(cfg ServiceConfig) *Service {
	tracker := NewTracker(cfg.Store)
	pipeline := NewPipeline(cfg.Store, cfg.Vector, cfg.Embedder, cfg.Extractor, tracker, cfg.Pool, cfg.Pipeline)
	drafts := NewDraftManager(cfg.Staging, cfg.Extractor)

	return &Service{
		store:       cfg.Store,
		Drafts:      drafts,
		Previewer:   NewPreviewer(NewChunker(), cfg.Prices),
		Finalizer:   NewFinalizer(cfg.Store, drafts, tracker, pipeline),
		Pipeline:    pipeline,
		Reprocessor: NewReprocessor(cfg.Store, cfg.Vector, tracker, pipeline),
		Sweeper:     NewSweeper(cfg.Store, cfg.Vector, cfg.SweepInterval),
		Tracker:     tracker,
	}
}

// Preview runs dry-run chunking over a staged draft.
func (s *Service) Preview(ctx context.Context, draftID string, sourceIDs []string) (*PreviewResult, error) {
	draft, err := s.Drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	return s.Previewer.Preview(draft, sourceIDs)
}

// GetKnowledgeBase returns one knowledge base scoped to a tenant.
func (s *Service) GetKnowledgeBase(ctx context.Context, tenant, kbID string) (*model.KnowledgeBase, error) {
	kb, err := s.store.KnowledgeBases().Get(ctx, kbID)
	if err != nil {
		return nil, err
	}
	if kb.Tenant != tenant {
		return nil, errors.ErrKnowledgeBaseNotFound
	}
	return kb, nil
}

// ListKnowledgeBases lists a tenant's knowledge bases.
func (s *Service) ListKnowledgeBases(ctx context.Context, tenant string, offset, limit int) (int64, []*model.KnowledgeBase, error) {
	return s.store.KnowledgeBases().List(ctx, tenant, offset, limit)
}

// GetDocument returns one document of a knowledge base.
func (s *Service) GetDocument(ctx context.Context, tenant, kbID, docID string) (*model.Document, error) {
	if _, err := s.GetKnowledgeBase(ctx, tenant, kbID); err != nil {
		return nil, err
	}
	doc, err := s.store.Documents().Get(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc.KnowledgeBaseID != kbID {
		return nil, errors.ErrDocumentNotFound
	}
	return doc, nil
}

// ListDocuments lists the documents of a knowledge base.
func (s *Service) ListDocuments(ctx context.Context, tenant, kbID string) ([]*model.Document, error) {
	if _, err := s.GetKnowledgeBase(ctx, tenant, kbID); err != nil {
		return nil, err
	}
	return s.store.Documents().ListByKnowledgeBase(ctx, kbID)
}

// GetExecution returns a pipeline execution for polling.
func (s *Service) GetExecution(ctx context.Context, tenant, execID string) (*model.PipelineExecution, error) {
	exec, err := s.store.Executions().Get(ctx, execID)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetKnowledgeBase(ctx, tenant, exec.KnowledgeBaseID); err != nil {
		return nil, errors.ErrExecutionNotFound
	}
	return exec, nil
}

// ListExecutions lists the executions of a knowledge base, newest first.
func (s *Service) ListExecutions(ctx context.Context, tenant, kbID string) ([]*model.PipelineExecution, error) {
	if _, err := s.GetKnowledgeBase(ctx, tenant, kbID); err != nil {
		return nil, err
	}
	return s.store.Executions().ListByKnowledgeBase(ctx, kbID)
}

// CancelExecution requests cancellation of a running execution.
func (s *Service) CancelExecution(ctx context.Context, tenant, execID string) error {
	exec, err := s.GetExecution(ctx, tenant, execID)
	if err != nil {
		return err
	}
	if exec.Status.Terminal() {
		return errors.ErrConflict.WithMessagef("execution %s already %s", execID, exec.Status)
	}
	s.Pipeline.Cancel(execID)
	return nil
}

// UpdateDocument replaces document content, reprocessing unless unchanged.
func (s *Service) UpdateDocument(ctx context.Context, tenant, kbID, docID, content string) (*model.Document, *model.PipelineExecution, error) {
	if _, err := s.GetKnowledgeBase(ctx, tenant, kbID); err != nil {
		return nil, nil, err
	}
	return s.Reprocessor.UpdateDocument(ctx, kbID, docID, content)
}

// DeleteDocument removes a document, vectors first.
func (s *Service) DeleteDocument(ctx context.Context, tenant, kbID, docID string) error {
	if _, err := s.GetKnowledgeBase(ctx, tenant, kbID); err != nil {
		return err
	}
	return s.Reprocessor.DeleteDocument(ctx, kbID, docID)
}

// DeleteKnowledgeBase cascades a knowledge base deletion.
func (s *Service) DeleteKnowledgeBase(ctx context.Context, tenant, kbID string) error {
	if _, err := s.GetKnowledgeBase(ctx, tenant, kbID); err != nil {
		return err
	}
	return s.Reprocessor.DeleteKnowledgeBase(ctx, kbID)
}
