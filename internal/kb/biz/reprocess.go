package biz

import (
	"context"

	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-kb/internal/kb/store"
	"github.com/kart-io/sentinel-kb/internal/model"
	"github.com/kart-io/sentinel-kb/pkg/errors"
)

// Reprocessor handles post-finalization content changes: document updates
// that re-run the pipeline, and deletions that must reconcile the vector
// index with the relational store.
type Reprocessor struct {
	store    store.Factory
	vector   VectorIndex
	tracker  *Tracker
	pipeline *Pipeline
}

// NewReprocessor creates a Reprocessor.
func NewReprocessor(st store.Factory, vector VectorIndex, tracker *Tracker, pipeline *Pipeline) *Reprocessor {
	return &Reprocessor{store: st, vector: vector, tracker: tracker, pipeline: pipeline}
}

// UpdateDocument replaces a document's content and re-runs the pipeline for
// that document alone. Content whose fingerprint matches the stored one is a
// no-op: no new execution, no status change.
func (r *Reprocessor) UpdateDocument(ctx context.Context, kbID, docID, content string) (*model.Document, *model.PipelineExecution, error) {
	kb, err := r.store.KnowledgeBases().Get(ctx, kbID)
	if err != nil {
		return nil, nil, err
	}
	doc, err := r.store.Documents().Get(ctx, docID)
	if err != nil {
		return nil, nil, err
	}
	if doc.KnowledgeBaseID != kbID {
		return nil, nil, errors.ErrDocumentNotFound.WithMessagef("document %s does not belong to knowledge base %s", docID, kbID)
	}

	fingerprint := Fingerprint(content)
	if fingerprint == doc.Fingerprint && doc.Status == model.DocumentCompleted {
		logger.Infow("document content unchanged, skipping reprocess", "document_id", docID)
		return doc, nil, nil
	}

	doc.Content = content
	doc.Fingerprint = fingerprint
	doc.Status = model.DocumentPending
	doc.Progress = 0
	doc.Error = ""
	doc.PageErrors = ""
	kb.Status = model.KnowledgeBaseProcessing

	if err := r.store.Tx(ctx, func(tx store.Factory) error {
		if err := tx.Documents().Update(ctx, doc); err != nil {
			return err
		}
		return tx.KnowledgeBases().Update(ctx, kb)
	}); err != nil {
		return nil, nil, errors.ErrDBTransaction.WithCause(err)
	}

	exec, err := r.tracker.StartExecution(ctx, kbID, []*model.Document{doc})
	if err != nil {
		return nil, nil, errors.ErrDatabase.WithCause(err)
	}
	r.pipeline.Run(kb, exec, []*model.Document{doc})

	logger.Infow("document reprocessing", "document_id", docID, "execution_id", exec.ID)
	return doc, exec, nil
}

// DeleteDocument removes a document, vectors first. When the vector index
// cannot be reached, the document is parked in pending_deletion and the call
// still succeeds; the sweeper retries until the index confirms the delete.
// Relational rows are only removed after the vectors are gone, so a chunk
// row without a live vector is possible but a live vector without its chunk
// row is not.
func (r *Reprocessor) DeleteDocument(ctx context.Context, kbID, docID string) error {
	doc, err := r.store.Documents().Get(ctx, docID)
	if err != nil {
		return err
	}
	if doc.KnowledgeBaseID != kbID {
		return errors.ErrDocumentNotFound.WithMessagef("document %s does not belong to knowledge base %s", docID, kbID)
	}

	if err := r.vector.DeleteByDocument(ctx, kbID, docID); err != nil {
		logger.Warnw("vector delete failed, parking document for sweeper",
			"document_id", docID, "kb_id", kbID, "error", err)
		doc.Status = model.DocumentPendingDeletion
		doc.Error = err.Error()
		if uerr := r.store.Documents().Update(ctx, doc); uerr != nil {
			return errors.ErrDatabase.WithCause(uerr)
		}
		return nil
	}

	return r.purgeDocument(ctx, doc)
}

// DeleteKnowledgeBase removes the knowledge base, its documents, its chunks,
// and its vector collection. The collection is dropped first; if the drop
// fails the relational state is left untouched and the caller retries.
func (r *Reprocessor) DeleteKnowledgeBase(ctx context.Context, kbID string) error {
	kb, err := r.store.KnowledgeBases().Get(ctx, kbID)
	if err != nil {
		return err
	}

	if exec, err := r.runningExecution(ctx, kbID); err == nil && exec != nil {
		r.pipeline.Cancel(exec.ID)
	}

	if err := r.vector.DropCollection(ctx, kbID); err != nil {
		return errors.ErrVectorDeleteFailed.WithCause(err)
	}

	if err := r.store.Tx(ctx, func(tx store.Factory) error {
		if err := tx.Chunks().DeleteByKnowledgeBase(ctx, kbID); err != nil {
			return err
		}
		docs, err := tx.Documents().ListByKnowledgeBase(ctx, kbID)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			if err := tx.Documents().Delete(ctx, doc.ID); err != nil {
				return err
			}
		}
		return tx.KnowledgeBases().Delete(ctx, kbID)
	}); err != nil {
		return errors.ErrDBTransaction.WithCause(err)
	}

	logger.Infow("knowledge base deleted", "kb_id", kbID, "name", kb.Name)
	return nil
}

func (r *Reprocessor) runningExecution(ctx context.Context, kbID string) (*model.PipelineExecution, error) {
	execs, err := r.store.Executions().ListByKnowledgeBase(ctx, kbID)
	if err != nil {
		return nil, err
	}
	for _, exec := range execs {
		if exec.Status == model.ExecutionRunning {
			return exec, nil
		}
	}
	return nil, nil
}

// purgeDocument removes the relational rows of a document whose vectors are
// already gone.
func (r *Reprocessor) purgeDocument(ctx context.Context, doc *model.Document) error {
	if err := r.store.Tx(ctx, func(tx store.Factory) error {
		if err := tx.Chunks().DeleteByDocument(ctx, doc.ID); err != nil {
			return err
		}
		return tx.Documents().Delete(ctx, doc.ID)
	}); err != nil {
		return errors.ErrDBTransaction.WithCause(err)
	}
	logger.Infow("document deleted", "document_id", doc.ID, "kb_id", doc.KnowledgeBaseID)
	return nil
}
