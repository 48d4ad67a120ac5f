package biz

import (
	"context"
	"encoding/json"

	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-kb/internal/kb/store"
	"github.com/kart-io/sentinel-kb/internal/model"
	"github.com/kart-io/sentinel-kb/pkg/errors"
	"github.com/kart-io/sentinel-kb/pkg/id"
)

// FinalizeResult is returned to the caller immediately after finalization;
// the pipeline keeps running in the background and is polled through the
// execution id.
type FinalizeResult struct {
	KnowledgeBase *model.KnowledgeBase     `json:"knowledge_base"`
	Execution     *model.PipelineExecution `json:"execution"`
	Documents     []*model.Document        `json:"documents"`
}

// Finalizer converts a staged draft into a durable knowledge base and kicks
// off its first pipeline execution.
type Finalizer struct {
	store    store.Factory
	drafts   *DraftManager
	tracker  *Tracker
	pipeline *Pipeline
}

// NewFinalizer creates a Finalizer.
func NewFinalizer(st store.Factory, drafts *DraftManager, tracker *Tracker, pipeline *Pipeline) *Finalizer {
	return &Finalizer{store: st, drafts: drafts, tracker: tracker, pipeline: pipeline}
}

// Finalize validates the draft, persists the knowledge base with one pending
// document per ready source in a single transaction, and schedules the
// pipeline only after that transaction commits. The draft is discarded last;
// a failure to discard leaves an expiring orphan, not an inconsistency.
func (f *Finalizer) Finalize(ctx context.Context, draftID string) (*FinalizeResult, error) {
	draft, err := f.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if err := f.drafts.Validate(draft); err != nil {
		return nil, err
	}

	cfgData, err := json.Marshal(draft.Config)
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}

	kb := &model.KnowledgeBase{
		ID:     id.NewULID(),
		Tenant: draft.Tenant,
		Name:   draft.Name,
		Config: string(cfgData),
		Status: model.KnowledgeBaseProcessing,
	}

	sources := draft.ReadySources()
	docs := make([]*model.Document, len(sources))
	for i, src := range sources {
		docs[i] = &model.Document{
			ID:              id.NewULID(),
			KnowledgeBaseID: kb.ID,
			SourceType:      src.Type,
			SourceLocator:   src.Locator,
			Content:         src.Content,
			Fingerprint:     Fingerprint(src.Content),
			Status:          model.DocumentPending,
		}
	}

	if err := f.store.Tx(ctx, func(tx store.Factory) error {
		if err := tx.KnowledgeBases().Create(ctx, kb); err != nil {
			return err
		}
		return tx.Documents().CreateBatch(ctx, docs)
	}); err != nil {
		return nil, errors.ErrDBTransaction.WithCause(err)
	}

	exec, err := f.tracker.StartExecution(ctx, kb.ID, docs)
	if err != nil {
		// The knowledge base is durable but nothing is processing it. Mark it
		// failed so the caller can reprocess instead of polling forever.
		kb.Status = model.KnowledgeBaseFailed
		kb.Error = "failed to start pipeline execution"
		if uerr := f.store.KnowledgeBases().Update(ctx, kb); uerr != nil {
			logger.Errorw("cannot mark knowledge base failed", "kb_id", kb.ID, "error", uerr)
		}
		return nil, errors.ErrDatabase.WithCause(err)
	}

	f.pipeline.Run(kb, exec, docs)

	if err := f.drafts.Delete(ctx, draftID); err != nil {
		logger.Warnw("finalized draft not discarded, will expire", "draft_id", draftID, "error", err)
	}

	logger.Infow("draft finalized",
		"draft_id", draftID, "kb_id", kb.ID, "execution_id", exec.ID, "documents", len(docs))

	return &FinalizeResult{KnowledgeBase: kb, Execution: exec, Documents: docs}, nil
}
