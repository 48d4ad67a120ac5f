package biz

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-kb/internal/kb/store"
	"github.com/kart-io/sentinel-kb/internal/model"
	"github.com/kart-io/sentinel-kb/pkg/id"
)

// stageRanges maps each pipeline stage to its [start, end) progress band.
// A document sits at the band start when the stage begins and walks toward
// the end as the stage reports fractional progress.
var stageRanges = map[model.DocumentStatus][2]int{
	model.DocumentScraping:  {10, 40},
	model.DocumentParsing:   {40, 55},
	model.DocumentChunking:  {55, 70},
	model.DocumentEmbedding: {70, 90},
	model.DocumentIndexing:  {90, 100},
}

// Tracker maintains per-document progress and rolls it up into the owning
// pipeline execution. Executions are never mutated once terminal.
type Tracker struct {
	store store.Factory

	// mu serializes read-modify-write cycles on execution rows; worker
	// goroutines report progress concurrently.
	mu sync.Mutex
}

// NewTracker creates a Tracker.
func NewTracker(st store.Factory) *Tracker {
	return &Tracker{store: st}
}

// StartExecution creates a running execution covering the given documents,
// each starting at zero progress.
func (t *Tracker) StartExecution(ctx context.Context, kbID string, docs []*model.Document) (*model.PipelineExecution, error) {
	outcomes := make([]model.DocumentOutcome, len(docs))
	for i, doc := range docs {
		outcomes[i] = model.DocumentOutcome{
			DocumentID: doc.ID,
			Status:     doc.Status,
			Progress:   doc.Progress,
		}
	}
	data, err := json.Marshal(outcomes)
	if err != nil {
		return nil, err
	}

	exec := &model.PipelineExecution{
		ID:              id.NewULID(),
		KnowledgeBaseID: kbID,
		Status:          model.ExecutionRunning,
		Outcomes:        string(data),
	}
	if err := t.store.Executions().Create(ctx, exec); err != nil {
		return nil, err
	}
	return exec, nil
}

// EnterStage moves the document to the given stage at the band start.
func (t *Tracker) EnterStage(ctx context.Context, execID string, doc *model.Document, stage model.DocumentStatus) error {
	doc.Status = stage
	if band, ok := stageRanges[stage]; ok {
		doc.Progress = band[0]
	}
	if err := t.store.Documents().Update(ctx, doc); err != nil {
		return err
	}
	return t.refresh(ctx, execID, doc)
}

// StageProgress reports fractional progress within the document's current
// stage band. fraction is clamped to [0, 1].
func (t *Tracker) StageProgress(ctx context.Context, execID string, doc *model.Document, fraction float64) error {
	band, ok := stageRanges[doc.Status]
	if !ok {
		return nil
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	doc.Progress = band[0] + int(fraction*float64(band[1]-band[0]))
	if err := t.store.Documents().Update(ctx, doc); err != nil {
		return err
	}
	return t.refresh(ctx, execID, doc)
}

// Complete marks the document finished at full progress.
func (t *Tracker) Complete(ctx context.Context, execID string, doc *model.Document, chunkCount int) error {
	doc.Status = model.DocumentCompleted
	doc.Progress = 100
	doc.ChunkCount = chunkCount
	doc.Error = ""
	if err := t.store.Documents().Update(ctx, doc); err != nil {
		return err
	}
	return t.refresh(ctx, execID, doc)
}

// Fail marks the document failed, freezing its progress where it stopped.
func (t *Tracker) Fail(ctx context.Context, execID string, doc *model.Document, cause error) error {
	doc.Status = model.DocumentFailed
	if cause != nil {
		doc.Error = cause.Error()
	}
	if err := t.store.Documents().Update(ctx, doc); err != nil {
		return err
	}
	return t.refresh(ctx, execID, doc)
}

// FinishExecution sets the execution's terminal status. Calling it on an
// already-terminal execution is a no-op.
func (t *Tracker) FinishExecution(ctx context.Context, execID string, status model.ExecutionStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	exec, err := t.store.Executions().Get(ctx, execID)
	if err != nil {
		return err
	}
	if exec.Status.Terminal() {
		return nil
	}
	exec.Status = status
	return t.store.Executions().Update(ctx, exec)
}

// refresh folds the document's state into the execution outcomes and
// recomputes overall progress as the mean across documents.
func (t *Tracker) refresh(ctx context.Context, execID string, doc *model.Document) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	exec, err := t.store.Executions().Get(ctx, execID)
	if err != nil {
		return err
	}
	if exec.Status.Terminal() {
		return nil
	}

	outcomes, err := ParseOutcomes(exec)
	if err != nil {
		return err
	}

	total := 0
	for i := range outcomes {
		if outcomes[i].DocumentID == doc.ID {
			outcomes[i].Status = doc.Status
			outcomes[i].Progress = doc.Progress
			outcomes[i].ChunkCount = doc.ChunkCount
			outcomes[i].Error = doc.Error
		}
		total += outcomes[i].Progress
	}
	if len(outcomes) > 0 {
		exec.Progress = total / len(outcomes)
	}

	data, err := json.Marshal(outcomes)
	if err != nil {
		return err
	}
	exec.Outcomes = string(data)

	if err := t.store.Executions().Update(ctx, exec); err != nil {
		logger.Warnw("failed to update execution progress", "execution_id", execID, "error", err)
		return err
	}
	return nil
}

// ParseOutcomes decodes the per-document outcomes of an execution.
func ParseOutcomes(exec *model.PipelineExecution) ([]model.DocumentOutcome, error) {
	if exec.Outcomes == "" {
		return nil, nil
	}
	var outcomes []model.DocumentOutcome
	if err := json.Unmarshal([]byte(exec.Outcomes), &outcomes); err != nil {
		return nil, err
	}
	return outcomes, nil
}
