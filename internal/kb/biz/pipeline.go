package biz

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-kb/internal/kb/store"
	"github.com/kart-io/sentinel-kb/internal/model"
	"github.com/kart-io/sentinel-kb/pkg/errors"
	"github.com/kart-io/sentinel-kb/pkg/id"
	"github.com/kart-io/sentinel-kb/pkg/infra/pool"
	"github.com/kart-io/sentinel-kb/pkg/resilience"
)

// Ready policies decide when a knowledge base flips to ready.
const (
	// ReadyPolicyAny marks the knowledge base ready as soon as one document
	// completes. The default: a partially ingested knowledge base is usable.
	ReadyPolicyAny = "any"
	// ReadyPolicyAll requires every document to complete.
	ReadyPolicyAll = "all"
)

// PipelineConfig tunes the ingestion pipeline.
type PipelineConfig struct {
	// MaxRetries is the attempt budget per stage for transient errors,
	// counting the first attempt. Values below 1 still run the stage once.
	MaxRetries int
	// RetryBackoff is the initial backoff, doubled per attempt.
	RetryBackoff time.Duration
	// ReadyPolicy is ReadyPolicyAny or ReadyPolicyAll.
	ReadyPolicy string
}

// DefaultPipelineConfig returns the default pipeline tuning.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		MaxRetries:   3,
		RetryBackoff: 500 * time.Millisecond,
		ReadyPolicy:  ReadyPolicyAny,
	}
}

// stageOrder is the total order of pipeline stages within one document.
var stageOrder = []model.DocumentStatus{
	model.DocumentScraping,
	model.DocumentParsing,
	model.DocumentChunking,
	model.DocumentEmbedding,
	model.DocumentIndexing,
}

func stageIndex(s model.DocumentStatus) int {
	for i, stage := range stageOrder {
		if stage == s {
			return i
		}
	}
	return -1
}

// Pipeline drives documents through scraping, parsing, chunking, embedding,
// and indexing. Documents of one execution run concurrently on the worker
// pool; stages within a document are strictly sequential. Each stage
// re-derives its inputs from persisted state, so a restart resumes a
// document at its recorded stage without replaying earlier ones.
type Pipeline struct {
	store     store.Factory
	vector    VectorIndex
	embedder  Embedder
	extractor ContentExtractor
	chunker   *Chunker
	parser    *Parser
	tracker   *Tracker
	pool      *pool.Pool
	cfg       *PipelineConfig

	mu      sync.Mutex
	cancels map[string]context.CancelFunc // execution id -> cancel
}

// NewPipeline creates a Pipeline.
func NewPipeline(st store.Factory, vector VectorIndex, embedder Embedder, extractor ContentExtractor,
	tracker *Tracker, workerPool *pool.Pool, cfg *PipelineConfig) *Pipeline {
	if cfg == nil {
		cfg = DefaultPipelineConfig()
	}
	return &Pipeline{
		store:     st,
		vector:    vector,
		embedder:  embedder,
		extractor: extractor,
		chunker:   NewChunker(),
		parser:    NewParser(),
		tracker:   tracker,
		pool:      workerPool,
		cfg:       cfg,
		cancels:   make(map[string]context.CancelFunc),
	}
}

// Run schedules the documents of an execution onto the worker pool and
// returns immediately. Callers must have committed the knowledge base and
// document rows before calling; the pipeline only reads committed state.
func (p *Pipeline) Run(kb *model.KnowledgeBase, exec *model.PipelineExecution, docs []*model.Document) {
	runCtx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	p.cancels[exec.ID] = cancel
	p.mu.Unlock()

	cfg, err := model.ParseKBConfig([]byte(kb.Config))
	if err != nil {
		// Config was validated at finalize time; a parse failure here means
		// the stored row is corrupt. Fail everything.
		logger.Errorw("stored kb config unreadable", "kb_id", kb.ID, "error", err)
		for _, doc := range docs {
			_ = p.tracker.Fail(runCtx, exec.ID, doc, err)
		}
		p.finish(exec.ID, kb.ID, false)
		cancel()
		return
	}

	var wg sync.WaitGroup
	for _, doc := range docs {
		doc := doc
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			p.processDocument(runCtx, exec.ID, kb.ID, cfg, doc)
		})
		if submitErr != nil {
			wg.Done()
			_ = p.tracker.Fail(runCtx, exec.ID, doc, submitErr)
		}
	}

	go func() {
		wg.Wait()
		cancelled := runCtx.Err() != nil
		p.finish(exec.ID, kb.ID, cancelled)

		p.mu.Lock()
		delete(p.cancels, exec.ID)
		p.mu.Unlock()
		cancel()
	}()
}

// Cancel requests cancellation of a running execution. Documents finish
// their current stage and stop at the next stage boundary.
func (p *Pipeline) Cancel(execID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	cancel, ok := p.cancels[execID]
	if ok {
		cancel()
	}
	return ok
}

// ResumeRunning restarts executions left in running state by a previous
// process. Completed stages are skipped; each document picks up at the stage
// its status records.
func (p *Pipeline) ResumeRunning(ctx context.Context) error {
	docs, err := p.store.Documents().ListByStatus(ctx, model.DocumentPending)
	if err != nil {
		return err
	}
	inFlight := map[string][]*model.Document{}
	for _, stage := range stageOrder {
		staged, err := p.store.Documents().ListByStatus(ctx, stage)
		if err != nil {
			return err
		}
		docs = append(docs, staged...)
	}
	for _, doc := range docs {
		inFlight[doc.KnowledgeBaseID] = append(inFlight[doc.KnowledgeBaseID], doc)
	}

	for kbID, kbDocs := range inFlight {
		kb, err := p.store.KnowledgeBases().Get(ctx, kbID)
		if err != nil {
			logger.Warnw("skipping resume for missing knowledge base", "kb_id", kbID, "error", err)
			continue
		}

		exec, err := p.runningExecution(ctx, kbID)
		if err != nil {
			return err
		}
		if exec == nil {
			exec, err = p.tracker.StartExecution(ctx, kbID, kbDocs)
			if err != nil {
				return err
			}
		}

		logger.Infow("resuming pipeline execution", "execution_id", exec.ID, "kb_id", kbID, "documents", len(kbDocs))
		p.Run(kb, exec, kbDocs)
	}
	return nil
}

func (p *Pipeline) runningExecution(ctx context.Context, kbID string) (*model.PipelineExecution, error) {
	execs, err := p.store.Executions().ListByKnowledgeBase(ctx, kbID)
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

// processDocument walks one document through its remaining stages.
func (p *Pipeline) processDocument(ctx context.Context, execID, kbID string, cfg model.KBConfig, doc *model.Document) {
	if doc.Status.Terminal() || doc.Status == model.DocumentPendingDeletion {
		return
	}

	start := 0
	if idx := stageIndex(doc.Status); idx >= 0 {
		start = idx
	}

	for i := start; i < len(stageOrder); i++ {
		if ctx.Err() != nil {
			_ = p.tracker.Fail(ctx, execID, doc, errors.ErrPipelineCancelled)
			return
		}

		stage := stageOrder[i]
		if err := p.tracker.EnterStage(ctx, execID, doc, stage); err != nil {
			logger.Errorw("failed to persist stage transition", "document_id", doc.ID, "stage", stage, "error", err)
		}

		err := p.withRetry(ctx, doc.ID, string(stage), func() error {
			return p.runStage(ctx, execID, kbID, cfg, doc, stage)
		})
		if err != nil {
			logger.Warnw("document failed", "document_id", doc.ID, "stage", stage, "error", err)
			_ = p.tracker.Fail(ctx, execID, doc, err)
			return
		}
	}

	chunkCount, err := p.store.Chunks().CountByDocument(ctx, doc.ID)
	if err != nil {
		chunkCount = int64(doc.ChunkCount)
	}
	_ = p.tracker.Complete(ctx, execID, doc, int(chunkCount))
	logger.Infow("document completed", "document_id", doc.ID, "chunks", chunkCount)
}

func (p *Pipeline) runStage(ctx context.Context, execID, kbID string, cfg model.KBConfig, doc *model.Document, stage model.DocumentStatus) error {
	switch stage {
	case model.DocumentScraping:
		return p.stageScrape(ctx, execID, doc)
	case model.DocumentParsing:
		return p.stageParse(ctx, doc)
	case model.DocumentChunking:
		return p.stageChunk(ctx, kbID, cfg, doc)
	case model.DocumentEmbedding:
		return p.stageEmbed(ctx, execID, cfg, doc)
	case model.DocumentIndexing:
		return p.stageIndex(ctx, kbID, cfg, doc)
	}
	return nil
}

// withRetry runs a stage through the shared retry helper. Only transient
// errors consume the attempt budget; terminal errors and exhausted budgets
// propagate to the caller, which fails the document without touching its
// siblings. The stage always runs at least once, whatever the budget.
func (p *Pipeline) withRetry(ctx context.Context, docID, stage string, fn func() error) error {
	err := resilience.Retry(ctx, &resilience.RetryConfig{
		MaxAttempts:  p.cfg.MaxRetries,
		InitialDelay: p.cfg.RetryBackoff,
		Multiplier:   2,
		Retryable: func(err error) bool {
			if !errors.IsTransient(err) {
				return false
			}
			logger.Warnw("transient stage failure",
				"document_id", docID, "stage", stage, "error", err)
			return true
		},
	}, fn)
	if err != nil && ctx.Err() != nil {
		return errors.ErrPipelineCancelled.WithCause(ctx.Err())
	}
	return err
}

// stageScrape fetches website content page by page. Individual page
// failures are recorded on the document; the document only fails when no
// page yields content. Non-website documents already carry their content and
// just get fingerprinted.
func (p *Pipeline) stageScrape(ctx context.Context, execID string, doc *model.Document) error {
	if doc.SourceType != model.SourceWebsite {
		if doc.Fingerprint == "" {
			doc.Fingerprint = Fingerprint(doc.Content)
		}
		return p.store.Documents().Update(ctx, doc)
	}

	pages, err := p.extractor.ExtractSite(ctx, doc.SourceLocator)
	if err != nil {
		return err
	}

	var content []byte
	var failed []ExtractedPage
	for _, page := range pages {
		if page.Error != "" {
			failed = append(failed, ExtractedPage{URL: page.URL, Error: page.Error})
			continue
		}
		if len(content) > 0 {
			content = append(content, "\n\n"...)
		}
		content = append(content, page.Content...)
	}

	if len(failed) > 0 {
		data, merr := json.Marshal(failed)
		if merr == nil {
			doc.PageErrors = string(data)
		}
		logger.Warnw("partial scrape", "document_id", doc.ID, "failed_pages", len(failed), "total_pages", len(pages))
	}

	if len(content) == 0 {
		return errors.ErrContentUnparsable.WithMessagef("no page of %s could be scraped", doc.SourceLocator)
	}

	doc.Content = string(content)
	doc.Fingerprint = Fingerprint(doc.Content)
	if err := p.store.Documents().Update(ctx, doc); err != nil {
		return err
	}
	return p.tracker.StageProgress(ctx, execID, doc, 1)
}

// stageParse validates that the content has parseable structure. The chunking
// stage re-derives structure itself, so nothing is persisted here.
func (p *Pipeline) stageParse(_ context.Context, doc *model.Document) error {
	_, err := p.parser.Parse(doc.Content)
	return err
}

// stageChunk splits the document and replaces its chunk rows atomically.
// Re-running the stage is safe: old rows are dropped in the same transaction.
func (p *Pipeline) stageChunk(ctx context.Context, kbID string, cfg model.KBConfig, doc *model.Document) error {
	chunks := p.chunker.Chunk(doc.Content, cfg.Chunking)
	if len(chunks) == 0 {
		return errors.ErrContentUnparsable.WithMessage("chunking produced no chunks")
	}

	rows := make([]*model.Chunk, len(chunks))
	for i, c := range chunks {
		rows[i] = &model.Chunk{
			ID:              id.NewULID(),
			DocumentID:      doc.ID,
			KnowledgeBaseID: kbID,
			Content:         c.Content,
			Position:        c.Position,
			Section:         c.Section,
		}
	}

	if err := p.store.Tx(ctx, func(tx store.Factory) error {
		if err := tx.Chunks().DeleteByDocument(ctx, doc.ID); err != nil {
			return err
		}
		return tx.Chunks().CreateBatch(ctx, rows)
	}); err != nil {
		return errors.ErrDatabase.WithCause(err)
	}

	doc.ChunkCount = len(rows)
	return p.store.Documents().Update(ctx, doc)
}

// stageEmbed generates vectors in bounded batches and writes them onto the
// chunk rows. A chunk row carries its vector before the indexing stage may
// touch it, so indexing never sees a half-embedded document.
func (p *Pipeline) stageEmbed(ctx context.Context, execID string, cfg model.KBConfig, doc *model.Document) error {
	chunks, err := p.store.Chunks().ListByDocument(ctx, doc.ID)
	if err != nil {
		return errors.ErrDatabase.WithCause(err)
	}
	if len(chunks) == 0 {
		return errors.ErrContentUnparsable.WithMessage("document has no chunks to embed")
	}

	batchSize := cfg.Embedding.BatchSize
	for offset := 0; offset < len(chunks); offset += batchSize {
		end := offset + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[offset:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		vectors, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			return err
		}
		if len(vectors) != len(batch) {
			return errors.ErrCollaboratorUnavailable.WithMessagef(
				"embedder returned %d vectors for %d texts", len(vectors), len(batch))
		}

		for i, c := range batch {
			if len(vectors[i]) != cfg.Embedding.Dimension {
				return errors.ErrCollaboratorUnavailable.WithMessagef(
					"embedding dimension %d does not match configured %d", len(vectors[i]), cfg.Embedding.Dimension)
			}
			c.Embedding = model.EncodeVector(vectors[i])
		}
		if err := p.store.Chunks().UpdateBatch(ctx, batch); err != nil {
			return errors.ErrDatabase.WithCause(err)
		}

		_ = p.tracker.StageProgress(ctx, execID, doc, float64(end)/float64(len(chunks)))
	}
	return nil
}

// stageIndex replaces the document's vectors in the knowledge base
// collection. The document only completes after this succeeds.
func (p *Pipeline) stageIndex(ctx context.Context, kbID string, cfg model.KBConfig, doc *model.Document) error {
	if err := p.vector.EnsureCollection(ctx, kbID, cfg.Embedding.Dimension, cfg.VectorStore.Metric); err != nil {
		return err
	}

	chunks, err := p.store.Chunks().ListByDocument(ctx, doc.ID)
	if err != nil {
		return errors.ErrDatabase.WithCause(err)
	}

	ids := make([]string, len(chunks))
	vectors := make([][]float32, len(chunks))
	for i, c := range chunks {
		if !c.HasEmbedding() {
			return errors.ErrInternal.WithMessagef("chunk %s reached indexing without an embedding", c.ID)
		}
		vec, derr := model.DecodeVector(c.Embedding)
		if derr != nil {
			return errors.ErrInternal.WithCause(derr)
		}
		ids[i] = c.ID
		vectors[i] = vec
	}

	// Chunking mints fresh chunk ids on every pass, so an upsert alone would
	// strand the previous generation of vectors after a reprocess. Clear the
	// document's vectors first; on a first ingest this is a no-op.
	if err := p.vector.DeleteByDocument(ctx, kbID, doc.ID); err != nil {
		return err
	}
	return p.vector.Upsert(ctx, kbID, ids, vectors, doc.ID)
}

// finish settles the execution and knowledge base once every scheduled
// document reached a terminal state.
func (p *Pipeline) finish(execID, kbID string, cancelled bool) {
	ctx := context.Background()

	exec, err := p.store.Executions().Get(ctx, execID)
	if err != nil {
		logger.Errorw("cannot settle execution", "execution_id", execID, "error", err)
		return
	}
	outcomes, err := ParseOutcomes(exec)
	if err != nil {
		logger.Errorw("cannot parse execution outcomes", "execution_id", execID, "error", err)
		return
	}

	completed := 0
	for _, o := range outcomes {
		if o.Status == model.DocumentCompleted {
			completed++
		}
	}

	status := model.ExecutionCompleted
	switch {
	case cancelled:
		status = model.ExecutionCancelled
	case completed == 0:
		status = model.ExecutionFailed
	}
	if err := p.tracker.FinishExecution(ctx, execID, status); err != nil {
		logger.Errorw("cannot finish execution", "execution_id", execID, "error", err)
	}

	p.settleKnowledgeBase(ctx, kbID)
}

// settleKnowledgeBase recomputes the aggregate status from every document of
// the knowledge base, honoring the configured ready policy.
func (p *Pipeline) settleKnowledgeBase(ctx context.Context, kbID string) {
	kb, err := p.store.KnowledgeBases().Get(ctx, kbID)
	if err != nil {
		logger.Errorw("cannot settle knowledge base", "kb_id", kbID, "error", err)
		return
	}

	docs, err := p.store.Documents().ListByKnowledgeBase(ctx, kbID)
	if err != nil {
		logger.Errorw("cannot list documents for settlement", "kb_id", kbID, "error", err)
		return
	}

	completed, failed := 0, 0
	for _, doc := range docs {
		switch doc.Status {
		case model.DocumentCompleted:
			completed++
		case model.DocumentFailed:
			failed++
		default:
			// Another execution is still working; leave the status alone.
			return
		}
	}

	ready := completed > 0
	if p.cfg.ReadyPolicy == ReadyPolicyAll {
		ready = completed == len(docs) && len(docs) > 0
	}

	if ready {
		kb.Status = model.KnowledgeBaseReady
		kb.Error = ""
		if kb.ProcessedAt == nil {
			now := time.Now()
			kb.ProcessedAt = &now
		}
	} else {
		kb.Status = model.KnowledgeBaseFailed
		kb.Error = "no document completed ingestion"
		if p.cfg.ReadyPolicy == ReadyPolicyAll && completed > 0 {
			kb.Error = "not all documents completed ingestion"
		}
	}

	if err := p.store.KnowledgeBases().Update(ctx, kb); err != nil {
		logger.Errorw("cannot update knowledge base status", "kb_id", kbID, "error", err)
	}
}

// Fingerprint returns the md5 fingerprint of document content, used to
// detect no-op updates.
func Fingerprint(content string) string {
	hash := md5.Sum([]byte(content))
	return hex.EncodeToString(hash[:])
}
