package biz

import (
	"context"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-kb/internal/kb/store"
	"github.com/kart-io/sentinel-kb/internal/model"
)

// DefaultSweepInterval is how often parked deletions are retried.
const DefaultSweepInterval = 1 * time.Minute

// Sweeper retries vector deletions for documents parked in pending_deletion.
// It runs until its context is cancelled.
type Sweeper struct {
	store    store.Factory
	vector   VectorIndex
	interval time.Duration
}

// NewSweeper creates a Sweeper. A non-positive interval falls back to
// DefaultSweepInterval.
func NewSweeper(st store.Factory, vector VectorIndex, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{store: st, vector: vector, interval: interval}
}

// Run blocks, sweeping on every tick, until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep attempts every parked deletion once. Failures stay parked for the
// next tick.
func (s *Sweeper) Sweep(ctx context.Context) {
	docs, err := s.store.Documents().ListByStatus(ctx, model.DocumentPendingDeletion)
	if err != nil {
		logger.Errorw("sweeper cannot list parked documents", "error", err)
		return
	}
	if len(docs) == 0 {
		return
	}

	logger.Infow("sweeping parked deletions", "count", len(docs))
	for _, doc := range docs {
		if ctx.Err() != nil {
			return
		}
		if err := s.vector.DeleteByDocument(ctx, doc.KnowledgeBaseID, doc.ID); err != nil {
			logger.Warnw("vector delete still failing", "document_id", doc.ID, "error", err)
			continue
		}

		if err := s.store.Tx(ctx, func(tx store.Factory) error {
			if err := tx.Chunks().DeleteByDocument(ctx, doc.ID); err != nil {
				return err
			}
			return tx.Documents().Delete(ctx, doc.ID)
		}); err != nil {
			logger.Errorw("sweeper cannot purge document rows", "document_id", doc.ID, "error", err)
			continue
		}
		logger.Infow("parked document deleted", "document_id", doc.ID)
	}
}
