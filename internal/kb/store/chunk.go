package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/kart-io/sentinel-kb/internal/model"
)

type chunks struct {
	db *gorm.DB
}

func newChunks(db *gorm.DB) *chunks {
	return &chunks{db}
}

// CreateBatch creates chunks in a single insert.
func (s *chunks) CreateBatch(ctx context.Context, batch []*model.Chunk) error {
	if len(batch) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(batch).Error
}

// UpdateBatch saves chunks one by one inside a transaction. Used by the
// embedding stage to attach vectors to existing rows.
func (s *chunks) UpdateBatch(ctx context.Context, batch []*model.Chunk) error {
	if len(batch) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range batch {
			if err := tx.Save(c).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ListByDocument lists chunks of a document in position order.
func (s *chunks) ListByDocument(ctx context.Context, documentID string) ([]*model.Chunk, error) {
	var result []*model.Chunk
	if err := s.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("position ASC").
		Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// CountByDocument counts chunks belonging to a document.
func (s *chunks) CountByDocument(ctx context.Context, documentID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.Chunk{}).
		Where("document_id = ?", documentID).
		Count(&count).Error
	return count, err
}

// DeleteByDocument removes all chunks of a document.
func (s *chunks) DeleteByDocument(ctx context.Context, documentID string) error {
	return s.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&model.Chunk{}).Error
}

// DeleteByKnowledgeBase removes all chunks of a knowledge base.
func (s *chunks) DeleteByKnowledgeBase(ctx context.Context, kbID string) error {
	return s.db.WithContext(ctx).Where("knowledge_base_id = ?", kbID).Delete(&model.Chunk{}).Error
}
