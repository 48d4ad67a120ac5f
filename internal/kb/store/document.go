package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/kart-io/sentinel-kb/internal/model"
	kberrors "github.com/kart-io/sentinel-kb/pkg/errors"
)

type documents struct {
	db *gorm.DB
}

func newDocuments(db *gorm.DB) *documents {
	return &documents{db}
}

// Create creates a new document.
func (s *documents) Create(ctx context.Context, doc *model.Document) error {
	return s.db.WithContext(ctx).Create(doc).Error
}

// CreateBatch creates documents in a single insert.
func (s *documents) CreateBatch(ctx context.Context, docs []*model.Document) error {
	if len(docs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(docs).Error
}

// Update updates an existing document.
func (s *documents) Update(ctx context.Context, doc *model.Document) error {
	return s.db.WithContext(ctx).Save(doc).Error
}

// Delete deletes a document by id.
func (s *documents) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Document{}).Error
}

// Get retrieves a document by id.
func (s *documents) Get(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, kberrors.ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// ListByKnowledgeBase lists all documents in a knowledge base.
func (s *documents) ListByKnowledgeBase(ctx context.Context, kbID string) ([]*model.Document, error) {
	var docs []*model.Document
	if err := s.db.WithContext(ctx).
		Where("knowledge_base_id = ?", kbID).
		Order("created_at ASC").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// ListByStatus lists documents in the given status across all knowledge bases.
// The deletion sweeper uses this to find pending_deletion rows.
func (s *documents) ListByStatus(ctx context.Context, status model.DocumentStatus) ([]*model.Document, error) {
	var docs []*model.Document
	if err := s.db.WithContext(ctx).
		Where("status = ?", status).
		Order("updated_at ASC").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}
