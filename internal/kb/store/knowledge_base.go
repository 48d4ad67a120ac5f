package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/kart-io/sentinel-kb/internal/model"
	kberrors "github.com/kart-io/sentinel-kb/pkg/errors"
)

type knowledgeBases struct {
	db *gorm.DB
}

func newKnowledgeBases(db *gorm.DB) *knowledgeBases {
	return &knowledgeBases{db}
}

// Create creates a new knowledge base.
func (s *knowledgeBases) Create(ctx context.Context, kb *model.KnowledgeBase) error {
	return s.db.WithContext(ctx).Create(kb).Error
}

// Update updates an existing knowledge base.
func (s *knowledgeBases) Update(ctx context.Context, kb *model.KnowledgeBase) error {
	return s.db.WithContext(ctx).Save(kb).Error
}

// Delete deletes a knowledge base by id.
func (s *knowledgeBases) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.KnowledgeBase{}).Error
}

// Get retrieves a knowledge base by id.
func (s *knowledgeBases) Get(ctx context.Context, id string) (*model.KnowledgeBase, error) {
	var kb model.KnowledgeBase
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&kb).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, kberrors.ErrKnowledgeBaseNotFound
		}
		return nil, err
	}
	return &kb, nil
}

// List lists knowledge bases for a tenant with pagination.
func (s *knowledgeBases) List(ctx context.Context, tenant string, offset, limit int) (int64, []*model.KnowledgeBase, error) {
	var count int64
	var kbs []*model.KnowledgeBase

	query := s.db.WithContext(ctx).Model(&model.KnowledgeBase{}).Where("tenant = ?", tenant)
	if err := query.Count(&count).Error; err != nil {
		return 0, nil, err
	}

	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&kbs).Error; err != nil {
		return 0, nil, err
	}

	return count, kbs, nil
}
