package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/kart-io/sentinel-kb/internal/model"
	kberrors "github.com/kart-io/sentinel-kb/pkg/errors"
)

type executions struct {
	db *gorm.DB
}

func newExecutions(db *gorm.DB) *executions {
	return &executions{db}
}

// Create creates a new pipeline execution.
func (s *executions) Create(ctx context.Context, exec *model.PipelineExecution) error {
	return s.db.WithContext(ctx).Create(exec).Error
}

// Update updates an existing pipeline execution.
func (s *executions) Update(ctx context.Context, exec *model.PipelineExecution) error {
	return s.db.WithContext(ctx).Save(exec).Error
}

// Get retrieves a pipeline execution by id.
func (s *executions) Get(ctx context.Context, id string) (*model.PipelineExecution, error) {
	var exec model.PipelineExecution
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&exec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, kberrors.ErrExecutionNotFound
		}
		return nil, err
	}
	return &exec, nil
}

// ListByKnowledgeBase lists executions of a knowledge base, newest first.
func (s *executions) ListByKnowledgeBase(ctx context.Context, kbID string) ([]*model.PipelineExecution, error) {
	var execs []*model.PipelineExecution
	if err := s.db.WithContext(ctx).
		Where("knowledge_base_id = ?", kbID).
		Order("started_at DESC").
		Find(&execs).Error; err != nil {
		return nil, err
	}
	return execs, nil
}
