package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/kart-io/sentinel-kb/internal/model"
)

// datastore implements the Factory interface.
type datastore struct {
	db *gorm.DB
}

// New creates a Factory on top of an established gorm connection.
func New(db *gorm.DB) Factory {
	return &datastore{db: db}
}

// KnowledgeBases returns the knowledge base store.
func (ds *datastore) KnowledgeBases() KnowledgeBaseStore {
	return newKnowledgeBases(ds.db)
}

// Documents returns the document store.
func (ds *datastore) Documents() DocumentStore {
	return newDocuments(ds.db)
}

// Chunks returns the chunk store.
func (ds *datastore) Chunks() ChunkStore {
	return newChunks(ds.db)
}

// Executions returns the pipeline execution store.
func (ds *datastore) Executions() ExecutionStore {
	return newExecutions(ds.db)
}

// Tx runs fn in a transaction-bound Factory.
func (ds *datastore) Tx(ctx context.Context, fn func(Factory) error) error {
	return ds.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&datastore{db: tx})
	})
}

// AutoMigrate migrates the database schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.KnowledgeBase{},
		&model.Document{},
		&model.Chunk{},
		&model.PipelineExecution{},
	)
}

// Close closes the factory and underlying connections.
func (ds *datastore) Close() error {
	return nil
}
