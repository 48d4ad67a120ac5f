// Package model provides data models for the Sentinel-KB service.
package model

import (
	"time"
)

// KnowledgeBaseStatus is the aggregate status of a knowledge base.
type KnowledgeBaseStatus string

const (
	KnowledgeBaseProcessing KnowledgeBaseStatus = "processing"
	KnowledgeBaseReady      KnowledgeBaseStatus = "ready"
	KnowledgeBaseFailed     KnowledgeBaseStatus = "failed"
)

// DocumentStatus tracks a document through the ingestion pipeline.
// Stage order is total within one document: pending → scraping → parsing →
// chunking → embedding → indexing → completed, with a side-exit to failed
// from any stage and pending_deletion for the deletion retry path.
type DocumentStatus string

const (
	DocumentPending         DocumentStatus = "pending"
	DocumentScraping        DocumentStatus = "scraping"
	DocumentParsing         DocumentStatus = "parsing"
	DocumentChunking        DocumentStatus = "chunking"
	DocumentEmbedding       DocumentStatus = "embedding"
	DocumentIndexing        DocumentStatus = "indexing"
	DocumentCompleted       DocumentStatus = "completed"
	DocumentFailed          DocumentStatus = "failed"
	DocumentPendingDeletion DocumentStatus = "pending_deletion"
)

// Terminal reports whether the status is a terminal pipeline state.
func (s DocumentStatus) Terminal() bool {
	return s == DocumentCompleted || s == DocumentFailed
}

// KnowledgeBase represents a durable knowledge base created by finalizing a draft.
type KnowledgeBase struct {
	ID          string              `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Tenant      string              `json:"tenant" gorm:"type:varchar(64);index;not null"`
	Name        string              `json:"name" gorm:"type:varchar(255);not null"`
	Config      string              `json:"-" gorm:"type:text;not null"` // Serialized KBConfig
	Status      KnowledgeBaseStatus `json:"status" gorm:"type:varchar(32);default:'processing'"`
	Error       string              `json:"error,omitempty" gorm:"type:text"`
	CreatedAt   time.Time           `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time           `json:"updated_at" gorm:"autoUpdateTime"`
	ProcessedAt *time.Time          `json:"processed_at,omitempty"` // Set only on transition to ready
}

// TableName specifies the table name for KnowledgeBase.
func (KnowledgeBase) TableName() string {
	return "kb_knowledge_bases"
}

// Document represents a single ingested source within a knowledge base.
type Document struct {
	ID              string         `json:"id" gorm:"primaryKey;type:varchar(64)"`
	KnowledgeBaseID string         `json:"knowledge_base_id" gorm:"type:varchar(64);index;not null"`
	SourceType      SourceType     `json:"source_type" gorm:"type:varchar(32);not null"`
	SourceLocator   string         `json:"source_locator" gorm:"type:varchar(512)"` // URL or file name
	Content         string         `json:"-" gorm:"type:longtext"`
	Fingerprint     string         `json:"fingerprint" gorm:"type:varchar(64);index"` // Content hash, detects no-op updates
	Status          DocumentStatus `json:"status" gorm:"type:varchar(32);default:'pending'"`
	Progress        int            `json:"progress" gorm:"default:0"`
	ChunkCount      int            `json:"chunk_count" gorm:"default:0"`
	Error           string         `json:"error,omitempty" gorm:"type:text"`
	PageErrors      string         `json:"page_errors,omitempty" gorm:"type:text"` // JSON list of per-page scrape failures
	CreatedAt       time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for Document.
func (Document) TableName() string {
	return "kb_documents"
}

// Chunk represents a text chunk belonging to a document.
// KnowledgeBaseID is denormalized for isolation-scoped queries without a join.
type Chunk struct {
	ID              string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	DocumentID      string    `json:"document_id" gorm:"type:varchar(64);index;not null"`
	KnowledgeBaseID string    `json:"knowledge_base_id" gorm:"type:varchar(64);index;not null"`
	Content         string    `json:"content" gorm:"type:text;not null"`
	Position        int       `json:"position" gorm:"default:0"`
	Embedding       []byte    `json:"-" gorm:"type:blob"` // Serialized vector, empty until the embedding stage
	Section         string    `json:"section,omitempty" gorm:"type:varchar(255)"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for Chunk.
func (Chunk) TableName() string {
	return "kb_chunks"
}

// HasEmbedding reports whether the chunk has been through the embedding stage.
func (c *Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// ExecutionStatus is the overall status of a pipeline execution.
type ExecutionStatus string

const (
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether the execution reached a final state.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionCompleted || s == ExecutionFailed || s == ExecutionCancelled
}

// PipelineExecution is the pollable record of one finalize- or
// reprocess-triggered pipeline run. It is never mutated after reaching a
// terminal status.
type PipelineExecution struct {
	ID              string          `json:"id" gorm:"primaryKey;type:varchar(64)"`
	KnowledgeBaseID string          `json:"knowledge_base_id" gorm:"type:varchar(64);index;not null"`
	Status          ExecutionStatus `json:"status" gorm:"type:varchar(32);default:'running'"`
	Progress        int             `json:"progress" gorm:"default:0"`
	Outcomes        string          `json:"-" gorm:"type:text"` // JSON per-document outcome list
	StartedAt       time.Time       `json:"started_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for PipelineExecution.
func (PipelineExecution) TableName() string {
	return "kb_pipeline_executions"
}

// DocumentOutcome captures the per-document result inside a PipelineExecution.
type DocumentOutcome struct {
	DocumentID string         `json:"document_id"`
	Status     DocumentStatus `json:"status"`
	Progress   int            `json:"progress"`
	ChunkCount int            `json:"chunk_count,omitempty"`
	Error      string         `json:"error,omitempty"`
}
