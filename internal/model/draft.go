package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// SourceType identifies where a source's content comes from.
type SourceType string

const (
	SourceFile    SourceType = "file"
	SourceWebsite SourceType = "website"
	SourceText    SourceType = "text"
)

// SourceStatus tracks the fetch state of a staged source.
type SourceStatus string

const (
	SourcePending  SourceStatus = "pending"
	SourceFetching SourceStatus = "fetching"
	SourceReady    SourceStatus = "ready"
	SourceError    SourceStatus = "error"
)

// ChunkStrategy enumerates the recognized chunking strategies.
type ChunkStrategy string

const (
	ChunkFixed    ChunkStrategy = "fixed"
	ChunkHeading  ChunkStrategy = "heading"
	ChunkSemantic ChunkStrategy = "semantic"
)

// ConfigVersion is the current KBConfig schema version. Unknown versions and
// unknown fields are rejected rather than passed through.
const ConfigVersion = 1

// Chunking bounds. Values outside these ranges fail validation.
const (
	MinChunkSize = 100
	MaxChunkSize = 8192
	MaxOverlap   = 4096
)

// ChunkingConfig configures the chunking stage.
type ChunkingConfig struct {
	Strategy     ChunkStrategy `json:"strategy"`
	ChunkSize    int           `json:"chunk_size"`
	ChunkOverlap int           `json:"chunk_overlap"`
}

// EmbeddingConfig configures the embedding stage.
type EmbeddingConfig struct {
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
	BatchSize int    `json:"batch_size"`
}

// VectorStoreConfig configures the per-knowledge-base vector collection.
type VectorStoreConfig struct {
	Metric   string `json:"metric"`
	ShardNum int    `json:"shard_num"`
}

// KBConfig is the closed, versioned configuration a draft carries into a
// knowledge base.
type KBConfig struct {
	Version     int               `json:"version"`
	Chunking    ChunkingConfig    `json:"chunking"`
	Embedding   EmbeddingConfig   `json:"embedding"`
	VectorStore VectorStoreConfig `json:"vector_store"`
}

// DefaultKBConfig returns a KBConfig with service defaults applied.
func DefaultKBConfig() KBConfig {
	return KBConfig{
		Version: ConfigVersion,
		Chunking: ChunkingConfig{
			Strategy:     ChunkFixed,
			ChunkSize:    1000,
			ChunkOverlap: 200,
		},
		Embedding: EmbeddingConfig{
			Model:     "nomic-embed-text",
			Dimension: 768,
			BatchSize: 32,
		},
		VectorStore: VectorStoreConfig{
			Metric:   "L2",
			ShardNum: 1,
		},
	}
}

// Validate checks the configuration against the closed schema and numeric bounds.
func (c *KBConfig) Validate() error {
	if c.Version != ConfigVersion {
		return fmt.Errorf("unsupported config version %d", c.Version)
	}
	switch c.Chunking.Strategy {
	case ChunkFixed, ChunkHeading, ChunkSemantic:
	default:
		return fmt.Errorf("unknown chunking strategy %q", c.Chunking.Strategy)
	}
	if c.Chunking.ChunkSize < MinChunkSize || c.Chunking.ChunkSize > MaxChunkSize {
		return fmt.Errorf("chunk_size %d out of range [%d, %d]", c.Chunking.ChunkSize, MinChunkSize, MaxChunkSize)
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap > MaxOverlap {
		return fmt.Errorf("chunk_overlap %d out of range [0, %d]", c.Chunking.ChunkOverlap, MaxOverlap)
	}
	if c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunk_overlap %d must be smaller than chunk_size %d", c.Chunking.ChunkOverlap, c.Chunking.ChunkSize)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding model is required")
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding batch_size must be positive")
	}
	return nil
}

// ParseKBConfig decodes a KBConfig from JSON, rejecting unknown fields.
func ParseKBConfig(data []byte) (KBConfig, error) {
	var cfg KBConfig
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return KBConfig{}, fmt.Errorf("invalid kb config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return KBConfig{}, err
	}
	return cfg, nil
}

// Source is a single content source staged inside a draft.
type Source struct {
	ID         string       `json:"id"`
	Type       SourceType   `json:"type"`
	Locator    string       `json:"locator,omitempty"` // URL for websites, name for files
	Content    string       `json:"content,omitempty"` // Raw or fetched content
	Status     SourceStatus `json:"status"`
	Error      string       `json:"error,omitempty"`
	CharCount  int          `json:"char_count"`
	FetchedAt  *time.Time   `json:"fetched_at,omitempty"`
	AddedAt    time.Time    `json:"added_at"`
	ContentRef string       `json:"content_ref,omitempty"` // Pending fetch handle for async sources
}

// Ready reports whether the source is in a terminal successful fetch state.
func (s *Source) Ready() bool {
	return s.Status == SourceReady
}

// Draft is the transient, staging-store-only definition of a knowledge base
// under construction. It never touches the relational store.
type Draft struct {
	ID        string    `json:"id"`
	Tenant    string    `json:"tenant"`
	Name      string    `json:"name"`
	Config    KBConfig  `json:"config"`
	Sources   []Source  `json:"sources"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ReadySources returns the sources in a terminal successful fetch state,
// preserving order.
func (d *Draft) ReadySources() []Source {
	var ready []Source
	for _, s := range d.Sources {
		if s.Ready() {
			ready = append(ready, s)
		}
	}
	return ready
}

// FindSource returns the source with the given id, or nil.
func (d *Draft) FindSource(id string) *Source {
	for i := range d.Sources {
		if d.Sources[i].ID == id {
			return &d.Sources[i]
		}
	}
	return nil
}
