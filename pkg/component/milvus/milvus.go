// Package milvus wraps the Milvus SDK client as the per-knowledge-base
// vector index.
package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	kberrors "github.com/kart-io/sentinel-kb/pkg/errors"
	milvusopts "github.com/kart-io/sentinel-kb/pkg/options/milvus"
)

// Client wraps the Milvus SDK client. Each knowledge base gets its own
// collection named kb_<id>, keyed by chunk id so upserts replace prior
// vectors for the same chunk.
type Client struct {
	client *milvusclient.Client
	opts   *milvusopts.Options
}

// New creates a new Milvus client.
func New(opts *milvusopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("milvus options is nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  opts.Address,
		Username: opts.Username,
		Password: opts.Password,
		DBName:   opts.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	return &Client{
		client: c,
		opts:   opts,
	}, nil
}

// Close closes the Milvus client connection.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// RawClient returns the underlying Milvus client.
func (c *Client) RawClient() *milvusclient.Client {
	return c.client
}

// collectionName builds the collection name for a knowledge base.
func collectionName(kbID string) string {
	return "kb_" + kbID
}

// metricType maps a configured metric name onto the SDK constant.
func metricType(metric string) entity.MetricType {
	switch metric {
	case "IP":
		return entity.IP
	case "COSINE":
		return entity.COSINE
	default:
		return entity.L2
	}
}

// EnsureCollection creates the knowledge base's collection if it does not
// exist yet. Creating, indexing, and loading are idempotent.
func (c *Client) EnsureCollection(ctx context.Context, kbID string, dim int, metric string) error {
	name := collectionName(kbID)

	exists, err := c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(name))
	if err != nil {
		return kberrors.ErrCollaboratorUnavailable.WithCause(err)
	}
	if exists {
		return nil
	}

	schema := entity.NewSchema().
		WithName(name).
		WithDescription("knowledge base chunk vectors")

	schema.WithField(
		entity.NewField().
			WithName("chunk_id").
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(64).
			WithIsPrimaryKey(true),
	)
	schema.WithField(
		entity.NewField().
			WithName("document_id").
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(64),
	)
	schema.WithField(
		entity.NewField().
			WithName("embedding").
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(dim)),
	)

	if err := c.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(name, schema)); err != nil {
		return kberrors.ErrCollaboratorUnavailable.WithCause(fmt.Errorf("create collection: %w", err))
	}

	idx := index.NewIvfFlatIndex(metricType(metric), 128)
	createIdxTask, err := c.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(name, "embedding", idx))
	if err != nil {
		return kberrors.ErrCollaboratorUnavailable.WithCause(fmt.Errorf("create index: %w", err))
	}
	if err := createIdxTask.Await(ctx); err != nil {
		return kberrors.ErrCollaboratorUnavailable.WithCause(fmt.Errorf("await index: %w", err))
	}

	loadTask, err := c.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(name))
	if err != nil {
		return kberrors.ErrCollaboratorUnavailable.WithCause(fmt.Errorf("load collection: %w", err))
	}
	if err := loadTask.Await(ctx); err != nil {
		return kberrors.ErrCollaboratorUnavailable.WithCause(fmt.Errorf("await load: %w", err))
	}

	return nil
}

// Upsert writes chunk vectors, replacing any prior entries with the same
// chunk ids. A flush makes the vectors visible before the document is
// reported complete.
func (c *Client) Upsert(ctx context.Context, kbID string, ids []string, vectors [][]float32, documentID string) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}

	name := collectionName(kbID)
	docIDs := make([]string, len(ids))
	for i := range docIDs {
		docIDs[i] = documentID
	}

	columns := []column.Column{
		column.NewColumnVarChar("chunk_id", ids),
		column.NewColumnVarChar("document_id", docIDs),
		column.NewColumnFloatVector("embedding", len(vectors[0]), vectors),
	}

	if _, err := c.client.Upsert(ctx, milvusclient.NewColumnBasedInsertOption(name, columns...)); err != nil {
		return kberrors.ErrCollaboratorUnavailable.WithCause(fmt.Errorf("upsert vectors: %w", err))
	}

	flushTask, err := c.client.Flush(ctx, milvusclient.NewFlushOption(name))
	if err != nil {
		return kberrors.ErrCollaboratorUnavailable.WithCause(fmt.Errorf("flush collection: %w", err))
	}
	if err := flushTask.Await(ctx); err != nil {
		return kberrors.ErrCollaboratorUnavailable.WithCause(fmt.Errorf("await flush: %w", err))
	}

	return nil
}

// DeleteByDocument removes every vector belonging to the document.
// A missing collection counts as already deleted.
func (c *Client) DeleteByDocument(ctx context.Context, kbID, documentID string) error {
	name := collectionName(kbID)

	exists, err := c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(name))
	if err != nil {
		return kberrors.ErrCollaboratorUnavailable.WithCause(err)
	}
	if !exists {
		return nil
	}

	expr := fmt.Sprintf("document_id == %s", strconv.Quote(documentID))
	if _, err := c.client.Delete(ctx, milvusclient.NewDeleteOption(name).WithExpr(expr)); err != nil {
		return kberrors.ErrCollaboratorUnavailable.WithCause(fmt.Errorf("delete by document: %w", err))
	}
	return nil
}

// DropCollection removes the knowledge base's collection entirely.
// Dropping a collection that does not exist is a no-op.
func (c *Client) DropCollection(ctx context.Context, kbID string) error {
	name := collectionName(kbID)

	exists, err := c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(name))
	if err != nil {
		return kberrors.ErrCollaboratorUnavailable.WithCause(err)
	}
	if !exists {
		return nil
	}

	if err := c.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(name)); err != nil {
		return kberrors.ErrCollaboratorUnavailable.WithCause(fmt.Errorf("drop collection: %w", err))
	}
	return nil
}

// CollectionStats returns the number of entities in a knowledge base's collection.
func (c *Client) CollectionStats(ctx context.Context, kbID string) (int64, error) {
	stats, err := c.client.GetCollectionStats(ctx, milvusclient.NewGetCollectionStatsOption(collectionName(kbID)))
	if err != nil {
		return 0, kberrors.ErrCollaboratorUnavailable.WithCause(err)
	}

	if val, ok := stats["row_count"]; ok {
		return strconv.ParseInt(val, 10, 64)
	}
	return 0, nil
}
