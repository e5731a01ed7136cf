// Package milvus wraps the Milvus SDK client for the embedding index.
//
// Collections managed here have a fixed shape: an explicit int64 primary
// key (ids are assigned by the caller, so upserting an existing id
// overwrites the prior point), a float vector indexed with the cosine
// metric, the raw chunk text, and a JSON metadata field that filter
// expressions can address as metadata["key"].
package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	milvusopts "github.com/senselib/senselib/pkg/options/milvus"
	"github.com/senselib/senselib/pkg/utils/json"
)

const (
	fieldID        = "id"
	fieldEmbedding = "embedding"
	fieldText      = "text"
	fieldMetadata  = "metadata"

	maxTextLength = 65535
)

// Client wraps the Milvus SDK client.
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

// CollectionSchema describes an embedding collection.
type CollectionSchema struct {
	Name        string
	Description string
	Dimension   int
}

// HasCollection reports whether the collection exists.
func (c *Client) HasCollection(ctx context.Context, name string) (bool, error) {
	exists, err := c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(name))
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return exists, nil
}

// CreateCollection creates the collection if it does not exist yet.
func (c *Client) CreateCollection(ctx context.Context, schema *CollectionSchema) error {
	exists, err := c.HasCollection(ctx, schema.Name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	collSchema := entity.NewSchema().
		WithName(schema.Name).
		WithDescription(schema.Description).
		WithAutoID(false)

	// Caller-assigned primary key. Ids are derived from the insertion
	// offset, so a collision overwrites the existing point.
	collSchema.WithField(
		entity.NewField().
			WithName(fieldID).
			WithDataType(entity.FieldTypeInt64).
			WithIsPrimaryKey(true),
	)

	collSchema.WithField(
		entity.NewField().
			WithName(fieldEmbedding).
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(schema.Dimension)),
	)

	collSchema.WithField(
		entity.NewField().
			WithName(fieldText).
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(maxTextLength),
	)

	collSchema.WithField(
		entity.NewField().
			WithName(fieldMetadata).
			WithDataType(entity.FieldTypeJSON),
	)

	if err := c.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(schema.Name, collSchema)); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx := index.NewIvfFlatIndex(entity.COSINE, 128)
	createIdxTask, err := c.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(schema.Name, fieldEmbedding, idx))
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := createIdxTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for index creation: %w", err)
	}

	loadTask, err := c.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(schema.Name))
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for collection loading: %w", err)
	}

	return nil
}

// Point is a single vector record.
type Point struct {
	ID       int64
	Vector   []float32
	Text     string
	Metadata map[string]any
}

// Upsert writes points into the collection, overwriting existing ids.
func (c *Client) Upsert(ctx context.Context, collectionName string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	ids := make([]int64, len(points))
	vectors := make([][]float32, len(points))
	texts := make([]string, len(points))
	metadata := make([][]byte, len(points))

	for i, p := range points {
		ids[i] = p.ID
		vectors[i] = p.Vector
		texts[i] = truncateRunes(p.Text, maxTextLength)

		meta := p.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		data, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for point %d: %w", p.ID, err)
		}
		metadata[i] = data
	}

	columns := []column.Column{
		column.NewColumnInt64(fieldID, ids),
		column.NewColumnFloatVector(fieldEmbedding, len(vectors[0]), vectors),
		column.NewColumnVarChar(fieldText, texts),
		column.NewColumnJSONBytes(fieldMetadata, metadata),
	}

	if _, err := c.client.Upsert(ctx, milvusclient.NewColumnBasedInsertOption(collectionName, columns...)); err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	// Flush so ingested chunks are searchable immediately.
	flushTask, err := c.client.Flush(ctx, milvusclient.NewFlushOption(collectionName))
	if err != nil {
		return fmt.Errorf("failed to flush collection: %w", err)
	}
	if err := flushTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for flush: %w", err)
	}

	return nil
}

// SearchResult represents a single search result.
type SearchResult struct {
	ID       int64
	Score    float32
	Text     string
	Metadata map[string]any
}

// Search performs a vector similarity search. An empty filter expression
// searches the whole collection.
func (c *Client) Search(ctx context.Context, collectionName string, vector []float32, limit int, filterExpr string) ([]SearchResult, error) {
	loadTask, err := c.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(collectionName))
	if err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for collection loading: %w", err)
	}

	searchVectors := []entity.Vector{entity.FloatVector(vector)}

	opt := milvusclient.NewSearchOption(collectionName, limit, searchVectors).
		WithANNSField(fieldEmbedding).
		WithSearchParam("nprobe", "16").
		WithOutputFields(fieldText, fieldMetadata)
	if filterExpr != "" {
		opt = opt.WithFilter(filterExpr)
	}

	results, err := c.client.Search(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	if len(results) == 0 {
		return []SearchResult{}, nil
	}

	return parseResultSet(&results[0])
}

func parseResultSet(rs *milvusclient.ResultSet) ([]SearchResult, error) {
	searchResults := make([]SearchResult, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		result := SearchResult{
			Metadata: make(map[string]any),
		}
		if i < len(rs.Scores) {
			result.Score = rs.Scores[i]
		}

		if idCol, ok := rs.IDs.(*column.ColumnInt64); ok {
			result.ID = idCol.Data()[i]
		}

		for _, field := range rs.Fields {
			switch col := field.(type) {
			case *column.ColumnVarChar:
				if col.Name() == fieldText {
					result.Text = col.Data()[i]
				}
			case *column.ColumnJSONBytes:
				if col.Name() == fieldMetadata {
					var meta map[string]any
					if err := json.Unmarshal(col.Data()[i], &meta); err != nil {
						return nil, fmt.Errorf("failed to decode metadata for result %d: %w", i, err)
					}
					result.Metadata = meta
				}
			}
		}

		searchResults = append(searchResults, result)
	}

	return searchResults, nil
}

// QueryByFilter returns all points matching the filter expression. Used
// by the reconciliation job to enumerate stored payload metadata.
func (c *Client) QueryByFilter(ctx context.Context, collectionName, filterExpr string) ([]SearchResult, error) {
	rs, err := c.client.Query(ctx, milvusclient.NewQueryOption(collectionName).
		WithFilter(filterExpr).
		WithOutputFields(fieldID, fieldText, fieldMetadata))
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return parseResultSet(&rs)
}

// DeleteByIDs deletes points by their ids.
func (c *Client) DeleteByIDs(ctx context.Context, collectionName string, ids []int64) error {
	if _, err := c.client.Delete(ctx, milvusclient.NewDeleteOption(collectionName).WithInt64IDs(fieldID, ids)); err != nil {
		return fmt.Errorf("failed to delete by ids: %w", err)
	}
	return nil
}

// DropCollection drops a collection.
func (c *Client) DropCollection(ctx context.Context, collectionName string) error {
	if err := c.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(collectionName)); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}

// GetCollectionStats returns the number of entities in a collection.
func (c *Client) GetCollectionStats(ctx context.Context, collectionName string) (int64, error) {
	stats, err := c.client.GetCollectionStats(ctx, milvusclient.NewGetCollectionStatsOption(collectionName))
	if err != nil {
		return 0, fmt.Errorf("failed to get collection stats: %w", err)
	}

	if val, ok := stats["row_count"]; ok {
		return strconv.ParseInt(val, 10, 64)
	}
	return 0, nil
}

func truncateRunes(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
