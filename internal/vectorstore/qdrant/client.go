// Package qdrant implements vectorstore.VectorStore against a Qdrant
// collection with named dense and sparse vector fields.
package qdrant

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/hyperjump/awase/internal/config"
	"github.com/hyperjump/awase/internal/models"
	"github.com/hyperjump/awase/internal/vectorstore"
)

const (
	denseVectorName  = "dense"
	sparseVectorName = "sparse"
	scrollBatchSize  = 256
)

// Config holds Qdrant connection configuration.
type Config struct {
	// URL is the Qdrant server address (e.g., "https://example.qdrant.io:6334").
	URL string

	// Collection is the name of the collection holding the points.
	Collection string

	// APIKey is optional API key for authentication.
	APIKey string
}

// Client implements vectorstore.VectorStore for Qdrant.
type Client struct {
	client     *qdrant.Client
	collection string
}

// New creates a new Qdrant client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}

	parsedURL := cfg.URL
	if !strings.HasPrefix(parsedURL, "http://") && !strings.HasPrefix(parsedURL, "https://") {
		parsedURL = "https://" + parsedURL
	}
	u, err := url.Parse(parsedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse qdrant url: %w", err)
	}

	host := u.Hostname()
	port := 6334 // default gRPC port
	if u.Port() != "" {
		p, err := strconv.Atoi(u.Port())
		if err != nil {
			return nil, fmt.Errorf("invalid port: %w", err)
		}
		port = p
	}

	qdrantClient, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &Client{client: qdrantClient, collection: cfg.Collection}, nil
}

// EnsureSchema creates the collection and keyword payload indexes if they
// do not exist. An already-existing collection or index is a no-op.
func (c *Client) EnsureSchema(ctx context.Context) error {
	exists, err := c.client.CollectionExists(ctx, c.collection)
	if err != nil {
		return fmt.Errorf("%w: check collection: %v", vectorstore.ErrUnavailable, err)
	}
	if !exists {
		err := c.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: c.collection,
			VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
				denseVectorName: {
					Size:     uint64(config.IndexDimensions),
					Distance: qdrant.Distance_Cosine,
				},
			}),
			SparseVectorsConfig: qdrant.NewSparseVectorsConfig(map[string]*qdrant.SparseVectorParams{
				sparseVectorName: {},
			}),
		})
		if err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("create collection: %w", err)
		}
	}

	for _, field := range []string{"user_id", "title", "source", "file_name"} {
		_, err := c.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: c.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("create payload index %q: %w", field, err)
		}
	}
	return nil
}

// Upsert implements vectorstore.VectorStore.
func (c *Client) Upsert(ctx context.Context, doc *models.VectorDocument, dense []float32, sparse models.SparseVector) error {
	vectors := map[string]*qdrant.Vector{
		denseVectorName: qdrant.NewVector(dense...),
	}
	if !sparse.IsEmpty() {
		vectors[sparseVectorName] = qdrant.NewVectorSparse(sparse.Indices, sparse.Values)
	}

	wait := true
	_, err := c.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.collection,
		Wait:           &wait,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(doc.ID),
			Vectors: qdrant.NewVectorsMap(vectors),
			Payload: toPayload(doc),
		}},
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

// Get implements vectorstore.VectorStore. Returns nil when absent.
func (c *Client) Get(ctx context.Context, id string) (*models.VectorDocument, error) {
	points, err := c.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: c.collection,
		Ids:            []*qdrant.PointId{qdrant.NewID(id)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant get failed: %w", err)
	}
	if len(points) == 0 {
		return nil, nil
	}
	return fromPayload(pointID(points[0].Id), points[0].Payload), nil
}

// QueryDense implements vectorstore.VectorStore.
func (c *Client) QueryDense(ctx context.Context, vector []float32, filter vectorstore.Filter, limit int, scoreThreshold float32) ([]vectorstore.ScoredDocument, error) {
	using := denseVectorName
	limitUint64 := uint64(limit)
	req := &qdrant.QueryPoints{
		CollectionName: c.collection,
		Query:          qdrant.NewQuery(vector...),
		Using:          &using,
		Limit:          &limitUint64,
		Filter:         buildFilter(filter),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if scoreThreshold > 0 {
		req.ScoreThreshold = &scoreThreshold
	}
	points, err := c.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("qdrant dense query failed: %w", err)
	}
	return scored(points), nil
}

// QuerySparse implements vectorstore.VectorStore.
func (c *Client) QuerySparse(ctx context.Context, vector models.SparseVector, filter vectorstore.Filter, limit int) ([]vectorstore.ScoredDocument, error) {
	if vector.IsEmpty() {
		return nil, nil
	}
	using := sparseVectorName
	limitUint64 := uint64(limit)
	points, err := c.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.collection,
		Query:          qdrant.NewQuerySparse(vector.Indices, vector.Values),
		Using:          &using,
		Limit:          &limitUint64,
		Filter:         buildFilter(filter),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant sparse query failed: %w", err)
	}
	return scored(points), nil
}

// Exists implements vectorstore.VectorStore using a scroll of size 1.
func (c *Client) Exists(ctx context.Context, filter vectorstore.Filter) (bool, error) {
	one := uint32(1)
	points, err := c.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: c.collection,
		Filter:         buildFilter(filter),
		Limit:          &one,
	})
	if err != nil {
		return false, fmt.Errorf("qdrant scroll failed: %w", err)
	}
	return len(points) > 0, nil
}

// ListByUser implements vectorstore.VectorStore via paginated scroll, so
// large corpora are never loaded in one unbounded query.
func (c *Client) ListByUser(ctx context.Context, userID string, limit int) ([]*models.VectorDocument, error) {
	docs := make([]*models.VectorDocument, 0)
	var offset *qdrant.PointId
	lastID := ""
	for limit <= 0 || len(docs) < limit {
		batch := uint32(scrollBatchSize)
		points, err := c.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: c.collection,
			Filter:         buildFilter(vectorstore.Filter{UserID: userID}),
			Limit:          &batch,
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("qdrant scroll failed: %w", err)
		}
		if len(points) == 0 {
			break
		}
		for _, p := range points {
			id := pointID(p.Id)
			// The offset point is returned again on subsequent pages.
			if id == lastID {
				continue
			}
			docs = append(docs, fromPayload(id, p.Payload))
			if limit > 0 && len(docs) >= limit {
				return docs, nil
			}
		}
		if len(points) < scrollBatchSize {
			break
		}
		offset = points[len(points)-1].Id
		lastID = pointID(offset)
	}
	return docs, nil
}

// Delete implements vectorstore.VectorStore.
func (c *Client) Delete(ctx context.Context, id string) error {
	wait := true
	_, err := c.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: c.collection,
		Wait:           &wait,
		Points:         qdrant.NewPointsSelector(qdrant.NewID(id)),
	})
	if err != nil {
		return fmt.Errorf("qdrant delete failed: %w", err)
	}
	return nil
}

// DeleteByFilter implements vectorstore.VectorStore. Removes every point
// matching the filter, which for a chunked file is all of its chunks.
func (c *Client) DeleteByFilter(ctx context.Context, filter vectorstore.Filter) error {
	f := buildFilter(filter)
	if f == nil {
		return fmt.Errorf("refusing to delete with empty filter")
	}
	wait := true
	_, err := c.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: c.collection,
		Wait:           &wait,
		Points:         qdrant.NewPointsSelectorFilter(f),
	})
	if err != nil {
		return fmt.Errorf("qdrant delete by filter failed: %w", err)
	}
	return nil
}

// Close implements vectorstore.VectorStore.
func (c *Client) Close() error {
	return c.client.Close()
}

// buildFilter converts a vectorstore.Filter to a Qdrant Filter. Only
// non-empty fields contribute conditions; all conditions are ANDed.
func buildFilter(filter vectorstore.Filter) *qdrant.Filter {
	var conditions []*qdrant.Condition
	for _, kv := range []struct{ key, value string }{
		{"user_id", filter.UserID},
		{"title", filter.Title},
		{"source", filter.Source},
		{"file_name", filter.FileName},
	} {
		if kv.value == "" {
			continue
		}
		conditions = append(conditions, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key:   kv.key,
					Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: kv.value}},
				},
			},
		})
	}
	if len(conditions) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: conditions}
}

func toPayload(doc *models.VectorDocument) map[string]*qdrant.Value {
	return qdrant.NewValueMap(map[string]any{
		"text":      doc.Text,
		"user_id":   doc.UserID,
		"title":     doc.Title,
		"source":    doc.Source,
		"file_name": doc.FileName,
		"page":      int64(doc.Page),
		"timestamp": doc.Timestamp.UTC().Format(time.RFC3339),
		"metadata": map[string]any{
			"category":     doc.Metadata.Category,
			"language":     doc.Metadata.Language,
			"chunk_index":  int64(doc.Metadata.ChunkIndex),
			"total_chunks": int64(doc.Metadata.TotalChunks),
			"is_chunk":     doc.Metadata.IsChunk,
			"parent_file":  doc.Metadata.ParentFile,
		},
		"extra": map[string]any{
			"summary": doc.Extra.Summary,
			"url":     doc.Extra.URL,
		},
	})
}

func fromPayload(id string, payload map[string]*qdrant.Value) *models.VectorDocument {
	doc := &models.VectorDocument{ID: id}
	doc.Text = stringField(payload, "text")
	doc.UserID = stringField(payload, "user_id")
	doc.Title = stringField(payload, "title")
	doc.Source = stringField(payload, "source")
	doc.FileName = stringField(payload, "file_name")
	doc.Page = int(intField(payload, "page"))
	if ts := stringField(payload, "timestamp"); ts != "" {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			doc.Timestamp = parsed
		}
	}
	if meta := structField(payload, "metadata"); meta != nil {
		doc.Metadata = models.DocumentMetadata{
			Category:    stringField(meta, "category"),
			Language:    stringField(meta, "language"),
			ChunkIndex:  int(intField(meta, "chunk_index")),
			TotalChunks: int(intField(meta, "total_chunks")),
			IsChunk:     boolField(meta, "is_chunk"),
			ParentFile:  stringField(meta, "parent_file"),
		}
	}
	if extra := structField(payload, "extra"); extra != nil {
		doc.Extra = models.DocumentExtra{
			Summary: stringField(extra, "summary"),
			URL:     stringField(extra, "url"),
		}
	}
	return doc
}

func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return fmt.Sprintf("%d", id.GetNum())
}

func scored(points []*qdrant.ScoredPoint) []vectorstore.ScoredDocument {
	results := make([]vectorstore.ScoredDocument, 0, len(points))
	for _, p := range points {
		results = append(results, vectorstore.ScoredDocument{
			Document: fromPayload(pointID(p.Id), p.Payload),
			Score:    float64(p.Score),
		})
	}
	return results
}

func stringField(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func intField(payload map[string]*qdrant.Value, key string) int64 {
	if v, ok := payload[key]; ok {
		return v.GetIntegerValue()
	}
	return 0
}

func boolField(payload map[string]*qdrant.Value, key string) bool {
	if v, ok := payload[key]; ok {
		return v.GetBoolValue()
	}
	return false
}

func structField(payload map[string]*qdrant.Value, key string) map[string]*qdrant.Value {
	if v, ok := payload[key]; ok {
		if s := v.GetStructValue(); s != nil {
			return s.GetFields()
		}
	}
	return nil
}

func isAlreadyExists(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "already exists")
}

// Compile-time check that Client implements VectorStore.
var _ vectorstore.VectorStore = (*Client)(nil)
