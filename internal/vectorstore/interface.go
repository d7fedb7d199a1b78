// Package vectorstore defines a backend-agnostic interface for the vector
// index holding dense and sparse vector fields per point.
package vectorstore

import (
	"context"
	"errors"

	"github.com/hyperjump/awase/internal/models"
)

// ErrUnavailable indicates the vector backend could not be reached at all.
// Distinct from "zero results".
var ErrUnavailable = errors.New("vector backend unavailable")

// Filter scopes operations by payload fields. UserID is mandatory for
// every search and listing: cross-user visibility is a correctness bug.
type Filter struct {
	UserID   string
	Title    string
	Source   string
	FileName string
}

// ScoredDocument is one search hit.
type ScoredDocument struct {
	Document *models.VectorDocument
	Score    float64
}

// VectorStore is the CRUD/query contract for the vector index.
// Implementations catch transport failures and surface them as error
// values; callers in higher layers rely on that to build fallback chains.
type VectorStore interface {
	// EnsureSchema creates the collection and payload indexes if missing.
	// Idempotent: an existing schema is a success, not an error.
	EnsureSchema(ctx context.Context) error

	// Upsert writes doc with its dense and (optional) sparse vector.
	// Idempotent by doc.ID; overwrites on the same id.
	Upsert(ctx context.Context, doc *models.VectorDocument, dense []float32, sparse models.SparseVector) error

	// Get returns the document with the given id, or nil when absent.
	Get(ctx context.Context, id string) (*models.VectorDocument, error)

	// QueryDense runs a cosine-similarity search over the dense field.
	// Zero matches yield an empty slice, never an error.
	QueryDense(ctx context.Context, vector []float32, filter Filter, limit int, scoreThreshold float32) ([]ScoredDocument, error)

	// QuerySparse runs a term-weight search over the sparse field.
	QuerySparse(ctx context.Context, vector models.SparseVector, filter Filter, limit int) ([]ScoredDocument, error)

	// Exists reports whether at least one point matches the filter.
	Exists(ctx context.Context, filter Filter) (bool, error)

	// ListByUser returns up to limit points owned by userID, fetched via
	// paginated scroll rather than one unbounded query.
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.VectorDocument, error)

	// Delete removes one point by id.
	Delete(ctx context.Context, id string) error

	// DeleteByFilter removes every point matching the filter; for a chunked
	// file this is all of its chunks.
	DeleteByFilter(ctx context.Context, filter Filter) error

	Close() error
}
