package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/awase/internal/config"
	"github.com/hyperjump/awase/internal/embedding"
	"github.com/hyperjump/awase/internal/models"
	"github.com/hyperjump/awase/internal/sparse"
	"github.com/hyperjump/awase/internal/vectorstore"
)

// Search modes.
const (
	ModeDense  = "dense"
	ModeSparse = "sparse"
	ModeHybrid = "hybrid"
)

// ErrUnsupportedMode is returned for a search mode outside the known set.
var ErrUnsupportedMode = errors.New("unsupported search mode")

// ErrMissingUserID is returned when a request carries no user scope.
var ErrMissingUserID = errors.New("user_id is required")

// Request is one search request. UserID is mandatory; every query is
// filtered server-side to that user's documents.
type Request struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
	// Mode selects dense, sparse or hybrid retrieval. Empty means hybrid.
	Mode  string `json:"mode,omitempty"`
	Limit int    `json:"limit,omitempty"`
	// FileName optionally narrows the search to one file's points.
	FileName string `json:"file_name,omitempty"`
}

// Response is a scored result list with timing.
type Response struct {
	Results   []models.SearchResult `json:"results"`
	Total     int                   `json:"total"`
	Mode      string                `json:"mode"`
	QueryTime int64                 `json:"query_time_ms"`
}

// Service runs retrieval against the vector store.
type Service struct {
	embedder embedding.Embedder
	encoder  *sparse.Encoder
	store    vectorstore.VectorStore
	cfg      config.SearchConfig
	logger   *zap.Logger
}

// NewService creates a search service.
func NewService(embedder embedding.Embedder, encoder *sparse.Encoder, store vectorstore.VectorStore, cfg config.SearchConfig, logger *zap.Logger) *Service {
	return &Service{embedder: embedder, encoder: encoder, store: store, cfg: cfg, logger: logger}
}

// Search dispatches by mode.
func (s *Service) Search(ctx context.Context, req *Request) (*Response, error) {
	if req.UserID == "" {
		return nil, ErrMissingUserID
	}
	start := time.Now()
	limit := s.clampLimit(req.Limit)
	mode := req.Mode
	if mode == "" {
		mode = ModeHybrid
	}

	var (
		results []models.SearchResult
		err     error
	)
	switch mode {
	case ModeDense:
		results, err = s.searchDense(ctx, req, limit)
	case ModeSparse:
		results, err = s.searchSparse(ctx, req, limit)
	case ModeHybrid:
		results, err = s.searchHybrid(ctx, req, limit)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMode, req.Mode)
	}
	if err != nil {
		return nil, err
	}

	return &Response{
		Results:   results,
		Total:     len(results),
		Mode:      mode,
		QueryTime: time.Since(start).Milliseconds(),
	}, nil
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultLimit
	}
	if s.cfg.MaxLimit > 0 && limit > s.cfg.MaxLimit {
		return s.cfg.MaxLimit
	}
	return limit
}

func (s *Service) filter(req *Request) vectorstore.Filter {
	return vectorstore.Filter{UserID: req.UserID, FileName: req.FileName}
}

// searchDense degrades to empty results when the dense side fails: the
// caller gets an answer either way and the failure lands in the log.
func (s *Service) searchDense(ctx context.Context, req *Request, limit int) ([]models.SearchResult, error) {
	scored, err := s.queryDense(ctx, req, limit)
	if err != nil {
		s.logger.Error("dense search failed, serving empty results",
			zap.String("user_id", req.UserID),
			zap.Error(err))
		return []models.SearchResult{}, nil
	}
	return toResults(scored), nil
}

func (s *Service) queryDense(ctx context.Context, req *Request, limit int) ([]vectorstore.ScoredDocument, error) {
	vec, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	scored, err := s.store.QueryDense(ctx, vec, s.filter(req), limit, s.cfg.ScoreThreshold)
	if err != nil {
		return nil, fmt.Errorf("dense search failed: %w", err)
	}
	return scored, nil
}

func (s *Service) searchSparse(ctx context.Context, req *Request, limit int) ([]models.SearchResult, error) {
	scored, err := s.querySparse(ctx, req, limit)
	if err != nil {
		return nil, err
	}
	return toResults(scored), nil
}

func (s *Service) querySparse(ctx context.Context, req *Request, limit int) ([]vectorstore.ScoredDocument, error) {
	vec, err := s.encoder.EncodeQuery(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	// A query of nothing but stopwords has no sparse representation.
	if vec.IsEmpty() {
		return nil, nil
	}
	scored, err := s.store.QuerySparse(ctx, vec, s.filter(req), limit)
	if err != nil {
		return nil, fmt.Errorf("sparse search failed: %w", err)
	}
	return scored, nil
}

// searchHybrid runs both signals concurrently over an over-fetched
// candidate pool, fuses them and truncates to limit. When the sparse side
// fails the dense results still serve the query; when the dense side
// fails the query answers with empty results and the failure is logged.
func (s *Service) searchHybrid(ctx context.Context, req *Request, limit int) ([]models.SearchResult, error) {
	fetchLimit := limit * 2

	var (
		denseResults  []vectorstore.ScoredDocument
		sparseResults []vectorstore.ScoredDocument
		denseErr      error
		sparseErr     error
		wg            sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		denseResults, denseErr = s.queryDense(ctx, req, fetchLimit)
	}()
	go func() {
		defer wg.Done()
		sparseResults, sparseErr = s.querySparse(ctx, req, fetchLimit)
	}()
	wg.Wait()

	if denseErr != nil {
		s.logger.Error("dense search failed, serving empty results",
			zap.String("user_id", req.UserID),
			zap.Error(denseErr))
		return []models.SearchResult{}, nil
	}
	if sparseErr != nil {
		s.logger.Warn("sparse search failed, serving dense-only results",
			zap.String("user_id", req.UserID),
			zap.Error(sparseErr))
		return toResults(truncate(denseResults, limit)), nil
	}

	fused := Fuse(denseResults, sparseResults, s.cfg.DenseWeight, s.cfg.SparseWeight)
	if len(fused) > limit {
		fused = fused[:limit]
	}
	results := make([]models.SearchResult, 0, len(fused))
	for _, f := range fused {
		results = append(results, toResult(f.Document, f.Score))
	}
	return results, nil
}

func truncate(scored []vectorstore.ScoredDocument, limit int) []vectorstore.ScoredDocument {
	if len(scored) > limit {
		return scored[:limit]
	}
	return scored
}

func toResults(scored []vectorstore.ScoredDocument) []models.SearchResult {
	results := make([]models.SearchResult, 0, len(scored))
	for _, r := range scored {
		results = append(results, toResult(r.Document, r.Score))
	}
	return results
}

func toResult(doc *models.VectorDocument, score float64) models.SearchResult {
	return models.SearchResult{
		ID:       doc.ID,
		Score:    score,
		Text:     doc.Text,
		Title:    doc.Title,
		Source:   doc.Source,
		FileName: doc.FileName,
		UserID:   doc.UserID,
		Metadata: doc.Metadata,
	}
}
