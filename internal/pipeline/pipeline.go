// Package pipeline turns uploaded files into indexed vector points:
// extraction, chunking, dense and sparse embedding, and idempotent upsert.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/awase/internal/config"
	"github.com/hyperjump/awase/internal/embedding"
	"github.com/hyperjump/awase/internal/extract"
	"github.com/hyperjump/awase/internal/fileid"
	"github.com/hyperjump/awase/internal/models"
	"github.com/hyperjump/awase/internal/sparse"
	"github.com/hyperjump/awase/internal/vectorstore"
	"github.com/hyperjump/awase/pkg/utils"
)

// ErrEmptyContent is returned when extraction succeeds but yields no text.
var ErrEmptyContent = errors.New("extracted content is empty")

// summaryLength caps the stored preview text.
const summaryLength = 200

// embeddableExtensions is the whitelist of file types worth indexing.
var embeddableExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".pdf":  true,
	".docx": true,
	".xlsx": true,
	".xls":  true,
	".pptx": true,
	".csv":  true,
	".json": true,
	".log":  true,
}

// Status describes what EmbedFile did with a file.
type Status string

const (
	StatusEmbedded        Status = "embedded"
	StatusSkipped         Status = "skipped_unsupported"
	StatusAlreadyEmbedded Status = "already_embedded"
)

// EmbedRequest identifies one file to index.
type EmbedRequest struct {
	UserID      string
	FileKey     string
	FileName    string
	ContentType string
	Content     []byte
}

// EmbedResult reports the outcome of EmbedFile. ChunksFailed counts
// chunks whose embedding or upsert failed; it is only non-zero when at
// least one chunk succeeded, otherwise EmbedFile returns an error.
type EmbedResult struct {
	Status       Status
	PointIDs     []string
	Chunks       int
	ChunksFailed int
}

// Pipeline embeds files into the vector index.
type Pipeline struct {
	extractor *extract.Extractor
	embedder  embedding.Embedder
	encoder   *sparse.Encoder
	store     vectorstore.VectorStore
	cfg       config.PipelineConfig
	logger    *zap.Logger
}

// New creates a Pipeline.
func New(embedder embedding.Embedder, encoder *sparse.Encoder, store vectorstore.VectorStore, cfg config.PipelineConfig, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		extractor: extract.NewExtractor(),
		embedder:  embedder,
		encoder:   encoder,
		store:     store,
		cfg:       cfg,
		logger:    logger,
	}
}

// ShouldEmbed reports whether a file of this name is worth indexing.
func ShouldEmbed(fileName string) bool {
	return embeddableExtensions[strings.ToLower(filepath.Ext(fileName))]
}

// IsAlreadyEmbedded reports whether the file already has at least one
// point in the index. A chunked file counts as present when any of its
// chunks exists, because chunks carry the undecorated file name.
func (p *Pipeline) IsAlreadyEmbedded(ctx context.Context, userID, fileName string) (bool, error) {
	return p.store.Exists(ctx, vectorstore.Filter{UserID: userID, FileName: fileName})
}

// EmbedFile extracts, chunks if needed, embeds and upserts one file.
// The existence check runs before any extraction work, so indexing the
// same file twice is a no-op that also leaves the sparse corpus
// statistics untouched. Point IDs are deterministic, so the remaining
// race between check and upsert degrades to a same-id overwrite.
func (p *Pipeline) EmbedFile(ctx context.Context, req *EmbedRequest) (*EmbedResult, error) {
	if !ShouldEmbed(req.FileName) {
		p.logger.Debug("skipping unsupported file",
			zap.String("file", req.FileName),
			zap.String("user_id", req.UserID))
		return &EmbedResult{Status: StatusSkipped}, nil
	}

	already, err := p.IsAlreadyEmbedded(ctx, req.UserID, req.FileName)
	if err != nil {
		return nil, fmt.Errorf("existence check %s: %w", req.FileName, err)
	}
	if already {
		p.logger.Debug("file already embedded",
			zap.String("file", req.FileName),
			zap.String("user_id", req.UserID))
		return &EmbedResult{Status: StatusAlreadyEmbedded}, nil
	}

	text, err := p.extractor.Extract(req.Content, req.ContentType, req.FileName)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", req.FileName, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyContent, req.FileName)
	}

	if p.shouldChunk(text, req.FileName) {
		return p.embedChunked(ctx, req, text)
	}
	return p.embedSingle(ctx, req, text)
}

// shouldChunk decides between one point and many. PDFs always chunk
// because extracted page text concatenates poorly into one embedding;
// other formats chunk past the configured threshold.
func (p *Pipeline) shouldChunk(text, fileName string) bool {
	if strings.EqualFold(filepath.Ext(fileName), ".pdf") {
		return true
	}
	return len([]rune(text)) > p.cfg.ChunkThreshold
}

func (p *Pipeline) embedSingle(ctx context.Context, req *EmbedRequest, text string) (*EmbedResult, error) {
	doc := p.newDocument(req, text, req.FileName, req.FileKey)
	if err := p.upsert(ctx, doc, text); err != nil {
		return nil, err
	}
	p.logger.Info("embedded file",
		zap.String("file", req.FileName),
		zap.String("user_id", req.UserID),
		zap.String("point_id", doc.ID))
	return &EmbedResult{Status: StatusEmbedded, PointIDs: []string{doc.ID}, Chunks: 1}, nil
}

func (p *Pipeline) embedChunked(ctx context.Context, req *EmbedRequest, text string) (*EmbedResult, error) {
	chunks := SplitText(text, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
	total := len(chunks)

	var mu sync.Mutex
	pointIDs := make([]string, 0, total)
	failed := 0
	var firstErr error

	g, gctx := errgroup.WithContext(ctx)
	if p.cfg.MaxConcurrency > 0 {
		g.SetLimit(p.cfg.MaxConcurrency)
	}
	for i, chunk := range chunks {
		g.Go(func() error {
			doc := p.newDocument(req, chunk, models.ChunkTitle(req.FileName, i, total), models.ChunkSource(req.FileKey, i))
			doc.Metadata.ChunkIndex = i
			doc.Metadata.TotalChunks = total
			doc.Metadata.IsChunk = true
			doc.Metadata.ParentFile = req.FileName

			err := p.upsert(gctx, doc, chunk)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// A failed chunk does not cancel its siblings; the caller
				// sees the count and can re-run to fill the gaps.
				failed++
				if firstErr == nil {
					firstErr = err
				}
				p.logger.Warn("chunk embedding failed",
					zap.String("file", req.FileName),
					zap.Int("chunk", i),
					zap.Error(err))
				return nil
			}
			pointIDs = append(pointIDs, doc.ID)
			return nil
		})
	}
	_ = g.Wait()

	if failed == total {
		return nil, fmt.Errorf("embed %s: all %d chunks failed: %w", req.FileName, total, firstErr)
	}
	p.logger.Info("embedded chunked file",
		zap.String("file", req.FileName),
		zap.String("user_id", req.UserID),
		zap.Int("chunks", total),
		zap.Int("failed", failed))
	return &EmbedResult{Status: StatusEmbedded, PointIDs: pointIDs, Chunks: total, ChunksFailed: failed}, nil
}

func (p *Pipeline) newDocument(req *EmbedRequest, text, title, source string) *models.VectorDocument {
	return &models.VectorDocument{
		ID:        fileid.PointID(req.UserID, title, source),
		Text:      text,
		UserID:    req.UserID,
		Title:     title,
		Source:    source,
		FileName:  req.FileName,
		Timestamp: time.Now(),
		Metadata:  models.DocumentMetadata{Category: "document"},
		Extra:     models.DocumentExtra{Summary: utils.Summary(text, summaryLength)},
	}
}

func (p *Pipeline) upsert(ctx context.Context, doc *models.VectorDocument, text string) error {
	dense, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("dense embedding: %w", err)
	}
	sparseVec, err := p.encoder.IndexDocument(ctx, text)
	if err != nil {
		return fmt.Errorf("sparse encoding: %w", err)
	}
	if err := p.store.Upsert(ctx, doc, dense, sparseVec); err != nil {
		return fmt.Errorf("upsert point: %w", err)
	}
	return nil
}

// DeleteFile removes every point belonging to a file, chunked or not.
// Filtering on the undecorated file name covers both layouts.
func (p *Pipeline) DeleteFile(ctx context.Context, userID, fileName string) error {
	err := p.store.DeleteByFilter(ctx, vectorstore.Filter{UserID: userID, FileName: fileName})
	if err != nil {
		return fmt.Errorf("delete points for %s: %w", fileName, err)
	}
	p.logger.Info("deleted file points",
		zap.String("file", fileName),
		zap.String("user_id", userID))
	return nil
}
