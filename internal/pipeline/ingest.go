package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/awase/internal/blob"
	"github.com/hyperjump/awase/internal/models"
)

// FileRegistry is the slice of the metadata store the ingestor needs.
type FileRegistry interface {
	UpsertFile(ctx context.Context, rec *models.FileRecord) error
	DeleteFile(ctx context.Context, fileKey string) error
}

// FileKey builds the canonical blob key for a user's file.
func FileKey(userID, fileName string) string {
	return userID + "/" + fileName
}

// Ingestor coordinates the three stores for uploads and deletions: blob
// content, the metadata registry, and the vector index.
type Ingestor struct {
	pipeline *Pipeline
	blobs    blob.Store
	registry FileRegistry
	logger   *zap.Logger
}

// NewIngestor creates an Ingestor.
func NewIngestor(pipeline *Pipeline, blobs blob.Store, registry FileRegistry, logger *zap.Logger) *Ingestor {
	return &Ingestor{pipeline: pipeline, blobs: blobs, registry: registry, logger: logger}
}

// Ingest stores a file's content, registers its metadata and embeds it.
// Blob and metadata writes happen for every file, including unsupported
// formats; only the embedding step is conditional, so the reconciler can
// tell "should not be embedded" from "embedding is missing".
func (in *Ingestor) Ingest(ctx context.Context, userID, fileName, contentType string, data []byte) (*EmbedResult, error) {
	key := FileKey(userID, fileName)

	if err := in.blobs.Upload(ctx, key, data); err != nil {
		return nil, fmt.Errorf("store blob %s: %w", key, err)
	}
	rec := &models.FileRecord{
		FileKey:     key,
		UserID:      userID,
		FileName:    fileName,
		FileSize:    int64(len(data)),
		ContentType: contentType,
		UploadDate:  time.Now(),
		IsActive:    true,
	}
	if err := in.registry.UpsertFile(ctx, rec); err != nil {
		return nil, fmt.Errorf("register file %s: %w", key, err)
	}

	result, err := in.pipeline.EmbedFile(ctx, &EmbedRequest{
		UserID:      userID,
		FileKey:     key,
		FileName:    fileName,
		ContentType: contentType,
		Content:     data,
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes a file from all three stores. Each removal is
// idempotent, so a partially deleted file can be deleted again. The
// sparse corpus statistics are left as indexed; see the metadata store's
// AddDocument for the resulting IDF drift.
func (in *Ingestor) Delete(ctx context.Context, userID, fileName string) error {
	key := FileKey(userID, fileName)

	if err := in.pipeline.DeleteFile(ctx, userID, fileName); err != nil {
		return err
	}
	if err := in.blobs.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete blob %s: %w", key, err)
	}
	if err := in.registry.DeleteFile(ctx, key); err != nil {
		return fmt.Errorf("deregister file %s: %w", key, err)
	}
	in.logger.Info("deleted file",
		zap.String("file", fileName),
		zap.String("user_id", userID))
	return nil
}
