package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/awase/internal/pipeline"
)

// Service connects the filesystem watcher to the ingestion pipeline.
// Each watched root is a drop directory: files land under a per-user
// subdirectory and are ingested on behalf of that user.
type Service struct {
	roots    []string
	watcher  *Watcher
	ingestor *pipeline.Ingestor
	logger   *zap.Logger
}

// NewService creates a drop-directory ingestion service.
func NewService(roots, extensions []string, ingestor *pipeline.Ingestor, logger *zap.Logger) *Service {
	s := &Service{roots: roots, ingestor: ingestor, logger: logger}
	s.watcher = NewWatcher(roots, extensions, s.handleFile, s.handleRemove, logger)
	return s
}

// Start begins watching and ingests files already present in the roots.
func (s *Service) Start(ctx context.Context) error {
	if err := s.watcher.Start(ctx); err != nil {
		return err
	}
	go s.syncExisting(ctx)
	return nil
}

// Stop stops the underlying watcher.
func (s *Service) Stop() {
	s.watcher.Stop()
}

// resolve maps an absolute path to (userID, fileName). Files directly
// under a root have no owner and are skipped.
func (s *Service) resolve(path string) (userID, fileName string, ok bool) {
	for _, root := range s.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) < 2 {
			return "", "", false
		}
		// Nested paths flatten to the base name; the drop layout is one
		// level of user directories.
		return parts[0], parts[len(parts)-1], true
	}
	return "", "", false
}

func (s *Service) handleFile(path string) {
	userID, fileName, ok := s.resolve(path)
	if !ok {
		s.logger.Debug("ignoring file outside user directory", zap.String("path", path))
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("failed to read dropped file", zap.String("path", path), zap.Error(err))
		return
	}
	result, err := s.ingestor.Ingest(context.Background(), userID, fileName, "", data)
	if err != nil {
		s.logger.Warn("failed to ingest dropped file",
			zap.String("path", path),
			zap.String("user_id", userID),
			zap.Error(err))
		return
	}
	s.logger.Info("ingested dropped file",
		zap.String("user_id", userID),
		zap.String("file", fileName),
		zap.String("status", string(result.Status)),
		zap.Int("chunks", result.Chunks))
}

func (s *Service) handleRemove(path string) {
	userID, fileName, ok := s.resolve(path)
	if !ok {
		return
	}
	if err := s.ingestor.Delete(context.Background(), userID, fileName); err != nil {
		s.logger.Warn("failed to delete removed file",
			zap.String("user_id", userID),
			zap.String("file", fileName),
			zap.Error(err))
	}
}

// syncExisting ingests files that were dropped while the service was not
// running. Ingestion is idempotent, so re-visiting known files only
// rewrites their existing points.
func (s *Service) syncExisting(ctx context.Context) {
	for _, root := range s.roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !d.IsDir() {
				s.handleFile(path)
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			s.logger.Warn("initial sync failed", zap.String("root", root), zap.Error(err))
		}
	}
}
