package embedding

import (
	"os"

	"go.uber.org/zap"

	"github.com/hyperjump/awase/internal/config"
)

// New builds the process-wide embedder: the ONNX model when its file is
// present and CGO is available, the deterministic hash fallback otherwise.
// Either way the result is conformed to exactly config.IndexDimensions.
func New(cfg *config.EmbeddingConfig, logger *zap.Logger) Embedder {
	if _, err := os.Stat(cfg.ModelPath); err == nil {
		onnx, err := NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens, cfg.CacheSize)
		if err == nil {
			logger.Info("using ONNX embedder",
				zap.String("model", cfg.ModelPath),
				zap.Int("native_dimensions", cfg.Dimensions))
			return NewFixedDim(onnx, config.IndexDimensions)
		}
		logger.Warn("ONNX embedder unavailable, falling back to deterministic hash embedder",
			zap.Error(err))
	} else {
		logger.Warn("embedding model not found, falling back to deterministic hash embedder",
			zap.String("model", cfg.ModelPath))
	}
	return NewFixedDim(NewHashEmbedder(cfg.Dimensions), config.IndexDimensions)
}
