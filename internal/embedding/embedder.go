// Package embedding provides text embedding via ONNX with a deterministic
// hash-derived fallback, caching, and fixed-dimension conformance.
package embedding

import "context"

// Embedder produces vector embeddings for text. Encoding the empty string
// is valid and yields a vector, not an error.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
