package embedding

import "context"

// FixedDimEmbedder conforms an inner embedder's native dimensionality to a
// fixed target by zero-padding or truncation. The index dimension is fixed
// and all producers must match it exactly.
type FixedDimEmbedder struct {
	inner  Embedder
	target int
}

// NewFixedDim wraps inner so every vector has exactly target dimensions.
func NewFixedDim(inner Embedder, target int) *FixedDimEmbedder {
	return &FixedDimEmbedder{inner: inner, target: target}
}

func (e *FixedDimEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return conform(vec, e.target), nil
}

func (e *FixedDimEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := e.inner.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	for i := range vecs {
		vecs[i] = conform(vecs[i], e.target)
	}
	return vecs, nil
}

func (e *FixedDimEmbedder) Dimensions() int {
	return e.target
}

func (e *FixedDimEmbedder) Close() error {
	return e.inner.Close()
}

// conform pads with zeros or truncates to exactly target floats.
func conform(vec []float32, target int) []float32 {
	if len(vec) == target {
		return vec
	}
	out := make([]float32, target)
	copy(out, vec)
	return out
}
