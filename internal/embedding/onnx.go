//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"math"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// tensorSet holds the pre-allocated input and output tensors for one
// session. Tensors are reused across Run calls; the session serializes
// access through the embedder's mutex.
type tensorSet struct {
	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	output        *ort.Tensor[float32]
}

func newTensorSet(maxTokens, dimensions int) (*tensorSet, error) {
	ts := &tensorSet{}
	shape := ort.NewShape(1, int64(maxTokens))

	var err error
	if ts.inputIDs, err = ort.NewTensor(shape, make([]int64, maxTokens)); err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	if ts.attentionMask, err = ort.NewTensor(shape, make([]int64, maxTokens)); err != nil {
		ts.destroy()
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	if ts.tokenTypeIDs, err = ort.NewTensor(shape, make([]int64, maxTokens)); err != nil {
		ts.destroy()
		return nil, fmt.Errorf("token_type_ids tensor: %w", err)
	}
	if ts.output, err = ort.NewTensor(ort.NewShape(1, int64(dimensions)), make([]float32, dimensions)); err != nil {
		ts.destroy()
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	return ts, nil
}

func (ts *tensorSet) destroy() {
	for _, t := range []ort.ArbitraryTensor{ts.inputIDs, ts.attentionMask, ts.tokenTypeIDs, ts.output} {
		if t != nil {
			_ = t.Destroy()
		}
	}
	ts.inputIDs, ts.attentionMask, ts.tokenTypeIDs, ts.output = nil, nil, nil, nil
}

// ONNXEmbedder runs a local transformer model through ONNX Runtime.
// Requires CGO and the onnxruntime shared library at load time.
type ONNXEmbedder struct {
	session    *ort.AdvancedSession
	tensors    *tensorSet
	tokenizer  Tokenizer
	cache      *Cache
	dimensions int
	maxTokens  int

	mu sync.Mutex
}

// NewONNXEmbedder loads the model at modelPath. The runtime environment
// is initialized on first use; dimensions is the model's native output
// size, before any pad or truncate wrapper.
func NewONNXEmbedder(modelPath string, dimensions, maxTokens, cacheSize int) (*ONNXEmbedder, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", err)
	}

	tensors, err := newTensorSet(maxTokens, dimensions)
	if err != nil {
		return nil, err
	}
	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"output"},
		[]ort.ArbitraryTensor{tensors.inputIDs, tensors.attentionMask, tensors.tokenTypeIDs},
		[]ort.ArbitraryTensor{tensors.output},
		nil,
	)
	if err != nil {
		tensors.destroy()
		return nil, fmt.Errorf("create session for %s: %w", modelPath, err)
	}

	return &ONNXEmbedder{
		session:    session,
		tensors:    tensors,
		tokenizer:  &SimpleTokenizer{},
		cache:      NewCache(cacheSize),
		dimensions: dimensions,
		maxTokens:  maxTokens,
	}, nil
}

// Embed runs one inference pass, normalizing the output to unit L2 norm.
// Repeated texts come from the cache without touching the session.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}
	inputIDs, attentionMask, tokenTypeIDs := e.tokenizer.Tokenize(text, e.maxTokens)

	e.mu.Lock()
	copy(e.tensors.inputIDs.GetData(), inputIDs)
	copy(e.tensors.attentionMask.GetData(), attentionMask)
	copy(e.tensors.tokenTypeIDs.GetData(), tokenTypeIDs)
	if err := e.session.Run(); err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("inference: %w", err)
	}
	vec := append([]float32(nil), e.tensors.output.GetData()[:e.dimensions]...)
	e.mu.Unlock()

	normalizeL2(vec)
	e.cache.Set(text, vec)
	return vec, nil
}

// EmbedBatch embeds texts one at a time over the shared session.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the model's native embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the session, then its tensors.
func (e *ONNXEmbedder) Close() error {
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if e.tensors != nil {
		e.tensors.destroy()
		e.tensors = nil
	}
	return err
}

func normalizeL2(x []float32) {
	var sum float32
	for _, v := range x {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range x {
		x[i] *= inv
	}
}
