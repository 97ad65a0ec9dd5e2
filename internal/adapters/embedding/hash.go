package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/convergehq/converge/internal/domain/model"
)

const defaultDimension = 256

// HashEmbedder is a deterministic, offline embedder. It hashes lowercase
// tokens into signed buckets and unit-normalizes the result, so texts
// sharing vocabulary land close together in cosine space. It stands in
// for a real model in tests and in deployments without an API key.
type HashEmbedder struct {
	dim int
}

// HashOption configures a HashEmbedder.
type HashOption func(*HashEmbedder)

// WithDimension sets the vector length.
func WithDimension(dim int) HashOption {
	return func(h *HashEmbedder) {
		if dim > 0 {
			h.dim = dim
		}
	}
}

// NewHashEmbedder creates a hash embedder with the given options.
func NewHashEmbedder(opts ...HashOption) *HashEmbedder {
	h := &HashEmbedder{dim: defaultDimension}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Embed hashes each token into a bucket; a second hash bit picks the
// sign so unrelated vocabularies cancel out instead of piling up.
func (h *HashEmbedder) Embed(ctx context.Context, text string) (model.EmbeddingVector, error) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil, ErrEmptyText
	}

	vec := make(model.EmbeddingVector, h.dim)
	for _, tok := range tokens {
		hasher := fnv.New64a()
		_, _ = hasher.Write([]byte(tok))
		sum := hasher.Sum64()

		bucket := int(sum % uint64(h.dim))
		if sum&(1<<63) != 0 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// Dimension returns the vector length.
func (h *HashEmbedder) Dimension() int {
	return h.dim
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			out = append(out, f)
		}
	}
	return out
}
