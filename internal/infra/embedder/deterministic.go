package embedder

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/yanqian/faq-rag/internal/domain/faq"
)

const defaultDeterministicDim = 256

// DeterministicEmbedder avoids network calls by hashing word tokens into a
// fixed-size, unit-length vector. Texts sharing words land close together.
type DeterministicEmbedder struct {
	dim int
}

// NewDeterministicEmbedder constructs the embedder.
func NewDeterministicEmbedder(dim int) *DeterministicEmbedder {
	if dim <= 0 {
		dim = defaultDeterministicDim
	}
	return &DeterministicEmbedder{dim: dim}
}

// Model implements faq.Embedder.
func (e *DeterministicEmbedder) Model() string {
	return fmt.Sprintf("deterministic-%d", e.dim)
}

// Embed converts each text into a normalized bag-of-words vector.
func (e *DeterministicEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.embed(text)
	}
	return vectors, nil
}

func (e *DeterministicEmbedder) embed(text string) []float32 {
	acc := make([]float64, e.dim)
	for _, token := range tokenize(text) {
		hash := fnv.New64a()
		_, _ = hash.Write([]byte(token))
		sum := hash.Sum64()
		sign := 1.0
		if sum>>63 == 1 {
			sign = -1
		}
		acc[sum%uint64(e.dim)] += sign
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	vector := make([]float32, e.dim)
	if norm == 0 {
		return vector
	}
	norm = math.Sqrt(norm)
	for j, v := range acc {
		vector[j] = float32(v / norm)
	}
	return vector
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

var _ faq.Embedder = (*DeterministicEmbedder)(nil)
