// Package vectorindex implements the exact nearest-neighbour index over FAQ
// question embeddings together with the on-disk encodings of the index and
// of the embedding matrix it is built from.
package vectorindex

import (
	"container/heap"
	"errors"
	"fmt"
	"sort"
)

// Metric identifies the distance function of an index.
type Metric uint8

// MetricL2 is squared Euclidean distance.
const MetricL2 Metric = 1

// ErrInvalidK is returned when a search asks for a non-positive number of neighbours.
var ErrInvalidK = errors.New("vectorindex: k must be positive")

// Neighbor is one search hit: the corpus position and its squared L2 distance.
type Neighbor struct {
	Position int
	Distance float32
}

// Flat compares a query against every stored vector. It is immutable after
// Build, so concurrent searches need no locking.
type Flat struct {
	model string
	dim   int
	count int
	data  []float32
}

// Build constructs a flat L2 index over m. The matrix data is copied.
func Build(m Matrix, model string) (*Flat, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	data := make([]float32, len(m.Data))
	copy(data, m.Data)
	return &Flat{model: model, dim: m.Dim, count: m.Rows, data: data}, nil
}

// Len returns the number of indexed vectors.
func (f *Flat) Len() int { return f.count }

// Dim returns the vector dimension.
func (f *Flat) Dim() int { return f.dim }

// Model returns the embedding model identifier recorded at build time.
func (f *Flat) Model() string { return f.model }

// Metric returns the distance metric, always MetricL2.
func (f *Flat) Metric() Metric { return MetricL2 }

// Vectors returns a copy of the indexed vectors.
func (f *Flat) Vectors() Matrix {
	data := make([]float32, len(f.data))
	copy(data, f.data)
	return Matrix{Rows: f.count, Dim: f.dim, Data: data}
}

// Search returns up to k nearest neighbours of query, closest first. Equal
// distances are ordered by ascending position so results are reproducible.
func (f *Flat) Search(query []float32, k int) ([]Neighbor, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if f.count == 0 {
		return []Neighbor{}, nil
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query has %d values, index has %d", ErrDimensionMismatch, len(query), f.dim)
	}
	if k > f.count {
		k = f.count
	}

	h := make(worstFirst, 0, k)
	for pos := 0; pos < f.count; pos++ {
		candidate := Neighbor{Position: pos, Distance: squaredL2(query, f.data[pos*f.dim:(pos+1)*f.dim])}
		if len(h) < k {
			heap.Push(&h, candidate)
			continue
		}
		if closer(candidate, h[0]) {
			h[0] = candidate
			heap.Fix(&h, 0)
		}
	}

	out := []Neighbor(h)
	sort.Slice(out, func(i, j int) bool { return closer(out[i], out[j]) })
	return out, nil
}

func closer(a, b Neighbor) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.Position < b.Position
}

func squaredL2(a, b []float32) float32 {
	var sum float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return float32(sum)
}

// worstFirst is a max-heap: the root is the farthest neighbour kept so far.
type worstFirst []Neighbor

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return closer(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) { *h = append(*h, x.(Neighbor)) }

func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
