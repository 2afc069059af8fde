package vectorindex

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrDimensionMismatch is returned when a vector does not match the expected dimension.
	ErrDimensionMismatch = errors.New("vectorindex: dimension mismatch")
	// ErrMalformedMatrix is returned when an encoded embedding matrix cannot be decoded.
	ErrMalformedMatrix = errors.New("vectorindex: malformed embedding matrix")
)

// Matrix is a dense row-major N×D block of float32 embeddings.
// Row i corresponds to corpus position i.
type Matrix struct {
	Rows int
	Dim  int
	Data []float32
}

// FromRows packs the given vectors into a Matrix. When dim is zero the
// dimension is taken from the first row.
func FromRows(dim int, rows [][]float32) (Matrix, error) {
	if dim < 0 {
		return Matrix{}, fmt.Errorf("%w: negative dimension %d", ErrDimensionMismatch, dim)
	}
	if dim == 0 && len(rows) > 0 {
		dim = len(rows[0])
	}
	data := make([]float32, 0, len(rows)*dim)
	for i, row := range rows {
		if len(row) != dim {
			return Matrix{}, fmt.Errorf("%w: row %d has %d values, want %d", ErrDimensionMismatch, i, len(row), dim)
		}
		data = append(data, row...)
	}
	return Matrix{Rows: len(rows), Dim: dim, Data: data}, nil
}

// Row returns a view of row i. The slice aliases the matrix data.
func (m Matrix) Row(i int) []float32 {
	start := i * m.Dim
	return m.Data[start : start+m.Dim : start+m.Dim]
}

// Validate checks that the backing slice matches the declared shape.
func (m Matrix) Validate() error {
	if m.Rows < 0 || m.Dim < 0 {
		return fmt.Errorf("%w: negative shape (%d, %d)", ErrMalformedMatrix, m.Rows, m.Dim)
	}
	if len(m.Data) != m.Rows*m.Dim {
		return fmt.Errorf("%w: shape (%d, %d) holds %d values", ErrMalformedMatrix, m.Rows, m.Dim, len(m.Data))
	}
	return nil
}

// Equal reports whether both matrices have the same shape and bit-identical values.
func (m Matrix) Equal(other Matrix) bool {
	if m.Rows != other.Rows || m.Dim != other.Dim || len(m.Data) != len(other.Data) {
		return false
	}
	for i := range m.Data {
		if math.Float32bits(m.Data[i]) != math.Float32bits(other.Data[i]) {
			return false
		}
	}
	return true
}
