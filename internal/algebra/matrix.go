// Package algebra provides the dense feature-major matrix and the kernels
// every layer, loss and optimizer is expressed in.
//
// Rows index units (features), columns index batch elements. Storage is a
// contiguous row-major slice, so a row is a plain []float64 and the gonum
// floats primitives apply to it directly.
package algebra

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Matrix is a dense rows x cols container. It is never ragged.
type Matrix struct {
	rows int
	cols int
	data []float64
}

// Matrix satisfies gonum's read-only matrix interface.
var _ mat.Matrix = (*Matrix)(nil)

func alloc(rows, cols int) *Matrix {
	return &Matrix{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

// New returns a zero-filled rows x cols matrix.
func New(rows, cols int) (*Matrix, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmpty, rows, cols)
	}
	return alloc(rows, cols), nil
}

// FromRows copies a row-of-rows literal into a Matrix.
func FromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmpty
	}
	cols := len(rows[0])
	m := alloc(len(rows), cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrShapeMismatch, i, len(r), cols)
		}
		copy(m.Row(i), r)
	}
	return m, nil
}

// FromSlice wraps a row-major slice of length rows*cols. The slice is copied.
func FromSlice(rows, cols int, data []float64) (*Matrix, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmpty, rows, cols)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("%w: %d values for %dx%d", ErrShapeMismatch, len(data), rows, cols)
	}
	m := alloc(rows, cols)
	copy(m.data, data)
	return m, nil
}

// FromDense copies any gonum matrix.
func FromDense(d mat.Matrix) (*Matrix, error) {
	r, c := d.Dims()
	m, err := New(r, c)
	if err != nil {
		return nil, err
	}
	for i := 0; i < r; i++ {
		row := m.Row(i)
		for j := range row {
			row[j] = d.At(i, j)
		}
	}
	return m, nil
}

// ZerosLike returns a zero matrix with the shape of m.
func ZerosLike(m *Matrix) *Matrix {
	return alloc(m.rows, m.cols)
}

// OnesLike returns a matrix of ones with the shape of m.
func OnesLike(m *Matrix) *Matrix {
	o := alloc(m.rows, m.cols)
	for i := range o.data {
		o.data[i] = 1
	}
	return o
}

// Dims returns the number of rows and columns.
func (m *Matrix) Dims() (int, int) { return m.rows, m.cols }

// Rows returns the number of rows (units).
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of columns (batch elements).
func (m *Matrix) Cols() int { return m.cols }

// At returns element (i, j). It panics when out of range, as mat.Matrix requires.
func (m *Matrix) At(i, j int) float64 {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic(mat.ErrIndexOutOfRange)
	}
	return m.data[i*m.cols+j]
}

// Set assigns element (i, j). It panics when out of range.
func (m *Matrix) Set(i, j int, v float64) {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic(mat.ErrIndexOutOfRange)
	}
	m.data[i*m.cols+j] = v
}

// T returns a lazy gonum transpose view. Use Transpose for a materialized copy.
func (m *Matrix) T() mat.Matrix { return mat.Transpose{Matrix: m} }

// Row returns row i as a slice aliasing the matrix storage.
func (m *Matrix) Row(i int) []float64 {
	return m.data[i*m.cols : (i+1)*m.cols]
}

// Col copies column j into dst (allocated when nil or short) and returns it.
func (m *Matrix) Col(dst []float64, j int) []float64 {
	if cap(dst) < m.rows {
		dst = make([]float64, m.rows)
	}
	dst = dst[:m.rows]
	for i := 0; i < m.rows; i++ {
		dst[i] = m.data[i*m.cols+j]
	}
	return dst
}

// Flatten returns a row-major copy of the elements.
func (m *Matrix) Flatten() []float64 {
	out := make([]float64, len(m.data))
	copy(out, m.data)
	return out
}

// Raw returns the row-major backing slice. Writes are visible in m.
func (m *Matrix) Raw() []float64 { return m.data }

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	c := alloc(m.rows, m.cols)
	copy(c.data, m.data)
	return c
}

// Dense returns a gonum copy of m.
func (m *Matrix) Dense() *mat.Dense {
	return mat.NewDense(m.rows, m.cols, m.Flatten())
}

// ScaleInPlace multiplies every element by a.
func (m *Matrix) ScaleInPlace(a float64) {
	floats.Scale(a, m.data)
}

// SameShape reports whether a and b have identical dimensions.
func SameShape(a, b *Matrix) bool {
	return a.rows == b.rows && a.cols == b.cols
}

// Equal reports exact element-wise equality.
func Equal(a, b *Matrix) bool {
	return SameShape(a, b) && floats.Equal(a.data, b.data)
}

// EqualApprox reports element-wise equality within tol.
func EqualApprox(a, b *Matrix, tol float64) bool {
	return SameShape(a, b) && floats.EqualApprox(a.data, b.data, tol)
}

// String formats the matrix one row per line.
func (m *Matrix) String() string {
	var sb strings.Builder
	for i := 0; i < m.rows; i++ {
		fmt.Fprintf(&sb, "%v\n", m.Row(i))
	}
	return sb.String()
}

func shapeErr(op string, a, b *Matrix) error {
	return fmt.Errorf("%w: %s %dx%d and %dx%d", ErrShapeMismatch, op, a.rows, a.cols, b.rows, b.cols)
}
