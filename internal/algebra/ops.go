package algebra

import (
	"fmt"

	"github.com/FlavioCFOliveira/deepgo/internal/parallel"
	"gonum.org/v1/gonum/floats"
)

// cfg drives the data-parallel loops below. Every parallel loop writes a
// disjoint row or column, so results do not depend on scheduling.
var cfg = parallel.DefaultConfig()

// SetParallel replaces the parallel configuration used by the kernels.
// It must not be called while kernels are running.
func SetParallel(c parallel.Config) { cfg = c }

// Transpose returns a new cols x rows matrix.
func Transpose(m *Matrix) *Matrix {
	t := alloc(m.cols, m.rows)
	parallel.For(t.rows, func(j int) {
		row := t.Row(j)
		for i := range row {
			row[i] = m.data[i*m.cols+j]
		}
	}, cfg)
	return t
}

// MatMul returns a·b. Requires a.Cols() == b.Rows().
// Row i of the result accumulates a[i][k]*b[k] in k order, one goroutine per row chunk.
func MatMul(a, b *Matrix) (*Matrix, error) {
	if a.cols != b.rows {
		return nil, shapeErr("matmul", a, b)
	}
	c := alloc(a.rows, b.cols)
	parallel.For(a.rows, func(i int) {
		dst := c.Row(i)
		src := a.Row(i)
		for k, aik := range src {
			floats.AddScaled(dst, aik, b.Row(k))
		}
	}, cfg)
	return c, nil
}

// AddColumn adds v[i] to every element of row i. Requires len(v) == m.Rows().
func AddColumn(m *Matrix, v []float64) (*Matrix, error) {
	if len(v) != m.rows {
		return nil, fmt.Errorf("%w: broadcast %d-vector over %dx%d", ErrShapeMismatch, len(v), m.rows, m.cols)
	}
	out := m.Clone()
	parallel.For(out.rows, func(i int) {
		floats.AddConst(v[i], out.Row(i))
	}, cfg)
	return out, nil
}

// Sub returns a - b element-wise.
func Sub(a, b *Matrix) (*Matrix, error) {
	if !SameShape(a, b) {
		return nil, shapeErr("sub", a, b)
	}
	out := alloc(a.rows, a.cols)
	parallel.For(a.rows, func(i int) {
		floats.SubTo(out.Row(i), a.Row(i), b.Row(i))
	}, cfg)
	return out, nil
}

// Hadamard returns the element-wise product a ∘ b.
func Hadamard(a, b *Matrix) (*Matrix, error) {
	if !SameShape(a, b) {
		return nil, shapeErr("hadamard", a, b)
	}
	out := alloc(a.rows, a.cols)
	parallel.For(a.rows, func(i int) {
		floats.MulTo(out.Row(i), a.Row(i), b.Row(i))
	}, cfg)
	return out, nil
}

// RowSums returns one sum per row.
func RowSums(m *Matrix) []float64 {
	v := make([]float64, m.rows)
	parallel.For(m.rows, func(i int) {
		v[i] = floats.Sum(m.Row(i))
	}, cfg)
	return v
}

// Scale returns a·m.
func Scale(m *Matrix, a float64) *Matrix {
	out := m.Clone()
	out.ScaleInPlace(a)
	return out
}

// ScaleVec returns a·v.
func ScaleVec(v []float64, a float64) []float64 {
	out := make([]float64, len(v))
	floats.ScaleTo(out, a, v)
	return out
}

// Apply returns f applied to every element of m.
func Apply(m *Matrix, f func(float64) float64) *Matrix {
	out := alloc(m.rows, m.cols)
	parallel.For(m.rows, func(i int) {
		src, dst := m.Row(i), out.Row(i)
		for j, x := range src {
			dst[j] = f(x)
		}
	}, cfg)
	return out
}

// ApplyColumns returns a matrix whose column j is f applied in place to a
// copy of column j of m. Columns are processed in parallel.
func ApplyColumns(m *Matrix, f func(col []float64)) *Matrix {
	out := alloc(m.rows, m.cols)
	parallel.For(m.cols, func(j int) {
		col := m.Col(nil, j)
		f(col)
		for i, v := range col {
			out.data[i*m.cols+j] = v
		}
	}, cfg)
	return out
}

// ArgMaxColumns returns, per column, the row index of the largest element.
// Ties resolve to the lowest row.
func ArgMaxColumns(m *Matrix) []int {
	idx := make([]int, m.cols)
	parallel.For(m.cols, func(j int) {
		best := 0
		bestVal := m.data[j]
		for i := 1; i < m.rows; i++ {
			if v := m.data[i*m.cols+j]; v > bestVal {
				best, bestVal = i, v
			}
		}
		idx[j] = best
	}, cfg)
	return idx
}
