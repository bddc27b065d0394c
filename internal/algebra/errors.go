package algebra

import "errors"

var (
	// ErrShapeMismatch indicates operand dimensions violate a kernel contract,
	// e.g. MatMul where a.Cols() != b.Rows(), or Sub on different shapes.
	ErrShapeMismatch = errors.New("algebra: shape mismatch")

	// ErrEmpty is returned when a matrix would have zero rows or columns.
	ErrEmpty = errors.New("algebra: empty matrix")
)
