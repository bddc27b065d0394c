package net

import (
	"fmt"

	"github.com/FlavioCFOliveira/deepgo/internal/algebra"
)

// Predictions returns the arg-max row of every column of a.
func Predictions(a *algebra.Matrix) []int {
	return algebra.ArgMaxColumns(a)
}

// Accuracy returns the fraction of columns whose arg-max row in a is set to
// 1 in the one-hot targets y.
func Accuracy(a, y *algebra.Matrix) (float64, error) {
	if !algebra.SameShape(a, y) {
		return 0, fmt.Errorf("accuracy: %w: %dx%d vs %dx%d", algebra.ErrShapeMismatch, a.Rows(), a.Cols(), y.Rows(), y.Cols())
	}
	right := 0
	for j, i := range Predictions(a) {
		if y.At(i, j) == 1 {
			right++
		}
	}
	return float64(right) / float64(a.Cols()), nil
}
