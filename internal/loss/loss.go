// Package loss provides the scalar objectives a Network is trained against.
//
// Predictions and targets are feature-major batches of identical shape;
// the batch size is the column count.
package loss

import (
	"fmt"
	"math"

	"github.com/FlavioCFOliveira/deepgo/internal/algebra"
)

// Loss is a loss function with derivative.
type Loss interface {
	// Compute returns the scalar loss of pred against target.
	Compute(pred, target *algebra.Matrix) (float64, error)

	// Backward returns dLoss/dPred, shaped like pred.
	Backward(pred, target *algebra.Matrix) (*algebra.Matrix, error)

	// Kind identifies the variant.
	Kind() Kind
}

// Kind enumerates the loss variants.
type Kind int

const (
	KindCrossEntropy Kind = iota
	KindBinaryCrossEntropy
	KindMeanSquaredError
)

func (k Kind) String() string {
	switch k {
	case KindCrossEntropy:
		return "CrossEntropy"
	case KindBinaryCrossEntropy:
		return "BinaryCrossEntropy"
	case KindMeanSquaredError:
		return "MeanSquaredError"
	}
	return "Unknown"
}

func checkShapes(name string, pred, target *algebra.Matrix) error {
	if !algebra.SameShape(pred, target) {
		return fmt.Errorf("%s: %w: prediction %dx%d, target %dx%d", name, algebra.ErrShapeMismatch,
			pred.Rows(), pred.Cols(), target.Rows(), target.Cols())
	}
	return nil
}

// zip applies f to each (pred, target) element pair into a new matrix.
func zip(pred, target *algebra.Matrix, f func(a, y float64) float64) *algebra.Matrix {
	out := algebra.ZerosLike(pred)
	a, y, o := pred.Raw(), target.Raw(), out.Raw()
	for i := range o {
		o[i] = f(a[i], y[i])
	}
	return out
}

// CrossEntropy loss for one-hot classification targets.
//
// Compute sums the two-term binary log loss over every class and averages
// over the batch:
//
//	-1/m * sum(y*log(max(a, eps)) + (1-y)*log(max(1-a, eps)))
//
// This is not the single-term categorical reduction -sum(y*log(a)).
type CrossEntropy struct{}

const (
	ceComputeEps  = 1e-6
	ceBackwardEps = 1e-9
)

// Compute returns the summed per-class log loss averaged over the batch.
func (CrossEntropy) Compute(pred, target *algebra.Matrix) (float64, error) {
	if err := checkShapes("cross entropy", pred, target); err != nil {
		return 0, err
	}
	a, y := pred.Raw(), target.Raw()
	var sum float64
	for i := range a {
		sum -= y[i]*math.Log(math.Max(a[i], ceComputeEps)) +
			(1-y[i])*math.Log(math.Max(1-a[i], ceComputeEps))
	}
	return sum / float64(pred.Cols()), nil
}

// Backward returns -1/(a+eps) where the target is 1 and 1/(1-a+eps) elsewhere.
func (CrossEntropy) Backward(pred, target *algebra.Matrix) (*algebra.Matrix, error) {
	if err := checkShapes("cross entropy", pred, target); err != nil {
		return nil, err
	}
	return zip(pred, target, func(a, y float64) float64 {
		if y == 1 {
			return -1 / (a + ceBackwardEps)
		}
		return 1 / (1 - a + ceBackwardEps)
	}), nil
}

// Kind returns KindCrossEntropy.
func (CrossEntropy) Kind() Kind { return KindCrossEntropy }

// BinaryCrossEntropy is the two-term log loss with eps-stabilized logs.
type BinaryCrossEntropy struct{}

const bceEps = 1e-8

// Compute returns -1/m * sum(y*log(a+eps) + (1-y)*log(1-a+eps)).
func (BinaryCrossEntropy) Compute(pred, target *algebra.Matrix) (float64, error) {
	if err := checkShapes("binary cross entropy", pred, target); err != nil {
		return 0, err
	}
	a, y := pred.Raw(), target.Raw()
	var sum float64
	for i := range a {
		sum -= y[i]*math.Log(a[i]+bceEps) + (1-y[i])*math.Log(1-a[i]+bceEps)
	}
	return sum / float64(pred.Cols()), nil
}

// Backward returns (a-y) / ((a+eps)(1-a+eps)).
func (BinaryCrossEntropy) Backward(pred, target *algebra.Matrix) (*algebra.Matrix, error) {
	if err := checkShapes("binary cross entropy", pred, target); err != nil {
		return nil, err
	}
	return zip(pred, target, func(a, y float64) float64 {
		return (a - y) / ((a + bceEps) * (1 - a + bceEps))
	}), nil
}

// Kind returns KindBinaryCrossEntropy.
func (BinaryCrossEntropy) Kind() Kind { return KindBinaryCrossEntropy }

// MeanSquaredError is sum((a-y)^2) / (2m).
type MeanSquaredError struct{}

// Compute returns sum((a-y)^2) / (2m).
func (MeanSquaredError) Compute(pred, target *algebra.Matrix) (float64, error) {
	if err := checkShapes("mse", pred, target); err != nil {
		return 0, err
	}
	a, y := pred.Raw(), target.Raw()
	var sum float64
	for i := range a {
		diff := a[i] - y[i]
		sum += diff * diff
	}
	return sum / (2 * float64(pred.Cols())), nil
}

// Backward returns a - y.
func (MeanSquaredError) Backward(pred, target *algebra.Matrix) (*algebra.Matrix, error) {
	if err := checkShapes("mse", pred, target); err != nil {
		return nil, err
	}
	return algebra.Sub(pred, target)
}

// Kind returns KindMeanSquaredError.
func (MeanSquaredError) Kind() Kind { return KindMeanSquaredError }
