package layer

import (
	"fmt"
	"math/rand"

	"github.com/FlavioCFOliveira/deepgo/internal/algebra"
)

// Dropout implements dropout regularization.
// During training, each element is kept with probability keep and zeroed
// otherwise. Survivors are not rescaled by 1/keep.
// During inference, passes inputs through unchanged.
type Dropout struct {
	state

	// Probability of keeping an element
	keep float64

	// Training mode
	training bool

	// Mask from the last Forward, reapplied by Backward
	mask *algebra.Matrix

	rng *rand.Rand
}

// NewDropout creates a new dropout layer with keep probability keep in [0, 1].
// A nil rng uses a clock-seeded generator.
func NewDropout(keep float64, rng *rand.Rand) (*Dropout, error) {
	if keep < 0 || keep > 1 {
		return nil, fmt.Errorf("%w: dropout keep probability %v outside [0, 1]", ErrInvalidConfig, keep)
	}
	return &Dropout{
		keep:     keep,
		training: true,
		rng:      newRand(rng),
	}, nil
}

// SetTraining sets whether the layer should be in training or inference mode.
func (d *Dropout) SetTraining(training bool) {
	d.training = training
}

// IsTraining returns whether the layer is in training mode.
func (d *Dropout) IsTraining() bool {
	return d.training
}

// Forward draws a fresh mask and zeroes the dropped elements.
func (d *Dropout) Forward(x *algebra.Matrix) (*algebra.Matrix, error) {
	d.input = x
	if !d.training {
		d.mask = algebra.OnesLike(x)
		return x.Clone(), nil
	}

	mask := algebra.ZerosLike(x)
	m := mask.Raw()
	for i := range m {
		if d.rng.Float64() < d.keep {
			m[i] = 1
		}
	}
	d.mask = mask
	return algebra.Hadamard(x, mask)
}

// Backward applies the stored mask to grad.
func (d *Dropout) Backward(grad *algebra.Matrix) (*algebra.Matrix, error) {
	if err := d.requireInput(KindDropout); err != nil {
		return nil, err
	}
	delta, err := algebra.Hadamard(grad, d.mask)
	if err != nil {
		return nil, fmt.Errorf("dropout backward: %w", err)
	}
	d.delta = delta
	return delta, nil
}

// Kind returns KindDropout.
func (d *Dropout) Kind() Kind { return KindDropout }

// Params returns nil.
func (d *Dropout) Params() *Params { return nil }

// OutputRows returns in.
func (d *Dropout) OutputRows(in int) (int, error) { return in, nil }

// KeepProbability returns the keep probability.
func (d *Dropout) KeepProbability() float64 { return d.keep }

// Mask returns the mask drawn by the last Forward, or nil.
func (d *Dropout) Mask() *algebra.Matrix { return d.mask }
