// Package opt provides optimization algorithms.
//
// Optimizers keep per-layer state in a slice indexed by the small integer id
// the Network assigns to each parametric layer at construction. Initialize
// must be called once per id before Update.
package opt

import (
	"errors"
	"fmt"
	"math"

	"github.com/FlavioCFOliveira/deepgo/internal/algebra"
	"github.com/FlavioCFOliveira/deepgo/internal/layer"
	"gonum.org/v1/gonum/floats"
)

var (
	// ErrUninitializedState is returned by Update for an id never passed to Initialize.
	ErrUninitializedState = errors.New("opt: optimizer state not initialized for layer")

	// ErrInvalidConfig is returned for bad hyperparameters, a non-positive
	// batch size, or a duplicate Initialize.
	ErrInvalidConfig = errors.New("opt: invalid configuration")
)

// Optimizer updates the parameters of one parametric layer at a time.
type Optimizer interface {
	// Initialize registers the layer with the given id.
	Initialize(id int, p *layer.Params) error

	// Update applies one step to p using its current DW and DB.
	// Gradients are divided by batchSize.
	Update(id int, p *layer.Params, learningRate float64, batchSize int) error
}

func checkUpdate(batchSize int, p *layer.Params) error {
	if batchSize <= 0 {
		return fmt.Errorf("%w: batch size %d", ErrInvalidConfig, batchSize)
	}
	if !algebra.SameShape(p.W, p.DW) || len(p.B) != len(p.DB) {
		return fmt.Errorf("%w: gradient does not match parameters", algebra.ErrShapeMismatch)
	}
	return nil
}

// SGD (Stochastic Gradient Descent) optimizer. It holds no moment state,
// only the set of registered ids.
type SGD struct {
	registered []bool
}

// NewSGD creates an SGD optimizer.
func NewSGD() *SGD {
	return &SGD{}
}

// Initialize registers id.
func (s *SGD) Initialize(id int, p *layer.Params) error {
	if id < 0 {
		return fmt.Errorf("%w: layer id %d", ErrInvalidConfig, id)
	}
	if id < len(s.registered) && s.registered[id] {
		return fmt.Errorf("%w: layer %d already registered", ErrInvalidConfig, id)
	}
	for len(s.registered) <= id {
		s.registered = append(s.registered, false)
	}
	s.registered[id] = true
	return nil
}

// Update computes W -= lr * DW / batchSize and b -= lr * DB / batchSize.
func (s *SGD) Update(id int, p *layer.Params, learningRate float64, batchSize int) error {
	if id < 0 || id >= len(s.registered) || !s.registered[id] {
		return fmt.Errorf("%w: id %d", ErrUninitializedState, id)
	}
	if err := checkUpdate(batchSize, p); err != nil {
		return err
	}
	step := -learningRate / float64(batchSize)
	floats.AddScaled(p.W.Raw(), step, p.DW.Raw())
	floats.AddScaled(p.B, step, p.DB)
	return nil
}

// Adam optimizer with bias-corrected first and second moments.
//
// The step counter t is shared by every layer the optimizer manages and is
// incremented once per Update call.
type Adam struct {
	Beta1   float64 // Exponential decay rate for first moment
	Beta2   float64 // Exponential decay rate for second moment
	Epsilon float64 // Small constant for numerical stability

	t      int
	states []*moments
}

type moments struct {
	mW *algebra.Matrix
	mB []float64
	vW *algebra.Matrix
	vB []float64
}

// NewAdam creates a new Adam optimizer with default values.
func NewAdam() *Adam {
	return &Adam{
		Beta1:   0.9,
		Beta2:   0.999,
		Epsilon: 1e-8,
	}
}

// NewAdamWith creates an Adam optimizer with explicit hyperparameters.
func NewAdamWith(beta1, beta2, epsilon float64) (*Adam, error) {
	if beta1 < 0 || beta1 >= 1 || beta2 < 0 || beta2 >= 1 || epsilon <= 0 {
		return nil, fmt.Errorf("%w: adam beta1=%v beta2=%v epsilon=%v", ErrInvalidConfig, beta1, beta2, epsilon)
	}
	return &Adam{Beta1: beta1, Beta2: beta2, Epsilon: epsilon}, nil
}

// Step returns the number of Update calls so far.
func (a *Adam) Step() int { return a.t }

// Initialize allocates zeroed moment state shaped like p.
func (a *Adam) Initialize(id int, p *layer.Params) error {
	if id < 0 {
		return fmt.Errorf("%w: layer id %d", ErrInvalidConfig, id)
	}
	if id < len(a.states) && a.states[id] != nil {
		return fmt.Errorf("%w: layer %d already registered", ErrInvalidConfig, id)
	}
	for len(a.states) <= id {
		a.states = append(a.states, nil)
	}
	a.states[id] = &moments{
		mW: algebra.ZerosLike(p.W),
		mB: make([]float64, len(p.B)),
		vW: algebra.ZerosLike(p.W),
		vB: make([]float64, len(p.B)),
	}
	return nil
}

// Update applies one Adam step to W and b in place.
func (a *Adam) Update(id int, p *layer.Params, learningRate float64, batchSize int) error {
	if id < 0 || id >= len(a.states) || a.states[id] == nil {
		return fmt.Errorf("%w: id %d", ErrUninitializedState, id)
	}
	if err := checkUpdate(batchSize, p); err != nil {
		return err
	}
	st := a.states[id]
	if !algebra.SameShape(st.mW, p.W) || len(st.mB) != len(p.B) {
		return fmt.Errorf("%w: layer %d parameters changed shape since Initialize", algebra.ErrShapeMismatch, id)
	}

	a.t++
	bc1 := 1 - math.Pow(a.Beta1, float64(a.t))
	bc2 := 1 - math.Pow(a.Beta2, float64(a.t))
	scale := 1 / float64(batchSize)

	a.apply(p.B, p.DB, st.mB, st.vB, learningRate, scale, bc1, bc2)
	a.apply(p.W.Raw(), p.DW.Raw(), st.mW.Raw(), st.vW.Raw(), learningRate, scale, bc1, bc2)
	return nil
}

func (a *Adam) apply(param, grad, m, v []float64, lr, scale, bc1, bc2 float64) {
	for i := range param {
		g := grad[i] * scale
		m[i] = a.Beta1*m[i] + (1-a.Beta1)*g
		v[i] = a.Beta2*v[i] + (1-a.Beta2)*g*g

		mHat := m[i] / bc1
		vHat := v[i] / bc2
		param[i] -= lr * mHat / (math.Sqrt(vHat) + a.Epsilon)
	}
}
