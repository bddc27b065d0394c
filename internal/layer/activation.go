package layer

import (
	"fmt"

	"github.com/FlavioCFOliveira/deepgo/internal/activations"
	"github.com/FlavioCFOliveira/deepgo/internal/algebra"
)

// Pointwise applies a scalar activation to every element.
// Backward returns grad ∘ f'(input).
type Pointwise struct {
	state
	act  activations.Activation
	kind Kind
}

// NewSigmoid returns a Sigmoid layer.
func NewSigmoid() *Pointwise { return &Pointwise{act: activations.Sigmoid{}, kind: KindSigmoid} }

// NewTanh returns a Tanh layer.
func NewTanh() *Pointwise { return &Pointwise{act: activations.Tanh{}, kind: KindTanh} }

// NewReLU returns a ReLU layer.
func NewReLU() *Pointwise { return &Pointwise{act: activations.ReLU{}, kind: KindReLU} }

// NewLeakyReLU returns a LeakyReLU layer with slope alpha below zero.
func NewLeakyReLU(alpha float64) *Pointwise {
	return &Pointwise{act: activations.NewLeakyReLU(alpha), kind: KindLeakyReLU}
}

// NewGELU returns a GELU layer (tanh approximation).
func NewGELU() *Pointwise { return &Pointwise{act: activations.GELU{}, kind: KindGELU} }

// Forward applies the activation element-wise.
func (p *Pointwise) Forward(x *algebra.Matrix) (*algebra.Matrix, error) {
	p.input = x
	return algebra.Apply(x, p.act.Activate), nil
}

// Backward multiplies grad by the derivative at the remembered input.
func (p *Pointwise) Backward(grad *algebra.Matrix) (*algebra.Matrix, error) {
	if err := p.requireInput(p.kind); err != nil {
		return nil, err
	}
	delta, err := algebra.Hadamard(grad, algebra.Apply(p.input, p.act.Derivative))
	if err != nil {
		return nil, fmt.Errorf("%s backward: %w", p.kind, err)
	}
	p.delta = delta
	return delta, nil
}

// Kind returns the activation kind.
func (p *Pointwise) Kind() Kind { return p.kind }

// Params returns nil.
func (p *Pointwise) Params() *Params { return nil }

// OutputRows returns in.
func (p *Pointwise) OutputRows(in int) (int, error) { return in, nil }

// Activation returns the scalar function used by the layer.
func (p *Pointwise) Activation() activations.Activation { return p.act }

// SoftMax normalizes each column (the units axis) to a probability distribution.
//
// Its Backward uses only the diagonal of the softmax Jacobian,
// s*(1-s), and ignores the off-diagonal terms. It is an approximation.
// Networks ending in SoftMax with CrossEntropy loss never call it: they
// use the fused prediction-target gradient instead.
type SoftMax struct {
	state
}

// NewSoftMax returns a SoftMax layer.
func NewSoftMax() *SoftMax { return &SoftMax{} }

// Forward computes a numerically stable softmax down every column.
func (s *SoftMax) Forward(x *algebra.Matrix) (*algebra.Matrix, error) {
	s.input = x
	return algebra.ApplyColumns(x, func(col []float64) { activations.Softmax(col) }), nil
}

// Backward returns grad ∘ softmax(input) ∘ (1 - softmax(input)).
func (s *SoftMax) Backward(grad *algebra.Matrix) (*algebra.Matrix, error) {
	if err := s.requireInput(KindSoftMax); err != nil {
		return nil, err
	}
	deriv := algebra.ApplyColumns(s.input, func(col []float64) {
		activations.Softmax(col)
		for i, v := range col {
			col[i] = v * (1 - v)
		}
	})
	delta, err := algebra.Hadamard(grad, deriv)
	if err != nil {
		return nil, fmt.Errorf("softmax backward: %w", err)
	}
	s.delta = delta
	return delta, nil
}

// Kind returns KindSoftMax.
func (s *SoftMax) Kind() Kind { return KindSoftMax }

// Params returns nil.
func (s *SoftMax) Params() *Params { return nil }

// OutputRows returns in.
func (s *SoftMax) OutputRows(in int) (int, error) { return in, nil }
