package layer

import (
	"fmt"
	"math/rand"

	"github.com/FlavioCFOliveira/deepgo/internal/algebra"
)

// Affine is a fully connected layer: output = W·input + b, with b broadcast
// across the batch columns.
type Affine struct {
	state
	params  Params
	inSize  int
	outSize int
}

// NewAffine creates an in -> out layer with weights and biases drawn
// uniformly from [-0.5, 0.5). A nil rng uses a clock-seeded generator.
func NewAffine(in, out int, rng *rand.Rand) (*Affine, error) {
	if in <= 0 || out <= 0 {
		return nil, fmt.Errorf("%w: affine %d -> %d", ErrInvalidConfig, in, out)
	}
	rng = newRand(rng)

	w, _ := algebra.New(out, in)
	for i := 0; i < out; i++ {
		row := w.Row(i)
		for j := range row {
			row[j] = rng.Float64() - 0.5
		}
	}
	b := make([]float64, out)
	for i := range b {
		b[i] = rng.Float64() - 0.5
	}
	dw, _ := algebra.New(out, in)

	return &Affine{
		params: Params{
			W:  w,
			B:  b,
			DW: dw,
			DB: make([]float64, out),
		},
		inSize:  in,
		outSize: out,
	}, nil
}

// Forward computes W·x + b.
func (a *Affine) Forward(x *algebra.Matrix) (*algebra.Matrix, error) {
	wx, err := algebra.MatMul(a.params.W, x)
	if err != nil {
		return nil, fmt.Errorf("affine forward: %w", err)
	}
	out, err := algebra.AddColumn(wx, a.params.B)
	if err != nil {
		return nil, fmt.Errorf("affine forward: %w", err)
	}
	a.input = x
	return out, nil
}

// Backward stores DW = grad·inputᵀ and DB = rowSums(grad), and returns Wᵀ·grad.
func (a *Affine) Backward(grad *algebra.Matrix) (*algebra.Matrix, error) {
	if err := a.requireInput(KindAffine); err != nil {
		return nil, err
	}
	dw, err := algebra.MatMul(grad, algebra.Transpose(a.input))
	if err != nil {
		return nil, fmt.Errorf("affine backward: %w", err)
	}
	delta, err := algebra.MatMul(algebra.Transpose(a.params.W), grad)
	if err != nil {
		return nil, fmt.Errorf("affine backward: %w", err)
	}

	a.params.DW = dw
	a.params.DB = algebra.RowSums(grad)
	a.delta = delta
	return delta, nil
}

// Kind returns KindAffine.
func (a *Affine) Kind() Kind { return KindAffine }

// Params returns the layer's weights, biases and gradients.
func (a *Affine) Params() *Params { return &a.params }

// OutputRows checks in against the layer input size.
func (a *Affine) OutputRows(in int) (int, error) {
	if in >= 0 && in != a.inSize {
		return 0, fmt.Errorf("%w: affine expects %d input rows, got %d", algebra.ErrShapeMismatch, a.inSize, in)
	}
	return a.outSize, nil
}

// InSize returns the input size of the layer.
func (a *Affine) InSize() int { return a.inSize }

// OutSize returns the output size of the layer.
func (a *Affine) OutSize() int { return a.outSize }

// SetWeights replaces W with a copy of w, which must be out x in.
func (a *Affine) SetWeights(w *algebra.Matrix) error {
	if w.Rows() != a.outSize || w.Cols() != a.inSize {
		return fmt.Errorf("%w: weights %dx%d, want %dx%d", algebra.ErrShapeMismatch, w.Rows(), w.Cols(), a.outSize, a.inSize)
	}
	a.params.W = w.Clone()
	return nil
}

// SetBias replaces b with a copy of bias, which must have length out.
func (a *Affine) SetBias(bias []float64) error {
	if len(bias) != a.outSize {
		return fmt.Errorf("%w: bias length %d, want %d", algebra.ErrShapeMismatch, len(bias), a.outSize)
	}
	copy(a.params.B, bias)
	return nil
}
