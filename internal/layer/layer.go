// Package layer provides the differentiable layers a Network is composed of.
//
// Every layer consumes and produces feature-major batches: rows are units,
// columns are batch elements. Forward remembers its input; Backward uses the
// input remembered by the most recent Forward. Calling Backward before any
// Forward returns ErrNoForward.
package layer

import (
	"math/rand"
	"time"

	"github.com/FlavioCFOliveira/deepgo/internal/algebra"
	"gonum.org/v1/gonum/floats"
)

// Layer is a neural network layer.
type Layer interface {
	// Forward transforms a batch and remembers it as the layer input.
	Forward(x *algebra.Matrix) (*algebra.Matrix, error)

	// Backward takes dLoss/dOutput and returns dLoss/dInput.
	Backward(grad *algebra.Matrix) (*algebra.Matrix, error)

	// Kind identifies the variant.
	Kind() Kind

	// Params returns the learnable parameters, or nil when the layer has none.
	Params() *Params

	// OutputRows returns the output row count for an input with in rows.
	// A negative in means the size is not known yet; layers that do not
	// fix their own size return it unchanged.
	OutputRows(in int) (int, error)
}

// Kind enumerates the layer variants.
type Kind int

const (
	KindAffine Kind = iota
	KindSigmoid
	KindTanh
	KindReLU
	KindLeakyReLU
	KindSoftMax
	KindGELU
	KindNormalSampling
	KindDropout
)

var kindNames = [...]string{
	KindAffine:         "Affine",
	KindSigmoid:        "Sigmoid",
	KindTanh:           "Tanh",
	KindReLU:           "ReLU",
	KindLeakyReLU:      "LeakyReLU",
	KindSoftMax:        "SoftMax",
	KindGELU:           "GELU",
	KindNormalSampling: "NormalSampling",
	KindDropout:        "Dropout",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// Parametric reports whether layers of this kind own learnable parameters.
func (k Kind) Parametric() bool {
	return k == KindAffine
}

// Params holds a parametric layer's weights, biases and their gradients.
// Shapes: W and DW are out x in, B and DB have length out.
type Params struct {
	W  *algebra.Matrix
	B  []float64
	DW *algebra.Matrix
	DB []float64
}

// Gradient returns DW (row-major) followed by DB in a new slice.
func (p *Params) Gradient() []float64 {
	g := make([]float64, 0, len(p.DW.Raw())+len(p.DB))
	g = append(g, p.DW.Raw()...)
	return append(g, p.DB...)
}

// GradientSquaredNorm returns the sum of squares of every gradient element.
func (p *Params) GradientSquaredNorm() float64 {
	dw := p.DW.Raw()
	return floats.Dot(dw, dw) + floats.Dot(p.DB, p.DB)
}

// ScaleGradient multiplies DW and DB by s in place.
func (p *Params) ScaleGradient(s float64) {
	p.DW.ScaleInPlace(s)
	floats.Scale(s, p.DB)
}

// state is the per-call memory shared by every layer.
type state struct {
	input *algebra.Matrix
	delta *algebra.Matrix
}

// Input returns the batch remembered by the last Forward, or nil.
func (s *state) Input() *algebra.Matrix { return s.input }

// Delta returns the gradient produced by the last Backward, or nil.
func (s *state) Delta() *algebra.Matrix { return s.delta }

func (s *state) requireInput(k Kind) error {
	if s.input == nil {
		return &noForwardError{kind: k}
	}
	return nil
}

// newRand returns rng, or a clock-seeded generator when rng is nil.
func newRand(rng *rand.Rand) *rand.Rand {
	if rng != nil {
		return rng
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
