package layer

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/FlavioCFOliveira/deepgo/internal/algebra"
)

// NormalSampling is the reparameterization layer of a variational autoencoder.
//
// The input has 2n rows: rows [0, n) are mu and rows [n, 2n) are log_var.
// Forward returns mu + exp(0.5*log_var)*eps with eps ~ N(0, 1) drawn per element.
//
// By default the log_var gradient is 0.5*exp(log_var)*(exp(0.5*log_var)*g)^2,
// which does not use the sampled eps. With exact set, Backward uses the chain
// rule through the retained noise instead: g*eps*0.5*exp(0.5*log_var).
// The mu gradient is g in both modes.
type NormalSampling struct {
	state
	rng    *rand.Rand
	exact  bool
	logVar *algebra.Matrix
	eps    *algebra.Matrix
}

// NewNormalSampling creates the layer. A nil rng uses a clock-seeded generator.
func NewNormalSampling(rng *rand.Rand, exact bool) *NormalSampling {
	return &NormalSampling{rng: newRand(rng), exact: exact}
}

// Forward samples one latent value per output element.
func (s *NormalSampling) Forward(x *algebra.Matrix) (*algebra.Matrix, error) {
	if x.Rows()%2 != 0 {
		return nil, fmt.Errorf("%w: normal sampling needs an even row count, got %d", algebra.ErrShapeMismatch, x.Rows())
	}
	n, cols := x.Rows()/2, x.Cols()

	out, _ := algebra.New(n, cols)
	logVar, _ := algebra.New(n, cols)
	eps, _ := algebra.New(n, cols)
	for i := 0; i < n; i++ {
		mu, lv := x.Row(i), x.Row(i+n)
		copy(logVar.Row(i), lv)
		o, e := out.Row(i), eps.Row(i)
		for j := 0; j < cols; j++ {
			e[j] = s.rng.NormFloat64()
			o[j] = mu[j] + math.Exp(0.5*lv[j])*e[j]
		}
	}

	s.input = x
	s.logVar = logVar
	s.eps = eps
	return out, nil
}

// Backward returns a gradient with twice the rows of grad: the mu half
// followed by the log_var half.
func (s *NormalSampling) Backward(grad *algebra.Matrix) (*algebra.Matrix, error) {
	if err := s.requireInput(KindNormalSampling); err != nil {
		return nil, err
	}
	if !algebra.SameShape(grad, s.logVar) {
		return nil, fmt.Errorf("%w: normal sampling gradient %dx%d, want %dx%d",
			algebra.ErrShapeMismatch, grad.Rows(), grad.Cols(), s.logVar.Rows(), s.logVar.Cols())
	}
	n := grad.Rows()

	delta, _ := algebra.New(2*n, grad.Cols())
	for i := 0; i < n; i++ {
		g := grad.Row(i)
		copy(delta.Row(i), g)

		lv, e, d := s.logVar.Row(i), s.eps.Row(i), delta.Row(i+n)
		for j := range g {
			std := math.Exp(0.5 * lv[j])
			if s.exact {
				d[j] = g[j] * e[j] * 0.5 * std
			} else {
				sg := std * g[j]
				d[j] = 0.5 * math.Exp(lv[j]) * sg * sg
			}
		}
	}
	s.delta = delta
	return delta, nil
}

// Kind returns KindNormalSampling.
func (s *NormalSampling) Kind() Kind { return KindNormalSampling }

// Params returns nil.
func (s *NormalSampling) Params() *Params { return nil }

// OutputRows halves in.
func (s *NormalSampling) OutputRows(in int) (int, error) {
	if in < 0 {
		return in, nil
	}
	if in%2 != 0 {
		return 0, fmt.Errorf("%w: normal sampling needs an even row count, got %d", algebra.ErrShapeMismatch, in)
	}
	return in / 2, nil
}

// Exact reports whether Backward uses the retained noise.
func (s *NormalSampling) Exact() bool { return s.exact }

// Noise returns the eps sampled by the last Forward, or nil.
func (s *NormalSampling) Noise() *algebra.Matrix { return s.eps }
