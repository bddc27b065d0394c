// Package activations provides scalar activation functions and their derivatives.
package activations

import "math"

// Activation is an activation function with derivative.
type Activation interface {
	// Activate computes f(x)
	Activate(x float64) float64

	// Derivative computes f'(x)
	Derivative(x float64) float64
}

// ReLU activation function.
type ReLU struct{}

// Activate computes max(0, x)
func (r ReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// Derivative returns 1 if x > 0, else 0
func (r ReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

// Sigmoid activation function.
type Sigmoid struct{}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Activate computes sigmoid(x)
func (s Sigmoid) Activate(x float64) float64 {
	return sigmoid(x)
}

// Derivative computes sigmoid(x) * (1 - sigmoid(x))
func (s Sigmoid) Derivative(x float64) float64 {
	sigma := sigmoid(x)
	return sigma * (1 - sigma)
}

// LeakyReLU keeps a small slope for negative inputs.
// The threshold is inclusive on the non-negative side for both Activate and Derivative.
type LeakyReLU struct {
	Alpha float64 // Slope for x < 0
}

// NewLeakyReLU creates a LeakyReLU with the given alpha value.
func NewLeakyReLU(alpha float64) *LeakyReLU {
	return &LeakyReLU{Alpha: alpha}
}

// Activate computes x if x >= 0, else alpha*x
func (l *LeakyReLU) Activate(x float64) float64 {
	if x >= 0 {
		return x
	}
	return l.Alpha * x
}

// Derivative returns 1 if x >= 0, else alpha
func (l *LeakyReLU) Derivative(x float64) float64 {
	if x >= 0 {
		return 1
	}
	return l.Alpha
}

// Tanh activation function.
type Tanh struct{}

// Activate computes tanh(x)
func (t Tanh) Activate(x float64) float64 {
	return math.Tanh(x)
}

// Derivative computes 1 - tanh(x)^2
func (t Tanh) Derivative(x float64) float64 {
	tanhX := math.Tanh(x)
	return 1 - tanhX*tanhX
}

const (
	sqrt2OverPi = 0.7978845608028654 // sqrt(2/pi)
	geluCoeff   = 0.044715
)

// GELU uses the tanh approximation:
// 0.5 * x * (1 + tanh(sqrt(2/pi) * (x + 0.044715 x^3)))
type GELU struct{}

// Activate computes the tanh-approximated GELU.
func (g GELU) Activate(x float64) float64 {
	u := sqrt2OverPi * (x + geluCoeff*x*x*x)
	return 0.5 * x * (1 + math.Tanh(u))
}

// Derivative is the exact derivative of the tanh approximation.
func (g GELU) Derivative(x float64) float64 {
	u := sqrt2OverPi * (x + geluCoeff*x*x*x)
	th := math.Tanh(u)
	du := sqrt2OverPi * (1 + 3*geluCoeff*x*x)
	return 0.5*(1+th) + 0.5*x*(1-th*th)*du
}

// Softmax overwrites x with exp(x - max) / sum(exp(x - max)) and returns it.
// It works on one column of a feature-major batch.
func Softmax(x []float64) []float64 {
	maxVal := x[0]
	for i := 1; i < len(x); i++ {
		if x[i] > maxVal {
			maxVal = x[i]
		}
	}

	sum := 0.0
	for i := range x {
		x[i] = math.Exp(x[i] - maxVal)
		sum += x[i]
	}

	for i := range x {
		x[i] /= sum
	}
	return x
}
