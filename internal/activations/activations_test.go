// Package activations provides unit tests for activation functions.
package activations

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const tol = 1e-12

// numericDerivative is a central difference used to check analytic derivatives.
func numericDerivative(f func(float64) float64, x float64) float64 {
	const h = 1e-6
	return (f(x+h) - f(x-h)) / (2 * h)
}

// TestReLU tests ReLU activation and derivative.
func TestReLU(t *testing.T) {
	relu := ReLU{}

	tests := []struct {
		input      float64
		expected   float64
		derivative float64
	}{
		{-1.0, 0.0, 0.0},
		{0.0, 0.0, 0.0}, // derivative at zero is 0 (x must be > 0)
		{1.0, 1.0, 1.0},
		{2.5, 2.5, 1.0},
	}

	for _, tt := range tests {
		if got := relu.Activate(tt.input); math.Abs(got-tt.expected) > tol {
			t.Errorf("ReLU(%v) = %v, want %v", tt.input, got, tt.expected)
		}
		if got := relu.Derivative(tt.input); math.Abs(got-tt.derivative) > tol {
			t.Errorf("ReLU.Derivative(%v) = %v, want %v", tt.input, got, tt.derivative)
		}
	}
}

// TestSigmoid tests Sigmoid activation.
func TestSigmoid(t *testing.T) {
	sigmoid := Sigmoid{}

	assert.Equal(t, 0.5, sigmoid.Activate(0))
	assert.Equal(t, 0.25, sigmoid.Derivative(0))
	assert.InDelta(t, 1/(1+math.Exp(2)), sigmoid.Activate(-2), tol)
	assert.Equal(t, 0.0, sigmoid.Activate(math.Inf(-1)))
	assert.Equal(t, 1.0, sigmoid.Activate(math.Inf(1)))
}

// TestLeakyReLU tests the inclusive threshold at zero.
func TestLeakyReLU(t *testing.T) {
	l := NewLeakyReLU(0.05)

	tests := []struct {
		input      float64
		expected   float64
		derivative float64
	}{
		{-2.0, -0.1, 0.05},
		{0.0, 0.0, 1.0},
		{3.0, 3.0, 1.0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.expected, l.Activate(tt.input), tol, "Activate(%v)", tt.input)
		assert.Equal(t, tt.derivative, l.Derivative(tt.input), "Derivative(%v)", tt.input)
	}
}

// TestTanh tests Tanh activation.
func TestTanh(t *testing.T) {
	th := Tanh{}
	assert.Equal(t, 0.0, th.Activate(0))
	assert.Equal(t, 1.0, th.Derivative(0))
	assert.InDelta(t, math.Tanh(0.7), th.Activate(0.7), tol)
}

// TestGELU checks known values of the tanh approximation.
func TestGELU(t *testing.T) {
	g := GELU{}

	assert.Equal(t, 0.0, g.Activate(0))
	assert.Equal(t, 0.5, g.Derivative(0))
	// Reference values of the tanh approximation.
	assert.InDelta(t, 0.8411919906082768, g.Activate(1), 1e-7)
	assert.InDelta(t, -0.15880800939172324, g.Activate(-1), 1e-7)
}

// TestDerivativesMatchNumeric compares every analytic derivative with a finite difference.
func TestDerivativesMatchNumeric(t *testing.T) {
	acts := map[string]Activation{
		"sigmoid": Sigmoid{},
		"tanh":    Tanh{},
		"gelu":    GELU{},
		"leaky":   NewLeakyReLU(0.1),
		"relu":    ReLU{},
	}
	// Points away from the ReLU kinks.
	points := []float64{-2.3, -0.7, 0.4, 1.1, 2.9}

	for name, act := range acts {
		for _, x := range points {
			want := numericDerivative(act.Activate, x)
			assert.InDelta(t, want, act.Derivative(x), 1e-6, "%s'(%v)", name, x)
		}
	}
}

// TestSoftmax tests column softmax normalization and stability.
func TestSoftmax(t *testing.T) {
	col := Softmax([]float64{1, 2, 3})
	sum := 0.0
	for _, v := range col {
		assert.True(t, v >= 0 && v <= 1)
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
	assert.True(t, col[2] > col[1] && col[1] > col[0])

	// Large inputs must not overflow.
	big := Softmax([]float64{1000, 1000})
	assert.InDelta(t, 0.5, big[0], 1e-12)
	assert.InDelta(t, 0.5, big[1], 1e-12)
}
