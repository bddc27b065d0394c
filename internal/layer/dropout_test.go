package layer

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/FlavioCFOliveira/deepgo/internal/algebra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func onesMatrix(t *testing.T, rows, cols int) *algebra.Matrix {
	t.Helper()
	m, err := algebra.New(rows, cols)
	require.NoError(t, err)
	return algebra.OnesLike(m)
}

func TestDropoutForwardTraining(t *testing.T) {
	// Test that dropout zeros out elements during training
	dropout, err := NewDropout(0.5, rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	output, err := dropout.Forward(onesMatrix(t, 10, 10))
	require.NoError(t, err)

	// Count non-zero outputs; survivors are not rescaled
	nonZero := 0
	for _, v := range output.Raw() {
		if v != 0 {
			assert.Equal(t, 1.0, v)
			nonZero++
		}
	}
	if nonZero < 30 || nonZero > 70 {
		t.Errorf("Expected ~50%% non-zero outputs, got %d/100", nonZero)
	}
}

func TestDropoutKeepAllIsIdentity(t *testing.T) {
	dropout, err := NewDropout(1.0, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	x, err := algebra.FromRows([][]float64{{1, -2, 3}, {0.5, 7, -0.25}})
	require.NoError(t, err)

	out, err := dropout.Forward(x)
	require.NoError(t, err)
	assert.True(t, algebra.Equal(x, out))

	g, err := algebra.FromRows([][]float64{{9, 8, 7}, {6, 5, 4}})
	require.NoError(t, err)
	delta, err := dropout.Backward(g)
	require.NoError(t, err)
	assert.True(t, algebra.Equal(g, delta))
}

func TestDropoutForwardInference(t *testing.T) {
	// Test that dropout passes inputs through unchanged during inference
	dropout, err := NewDropout(0.1, nil)
	require.NoError(t, err)
	dropout.SetTraining(false)
	assert.False(t, dropout.IsTraining())

	x, err := algebra.FromRows([][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	out, err := dropout.Forward(x)
	require.NoError(t, err)
	assert.True(t, algebra.Equal(x, out))
}

func TestDropoutBackwardReusesMask(t *testing.T) {
	dropout, err := NewDropout(0.5, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	_, err = dropout.Forward(onesMatrix(t, 6, 4))
	require.NoError(t, err)
	mask := dropout.Mask().Clone()

	grad := onesMatrix(t, 6, 4)
	grad.ScaleInPlace(3)
	delta, err := dropout.Backward(grad)
	require.NoError(t, err)
	for i, m := range mask.Raw() {
		assert.Equal(t, 3*m, delta.Raw()[i])
	}

	// A new forward draws a new mask.
	_, err = dropout.Forward(onesMatrix(t, 6, 4))
	require.NoError(t, err)
	assert.False(t, algebra.Equal(mask, dropout.Mask()), "mask should be redrawn")

	_, err = dropout.Backward(onesMatrix(t, 2, 2))
	assert.True(t, errors.Is(err, algebra.ErrShapeMismatch))
}

func TestDropoutInvalidProbability(t *testing.T) {
	for _, p := range []float64{-0.1, 1.5} {
		_, err := NewDropout(p, nil)
		assert.True(t, errors.Is(err, ErrInvalidConfig), "p=%v", p)
	}
	d, err := NewDropout(0, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, d.KeepProbability())
}
