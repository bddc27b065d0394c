// Package deepgo is the public entry point to the training engine. It
// re-exports the types of the internal packages and wraps their
// constructors.
package deepgo

import (
	"math/rand"

	"github.com/FlavioCFOliveira/deepgo/internal/algebra"
	"github.com/FlavioCFOliveira/deepgo/internal/config"
	"github.com/FlavioCFOliveira/deepgo/internal/data"
	"github.com/FlavioCFOliveira/deepgo/internal/layer"
	"github.com/FlavioCFOliveira/deepgo/internal/loss"
	"github.com/FlavioCFOliveira/deepgo/internal/net"
	"github.com/FlavioCFOliveira/deepgo/internal/opt"
)

// Re-export common types and functions for easier access
type (
	Matrix    = algebra.Matrix
	Network   = net.Network
	Layer     = layer.Layer
	Params    = layer.Params
	Optimizer = opt.Optimizer
	Scheduler = opt.Scheduler
	Loss      = loss.Loss
	Callback  = net.Callback
	FitConfig = net.FitConfig
	Dataset   = net.Dataset
	History   = net.History
	Config    = config.Config
	Examples  = data.Dataset
)

// Errors
var (
	ErrShapeMismatch      = algebra.ErrShapeMismatch
	ErrNoForward          = layer.ErrNoForward
	ErrUninitializedState = opt.ErrUninitializedState
	ErrInvalidConfig      = net.ErrInvalidConfig
	ErrInvalidLayer       = layer.ErrInvalidConfig
	ErrInvalidOptimizer   = opt.ErrInvalidConfig
)

// Matrices
func NewMatrix(rows, cols int) (*Matrix, error) { return algebra.New(rows, cols) }

func FromRows(rows [][]float64) (*Matrix, error) { return algebra.FromRows(rows) }

// Model creation
func NewNetwork(layers []Layer, l Loss, o Optimizer) (*Network, error) {
	return net.New(layers, l, o)
}

// Layers
func Affine(in, out int, rng *rand.Rand) (Layer, error) {
	a, err := layer.NewAffine(in, out, rng)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func Sigmoid() Layer { return layer.NewSigmoid() }

func Tanh() Layer { return layer.NewTanh() }

func ReLU() Layer { return layer.NewReLU() }

func LeakyReLU(alpha float64) Layer { return layer.NewLeakyReLU(alpha) }

func GELU() Layer { return layer.NewGELU() }

func SoftMax() Layer { return layer.NewSoftMax() }

func NormalSampling(rng *rand.Rand) Layer { return layer.NewNormalSampling(rng, false) }

// ExactNormalSampling backpropagates the chain-rule log-variance gradient.
func ExactNormalSampling(rng *rand.Rand) Layer { return layer.NewNormalSampling(rng, true) }

func Dropout(keep float64, rng *rand.Rand) (Layer, error) {
	d, err := layer.NewDropout(keep, rng)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Losses
var (
	CrossEntropy       Loss = loss.CrossEntropy{}
	BinaryCrossEntropy Loss = loss.BinaryCrossEntropy{}
	MeanSquaredError   Loss = loss.MeanSquaredError{}
)

// Optimizers
func Adam() Optimizer { return opt.NewAdam() }

func SGD() Optimizer { return opt.NewSGD() }

// Schedules
func ConstantRate(rate float64) Scheduler { return opt.Constant{Rate: rate} }

func StepDecay(initial, gamma float64, stepSize int) Scheduler {
	return opt.NewStepDecay(initial, gamma, stepSize)
}

func ExponentialDecay(initial, gamma float64) Scheduler {
	return opt.ExponentialDecay{Initial: initial, Gamma: gamma}
}

func TriangularCyclic(base, max float64, stepSize int) Scheduler {
	return opt.NewTriangularCyclic(base, max, stepSize)
}

func Triangular2Cyclic(base, max float64, stepUp, stepDown int) Scheduler {
	return opt.NewTriangular2Cyclic(base, max, stepUp, stepDown)
}

// Callbacks
func Logger(interval int) net.Logger {
	return net.Logger{Interval: interval}
}

func EarlyStopping(patience int, minDelta float64) *net.EarlyStopping {
	return net.NewEarlyStopping(patience, minDelta)
}

func CSVLogger(filename string) *net.CSVLogger {
	return net.NewCSVLogger(filename, false)
}

// Data
func LoadDataset(path string) (*Examples, error) { return data.LoadFile(path) }

// Configuration
func LoadConfig(path string) (*Config, error) { return config.Load(path) }

func Preset(name string) (*Config, error) { return config.Preset(name) }
