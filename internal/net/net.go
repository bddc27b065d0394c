// Package net provides core neural network types.
//
// A Network owns an ordered list of layers, a loss and an optimizer. It runs
// the forward pass, propagates the loss gradient backward (fusing SoftMax
// with CrossEntropy), clips gradients by their global L2 norm and asks the
// optimizer to update every parametric layer.
package net

import (
	"fmt"
	"math"

	"github.com/FlavioCFOliveira/deepgo/internal/algebra"
	"github.com/FlavioCFOliveira/deepgo/internal/layer"
	"github.com/FlavioCFOliveira/deepgo/internal/loss"
	"github.com/FlavioCFOliveira/deepgo/internal/opt"
)

// Network is a collection of layers that can be forwarded and backwarded.
//
// The optimizer is held by reference. Its per-layer state is keyed by the
// ids this Network assigns, so one optimizer must not be shared between
// networks.
type Network struct {
	layers     []layer.Layer
	loss       loss.Loss
	opt        opt.Optimizer
	parametric []layer.Layer // index is the optimizer id
}

// New creates a network, checks that adjacent layer sizes agree where they
// are known, and initializes optimizer state for every parametric layer.
func New(layers []layer.Layer, l loss.Loss, optimizer opt.Optimizer) (*Network, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("%w: no layers", ErrInvalidConfig)
	}
	if l == nil || optimizer == nil {
		return nil, fmt.Errorf("%w: loss and optimizer are required", ErrInvalidConfig)
	}

	rows := -1
	for i, ly := range layers {
		next, err := ly.OutputRows(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: layer %d (%s): %w", ErrInvalidConfig, i, ly.Kind(), err)
		}
		rows = next
	}

	n := &Network{layers: layers, loss: l, opt: optimizer}
	for _, ly := range layers {
		if !ly.Kind().Parametric() {
			continue
		}
		id := len(n.parametric)
		if err := optimizer.Initialize(id, ly.Params()); err != nil {
			return nil, err
		}
		n.parametric = append(n.parametric, ly)
	}
	return n, nil
}

// Layers returns the layers in forward order.
func (n *Network) Layers() []layer.Layer { return n.layers }

// Loss returns the loss function.
func (n *Network) Loss() loss.Loss { return n.loss }

// Optimizer returns the optimizer.
func (n *Network) Optimizer() opt.Optimizer { return n.opt }

// Parametric returns the layers with learnable parameters; the index of each
// is its optimizer id.
func (n *Network) Parametric() []layer.Layer { return n.parametric }

// Forward performs a forward pass through all layers.
func (n *Network) Forward(x *algebra.Matrix) (*algebra.Matrix, error) {
	curr := x
	for i, l := range n.layers {
		out, err := l.Forward(curr)
		if err != nil {
			return nil, fmt.Errorf("forward layer %d: %w", i, err)
		}
		curr = out
	}
	return curr, nil
}

// fused reports whether the output gradient is taken as output - target.
func (n *Network) fused() bool {
	return n.layers[len(n.layers)-1].Kind() == layer.KindSoftMax &&
		n.loss.Kind() == loss.KindCrossEntropy
}

// Backward propagates the loss gradient of output against target through
// every layer, leaving parameter gradients in each parametric layer.
//
// When the last layer is SoftMax and the loss is CrossEntropy the gradient
// with respect to the SoftMax input is output - target, and the SoftMax
// layer itself is skipped.
func (n *Network) Backward(output, target *algebra.Matrix) error {
	start := len(n.layers) - 1
	var (
		grad *algebra.Matrix
		err  error
	)
	if n.fused() {
		grad, err = algebra.Sub(output, target)
		start--
	} else {
		grad, err = n.loss.Backward(output, target)
	}
	if err != nil {
		return fmt.Errorf("loss gradient: %w", err)
	}

	for i := start; i >= 0; i-- {
		grad, err = n.layers[i].Backward(grad)
		if err != nil {
			return fmt.Errorf("backward layer %d: %w", i, err)
		}
	}
	return nil
}

// Update applies one optimizer step to every parametric layer. Gradient
// shapes are checked for all layers before any parameter changes.
func (n *Network) Update(learningRate float64, batchSize int) error {
	if batchSize <= 0 {
		return fmt.Errorf("%w: batch size %d", ErrInvalidConfig, batchSize)
	}
	for id, l := range n.parametric {
		p := l.Params()
		if p.DW == nil || !algebra.SameShape(p.W, p.DW) || len(p.B) != len(p.DB) {
			return fmt.Errorf("update layer %d: %w: gradient does not match parameters", id, algebra.ErrShapeMismatch)
		}
	}
	for id, l := range n.parametric {
		if err := n.opt.Update(id, l.Params(), learningRate, batchSize); err != nil {
			return fmt.Errorf("update layer %d: %w", id, err)
		}
	}
	return nil
}

// GradientNorm returns the L2 norm of all parameter gradients taken as one
// vector.
func (n *Network) GradientNorm() float64 {
	var sum float64
	for _, l := range n.parametric {
		sum += l.Params().GradientSquaredNorm()
	}
	return math.Sqrt(sum)
}

// ClipGradients rescales every parameter gradient by threshold/norm when the
// global norm exceeds threshold. It returns the norm measured before
// clipping.
func (n *Network) ClipGradients(threshold float64) (float64, error) {
	if threshold <= 0 {
		return 0, fmt.Errorf("%w: clip threshold %v", ErrInvalidConfig, threshold)
	}
	norm := n.GradientNorm()
	if norm > threshold {
		s := threshold / norm
		for _, l := range n.parametric {
			l.Params().ScaleGradient(s)
		}
	}
	return norm, nil
}

// Evaluate runs a forward pass and returns the output and its loss against y.
func (n *Network) Evaluate(x, y *algebra.Matrix) (*algebra.Matrix, float64, error) {
	out, err := n.Forward(x)
	if err != nil {
		return nil, 0, err
	}
	l, err := n.loss.Compute(out, y)
	if err != nil {
		return nil, 0, err
	}
	return out, l, nil
}

// TrainStep runs forward, loss, backward, optional clipping and update on
// one batch and returns the batch output and loss. A clip of zero disables
// clipping. The batch size is x.Cols().
func (n *Network) TrainStep(x, y *algebra.Matrix, learningRate, clip float64) (*algebra.Matrix, float64, error) {
	out, l, err := n.Evaluate(x, y)
	if err != nil {
		return nil, 0, err
	}
	if err := n.Backward(out, y); err != nil {
		return nil, 0, err
	}
	if clip > 0 {
		if _, err := n.ClipGradients(clip); err != nil {
			return nil, 0, err
		}
	}
	if err := n.Update(learningRate, x.Cols()); err != nil {
		return nil, 0, err
	}
	return out, l, nil
}

type trainingToggler interface {
	SetTraining(bool)
}

// SetTraining switches layers with distinct training and inference
// behaviour (Dropout) into the given mode.
func (n *Network) SetTraining(training bool) {
	for _, l := range n.layers {
		if t, ok := l.(trainingToggler); ok {
			t.SetTraining(training)
		}
	}
}
