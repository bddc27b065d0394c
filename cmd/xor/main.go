// Command xor trains a two-layer network on the XOR truth table.
package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/FlavioCFOliveira/deepgo/internal/algebra"
	"github.com/FlavioCFOliveira/deepgo/internal/layer"
	"github.com/FlavioCFOliveira/deepgo/internal/loss"
	"github.com/FlavioCFOliveira/deepgo/internal/net"
	"github.com/FlavioCFOliveira/deepgo/internal/opt"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(logger, 5000); err != nil {
		logger.Error("xor failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, epochs int) error {
	// 2 inputs -> 3 hidden -> 1 output. A single-layer perceptron cannot
	// separate XOR.
	rng := rand.New(rand.NewSource(42))
	l1, err := layer.NewAffine(2, 3, rng)
	if err != nil {
		return err
	}
	l2, err := layer.NewAffine(3, 1, rng)
	if err != nil {
		return err
	}
	network, err := net.New(
		[]layer.Layer{l1, layer.NewTanh(), l2, layer.NewSigmoid()},
		loss.BinaryCrossEntropy{},
		opt.NewSGD(),
	)
	if err != nil {
		return err
	}

	// One column per example.
	x, _ := algebra.FromRows([][]float64{
		{0, 0, 1, 1},
		{0, 1, 0, 1},
	})
	y, _ := algebra.FromRows([][]float64{{0, 1, 1, 0}})

	for epoch := 0; epoch < epochs; epoch++ {
		_, l, err := network.TrainStep(x, y, 2.0, 0)
		if err != nil {
			return err
		}
		if epoch%500 == 0 {
			logger.Info("training", "epoch", epoch, "loss", l)
		}
	}

	pred, err := network.Forward(x)
	if err != nil {
		return err
	}
	for j := 0; j < x.Cols(); j++ {
		fmt.Printf("Input: [%v %v], Predicted: %.4f, Target: %v\n",
			x.At(0, j), x.At(1, j), pred.At(0, j), y.At(0, j))
	}
	return nil
}
