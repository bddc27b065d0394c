package net

import (
	"context"
	"fmt"

	"github.com/FlavioCFOliveira/deepgo/internal/algebra"
	"github.com/FlavioCFOliveira/deepgo/internal/opt"
)

// DefaultLearningRate is used by Fit when no schedule is configured.
const DefaultLearningRate = 0.001

// Dataset yields feature-major training batches.
type Dataset interface {
	NumBatches(size int) int
	Batch(size, it int) (x, y *algebra.Matrix, err error)
}

// FitConfig configures a training run.
type FitConfig struct {
	Epochs    int
	BatchSize int

	// Schedule gives the learning rate per epoch. Nil means a constant
	// DefaultLearningRate.
	Schedule opt.Scheduler

	// Clip is the global gradient norm threshold; zero disables clipping.
	Clip float64

	// Reconstruct trains against the clean input batch instead of the labels.
	Reconstruct bool

	// Transform, when set, replaces the input batch fed to the network
	// (noise injection for denoising). The target is not transformed.
	Transform func(x *algebra.Matrix, epoch, batch int) *algebra.Matrix

	// Classification enables accuracy metrics.
	Classification bool

	// Eval is evaluated after every epoch when set.
	Eval Dataset
}

func (c FitConfig) validate() error {
	if c.Epochs <= 0 {
		return fmt.Errorf("%w: epochs %d", ErrInvalidConfig, c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.Clip < 0 {
		return fmt.Errorf("%w: clip threshold %v", ErrInvalidConfig, c.Clip)
	}
	return nil
}

// History records the statistics of every completed epoch.
type History struct {
	Epochs []EpochStats
}

// Last returns the statistics of the final epoch, or false when none ran.
func (h *History) Last() (EpochStats, bool) {
	if len(h.Epochs) == 0 {
		return EpochStats{}, false
	}
	return h.Epochs[len(h.Epochs)-1], true
}

// Fit trains the network on train for cfg.Epochs epochs of whole batches.
// The context is checked before every batch; on cancellation Fit returns
// the history so far with the context error.
func (n *Network) Fit(ctx context.Context, train Dataset, cfg FitConfig, callbacks ...Callback) (*History, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	numBatches := train.NumBatches(cfg.BatchSize)
	if numBatches == 0 {
		return nil, fmt.Errorf("%w: dataset holds less than one batch of %d", ErrInvalidConfig, cfg.BatchSize)
	}
	schedule := cfg.Schedule
	if schedule == nil {
		schedule = opt.Constant{Rate: DefaultLearningRate}
	}

	for _, cb := range callbacks {
		cb.OnTrainBegin(n)
	}
	defer func() {
		for _, cb := range callbacks {
			cb.OnTrainEnd(n)
		}
	}()

	hist := &History{}
	iteration := 0
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		for _, cb := range callbacks {
			cb.OnEpochBegin(epoch, n)
		}
		stats := EpochStats{
			Epoch:          epoch,
			LearningRate:   schedule.LearningRate(epoch),
			Classification: cfg.Classification,
		}

		n.SetTraining(true)
		for it := 0; it < numBatches; it++ {
			if err := ctx.Err(); err != nil {
				return hist, err
			}
			for _, cb := range callbacks {
				cb.OnBatchBegin(it, n)
			}

			x, y, err := train.Batch(cfg.BatchSize, it)
			if err != nil {
				return hist, err
			}
			target := y
			if cfg.Reconstruct {
				target = x
			}
			in := x
			if cfg.Transform != nil {
				in = cfg.Transform(x, epoch, it)
			}

			out, l, err := n.TrainStep(in, target, stats.LearningRate, cfg.Clip)
			if err != nil {
				return hist, fmt.Errorf("epoch %d batch %d: %w", epoch, it, err)
			}
			stats.Loss += l / float64(numBatches)
			if cfg.Classification {
				acc, err := Accuracy(out, target)
				if err != nil {
					return hist, err
				}
				stats.Accuracy += acc / float64(numBatches)
			}

			bs := BatchStats{Epoch: epoch, Batch: it, Iteration: iteration, Loss: l, Input: in, Target: target, Output: out}
			for _, cb := range callbacks {
				cb.OnBatchEnd(bs, n)
			}
			iteration++
		}

		if cfg.Eval != nil {
			if err := n.evaluate(ctx, cfg, &stats); err != nil {
				return hist, err
			}
		}

		hist.Epochs = append(hist.Epochs, stats)
		stop := false
		for _, cb := range callbacks {
			cb.OnEpochEnd(stats, n)
			if s, ok := cb.(Stopper); ok && s.ShouldStop() {
				stop = true
			}
		}
		if stop {
			break
		}
	}
	return hist, nil
}

// evaluate runs the evaluation set in inference mode and fills the Eval
// fields of stats.
func (n *Network) evaluate(ctx context.Context, cfg FitConfig, stats *EpochStats) error {
	numBatches := cfg.Eval.NumBatches(cfg.BatchSize)
	if numBatches == 0 {
		return nil
	}
	n.SetTraining(false)
	defer n.SetTraining(true)

	for it := 0; it < numBatches; it++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		x, y, err := cfg.Eval.Batch(cfg.BatchSize, it)
		if err != nil {
			return err
		}
		target := y
		if cfg.Reconstruct {
			target = x
		}
		out, l, err := n.Evaluate(x, target)
		if err != nil {
			return fmt.Errorf("evaluation batch %d: %w", it, err)
		}
		stats.EvalLoss += l / float64(numBatches)
		if cfg.Classification {
			acc, err := Accuracy(out, target)
			if err != nil {
				return err
			}
			stats.EvalAccuracy += acc / float64(numBatches)
		}
	}
	stats.Evaluated = true
	return nil
}
