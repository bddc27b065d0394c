package net

import (
	"log/slog"
	"math"

	"github.com/FlavioCFOliveira/deepgo/internal/algebra"
	"github.com/FlavioCFOliveira/deepgo/internal/imgio"
)

// EpochStats summarizes one epoch. Loss and Accuracy are means over the
// training batches; the Eval fields are set when an evaluation set is given.
type EpochStats struct {
	Epoch        int
	LearningRate float64
	Loss         float64
	Accuracy     float64
	EvalLoss     float64
	EvalAccuracy float64

	Evaluated      bool
	Classification bool
}

// BatchStats describes one training step. Input is the batch fed to the
// network, after any transform.
type BatchStats struct {
	Epoch     int
	Batch     int
	Iteration int
	Loss      float64

	Input  *algebra.Matrix
	Target *algebra.Matrix
	Output *algebra.Matrix
}

// Callback defines the interface for training callbacks.
type Callback interface {
	OnTrainBegin(n *Network)
	OnTrainEnd(n *Network)
	OnEpochBegin(epoch int, n *Network)
	OnEpochEnd(stats EpochStats, n *Network)
	OnBatchBegin(batch int, n *Network)
	OnBatchEnd(stats BatchStats, n *Network)
}

// Stopper is implemented by callbacks that can end training early. Fit
// checks it after every epoch.
type Stopper interface {
	ShouldStop() bool
}

// BaseCallback provides default empty implementations for Callback.
type BaseCallback struct{}

func (BaseCallback) OnTrainBegin(n *Network)                 {}
func (BaseCallback) OnTrainEnd(n *Network)                   {}
func (BaseCallback) OnEpochBegin(epoch int, n *Network)      {}
func (BaseCallback) OnEpochEnd(stats EpochStats, n *Network) {}
func (BaseCallback) OnBatchBegin(batch int, n *Network)      {}
func (BaseCallback) OnBatchEnd(stats BatchStats, n *Network) {}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

// EarlyStopping stops training when the monitored loss has stopped improving.
type EarlyStopping struct {
	BaseCallback
	Patience  int
	Threshold float64
	Monitor   string // "loss" (default) or "eval_loss"
	Log       *slog.Logger

	bestLoss     float64
	numBadEpochs int
	Stopped      bool
}

func NewEarlyStopping(patience int, threshold float64) *EarlyStopping {
	return &EarlyStopping{
		Patience:  patience,
		Threshold: threshold,
		bestLoss:  math.MaxFloat64,
	}
}

func (c *EarlyStopping) OnEpochEnd(stats EpochStats, n *Network) {
	loss := stats.Loss
	if c.Monitor == "eval_loss" && stats.Evaluated {
		loss = stats.EvalLoss
	}
	if loss < c.bestLoss-c.Threshold {
		c.bestLoss = loss
		c.numBadEpochs = 0
	} else {
		c.numBadEpochs++
	}

	if c.numBadEpochs >= c.Patience {
		loggerOrDefault(c.Log).Info("early stopping",
			"epoch", stats.Epoch, "loss", loss, "patience", c.Patience)
		c.Stopped = true
	}
}

// ShouldStop reports whether patience ran out.
func (c *EarlyStopping) ShouldStop() bool { return c.Stopped }

// Logger logs training progress as structured records.
type Logger struct {
	BaseCallback
	Log           *slog.Logger
	Interval      int // epochs between records; 0 logs every epoch
	BatchInterval int // batches between debug records; 0 disables them
}

func (c Logger) OnEpochEnd(stats EpochStats, n *Network) {
	if c.Interval > 1 && stats.Epoch%c.Interval != 0 {
		return
	}
	attrs := []any{"epoch", stats.Epoch, "lr", stats.LearningRate, "loss", stats.Loss}
	if stats.Classification {
		attrs = append(attrs, "accuracy", stats.Accuracy)
	}
	if stats.Evaluated {
		attrs = append(attrs, "eval_loss", stats.EvalLoss)
		if stats.Classification {
			attrs = append(attrs, "eval_accuracy", stats.EvalAccuracy)
		}
	}
	loggerOrDefault(c.Log).Info("epoch done", attrs...)
}

func (c Logger) OnBatchEnd(stats BatchStats, n *Network) {
	if c.BatchInterval <= 0 || stats.Batch%c.BatchInterval != 0 {
		return
	}
	loggerOrDefault(c.Log).Debug("batch done",
		"epoch", stats.Epoch, "batch", stats.Batch, "loss", stats.Loss)
}

// SampleWriter saves the batch input and output as images every Every
// batches of an epoch.
type SampleWriter struct {
	BaseCallback
	Dir        string
	Height     int
	Width      int
	Every      int
	InputName  string
	OutputName string
	Log        *slog.Logger
}

func (c *SampleWriter) OnBatchEnd(stats BatchStats, n *Network) {
	if c.Every <= 0 || stats.Batch%c.Every != 0 {
		return
	}
	for _, s := range []struct {
		name string
		m    *algebra.Matrix
	}{{c.OutputName, stats.Output}, {c.InputName, stats.Input}} {
		if s.name == "" || s.m == nil {
			continue
		}
		if err := imgio.SaveSamples(s.m, c.Height, c.Width, 0, s.m.Cols(), c.Dir, s.name); err != nil {
			loggerOrDefault(c.Log).Warn("failed to save samples", "dir", c.Dir, "name", s.name, "err", err)
		}
	}
}
