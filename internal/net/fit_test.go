package net

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/FlavioCFOliveira/deepgo/internal/algebra"
	"github.com/FlavioCFOliveira/deepgo/internal/data"
	"github.com/FlavioCFOliveira/deepgo/internal/layer"
	"github.com/FlavioCFOliveira/deepgo/internal/loss"
	"github.com/FlavioCFOliveira/deepgo/internal/opt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoClasses has 8 examples of 2 features; the label is 0 when the first
// feature is bright.
func twoClasses() *data.Dataset {
	d := &data.Dataset{Classes: 2}
	for i := 0; i < 4; i++ {
		d.Labels = append(d.Labels, 0, 1)
		d.Features = append(d.Features,
			[]float64{255, float64(20 * i)},
			[]float64{0, float64(255 - 20*i)})
	}
	return d
}

func classifier(t *testing.T) *Network {
	t.Helper()
	n, err := New([]layer.Layer{affine(t, 2, 2, 3), layer.NewSoftMax()}, loss.CrossEntropy{}, opt.NewAdam())
	require.NoError(t, err)
	return n
}

func TestFitClassifier(t *testing.T) {
	n := classifier(t)
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	csvPath := filepath.Join(t.TempDir(), "history.csv")
	csvLog := NewCSVLogger(csvPath, false)

	hist, err := n.Fit(context.Background(), twoClasses(), FitConfig{
		Epochs:         50,
		BatchSize:      4,
		Schedule:       opt.Constant{Rate: 0.1},
		Clip:           5,
		Classification: true,
		Eval:           twoClasses(),
	}, Logger{Log: logger, BatchInterval: 1}, csvLog)
	require.NoError(t, err)
	require.NoError(t, csvLog.Err())

	require.Len(t, hist.Epochs, 50)
	first, last := hist.Epochs[0], hist.Epochs[49]
	assert.Less(t, last.Loss, first.Loss)
	assert.True(t, last.Evaluated)
	assert.Equal(t, 1.0, last.EvalAccuracy)
	assert.Equal(t, 0.1, last.LearningRate)

	assert.Contains(t, logs.String(), "epoch done")
	assert.Contains(t, logs.String(), "eval_accuracy=")
	assert.Contains(t, logs.String(), "batch done")

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 51) // header + 50 epochs
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, "49", records[50][0])
	assert.NotEmpty(t, records[50][5])
}

func TestFitValidation(t *testing.T) {
	n := classifier(t)
	cases := map[string]FitConfig{
		"no epochs":     {BatchSize: 2},
		"no batch size": {Epochs: 1},
		"negative clip": {Epochs: 1, BatchSize: 2, Clip: -1},
		"batch too big": {Epochs: 1, BatchSize: 100},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := n.Fit(context.Background(), twoClasses(), cfg)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestFitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hist, err := classifier(t).Fit(ctx, twoClasses(), FitConfig{Epochs: 3, BatchSize: 2})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, hist.Epochs)
}

type lossSequence struct {
	BaseCallback
	epochs []int
}

func (l *lossSequence) OnEpochEnd(stats EpochStats, n *Network) {
	l.epochs = append(l.epochs, stats.Epoch)
}

func TestFitEarlyStopping(t *testing.T) {
	// After the first epoch nothing counts as an improvement.
	stopper := NewEarlyStopping(1, 1e9)
	seen := &lossSequence{}

	hist, err := classifier(t).Fit(context.Background(), twoClasses(), FitConfig{Epochs: 10, BatchSize: 4}, stopper, seen)
	require.NoError(t, err)
	assert.True(t, stopper.ShouldStop())
	assert.Len(t, hist.Epochs, 2)
	assert.Equal(t, []int{0, 1}, seen.epochs)
}

func TestEarlyStoppingPatience(t *testing.T) {
	c := NewEarlyStopping(2, 0)
	for i, l := range []float64{1, 0.9, 0.95} {
		c.OnEpochEnd(EpochStats{Epoch: i, Loss: l}, nil)
		assert.False(t, c.ShouldStop(), "epoch %d", i)
	}
	c.OnEpochEnd(EpochStats{Epoch: 3, Loss: 0.91}, nil)
	assert.True(t, c.ShouldStop())

	eval := NewEarlyStopping(1, 0)
	eval.Monitor = "eval_loss"
	eval.OnEpochEnd(EpochStats{Loss: 5, EvalLoss: 1, Evaluated: true}, nil)
	eval.OnEpochEnd(EpochStats{Loss: 1, EvalLoss: 2, Evaluated: true}, nil)
	assert.True(t, eval.ShouldStop())
}

func TestFitReconstructWithTransformAndSamples(t *testing.T) {
	n, err := New([]layer.Layer{
		affine(t, 4, 4, 1),
		layer.NewNormalSampling(nil, false),
		affine(t, 2, 4, 2),
		layer.NewSigmoid(),
	}, loss.MeanSquaredError{}, opt.NewAdam())
	require.NoError(t, err)

	train := &data.Dataset{
		Labels:   []int{0, 1},
		Features: [][]float64{{0, 255, 255, 0}, {255, 0, 0, 255}},
	}
	dir := t.TempDir()
	transformed := 0
	writer := &SampleWriter{Dir: dir, Height: 2, Width: 2, Every: 1, InputName: "noisy", OutputName: "denoised"}

	hist, err := n.Fit(context.Background(), train, FitConfig{
		Epochs:      2,
		BatchSize:   2,
		Reconstruct: true,
		Transform: func(x *algebra.Matrix, epoch, batch int) *algebra.Matrix {
			transformed++
			return algebra.Scale(x, 0.5)
		},
	}, writer)
	require.NoError(t, err)
	assert.Len(t, hist.Epochs, 2)
	assert.Equal(t, 2, transformed)
	assert.False(t, hist.Epochs[0].Classification)

	for _, name := range []string{"0_noisy.bmp", "1_noisy.bmp", "0_denoised.bmp", "1_denoised.bmp"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestHistoryLast(t *testing.T) {
	h := &History{}
	_, ok := h.Last()
	assert.False(t, ok)

	h.Epochs = append(h.Epochs, EpochStats{Epoch: 4})
	last, ok := h.Last()
	assert.True(t, ok)
	assert.Equal(t, 4, last.Epoch)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestCSVLoggerReportsFinalFlushError(t *testing.T) {
	c := NewCSVLogger(filepath.Join(t.TempDir(), "history.csv"), false)
	c.OnTrainBegin(nil)
	require.NoError(t, c.Err())

	c.writer = csv.NewWriter(failingWriter{})
	require.NoError(t, c.writer.Write([]string{"pending"}))

	c.OnTrainEnd(nil)
	require.Error(t, c.Err())
	assert.Contains(t, c.Err().Error(), "disk full")
}
