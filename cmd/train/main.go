// Command train runs one of the built-in training presets, or a YAML run
// configuration, on label-prefixed image data.
//
//	train -preset classifier -train data/mnist_train.txt -test data/mnist_test.txt
//	train -config run.yaml -epochs 5
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/FlavioCFOliveira/deepgo/internal/algebra"
	"github.com/FlavioCFOliveira/deepgo/internal/config"
	"github.com/FlavioCFOliveira/deepgo/internal/data"
	"github.com/FlavioCFOliveira/deepgo/internal/imgio"
	"github.com/FlavioCFOliveira/deepgo/internal/net"
	"github.com/google/uuid"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "train:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "YAML run configuration (overrides -preset)")
		preset     = fs.String("preset", "classifier", "built-in configuration: "+strings.Join(config.Presets(), ", "))
		trainPath  = fs.String("train", "", "training data, overrides the configuration")
		testPath   = fs.String("test", "", "evaluation data, overrides the configuration")
		imagesDir  = fs.String("images", "", "sample image directory, overrides the configuration")
		history    = fs.String("history", "", "per-epoch CSV history file")
		epochs     = fs.Int("epochs", 0, "number of epochs, overrides the configuration")
		seed       = fs.Int64("seed", 0, "random seed, overrides the configuration when non-zero")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath, *preset)
	if err != nil {
		return err
	}
	if *trainPath != "" {
		cfg.Data.Train = *trainPath
	}
	if *testPath != "" {
		cfg.Data.Test = *testPath
	}
	if *imagesDir != "" {
		cfg.Images.Dir = *imagesDir
	}
	if *history != "" {
		cfg.History = *history
	}
	if *epochs > 0 {
		cfg.Epochs = *epochs
	}
	if *seed != 0 {
		cfg.Seed = seed
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})).
		With("run_id", uuid.NewString(), "config", cfg.Name)

	rng := cfg.Rand()
	network, err := cfg.Build(rng)
	if err != nil {
		return err
	}
	if level <= slog.LevelDebug {
		if err := network.Summary(stderr); err != nil {
			return err
		}
	}

	train, err := loadData(logger, "train", cfg.Data.Train)
	if err != nil {
		return err
	}
	fit := cfg.FitConfig()
	var test *data.Dataset
	if cfg.Data.Test != "" {
		if test, err = loadData(logger, "test", cfg.Data.Test); err != nil {
			return err
		}
		fit.Eval = test
	}
	if cfg.Noise != nil {
		noiseRng := rand.New(rand.NewSource(rng.Int63()))
		mean, std := cfg.Noise.Mean, cfg.Noise.Std
		fit.Transform = func(x *algebra.Matrix, epoch, batch int) *algebra.Matrix {
			return data.AddNormalNoise(x, mean, std, noiseRng)
		}
	}

	callbacks := []net.Callback{net.Logger{Log: logger, BatchInterval: cfg.Images.Every}}
	if cfg.History != "" {
		csvLog := net.NewCSVLogger(cfg.History, false)
		csvLog.Log = logger
		callbacks = append(callbacks, csvLog)
	}
	if cfg.Images.Dir != "" && cfg.Images.Every > 0 {
		callbacks = append(callbacks, &net.SampleWriter{
			Dir:        cfg.Images.Dir,
			Height:     cfg.Images.Height,
			Width:      cfg.Images.Width,
			Every:      cfg.Images.Every,
			InputName:  cfg.Images.InputName,
			OutputName: cfg.Images.OutputName,
			Log:        logger,
		})
	}

	logger.Info("training",
		"epochs", fit.Epochs, "batch_size", fit.BatchSize, "clip", fit.Clip,
		"lr", fit.Schedule.LearningRate(0))
	hist, err := network.Fit(ctx, train, fit, callbacks...)
	if err != nil {
		return err
	}
	if last, ok := hist.Last(); ok {
		logger.Info("training done", "epochs", len(hist.Epochs), "loss", last.Loss)
	}

	if cfg.Classification && cfg.Images.Dir != "" && cfg.Images.Predictions > 0 {
		src := train
		if test != nil {
			src = test
		}
		return savePredictions(logger, network, src, cfg.Images)
	}
	return nil
}

func loadConfig(path, preset string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.Preset(preset)
}

func loadData(logger *slog.Logger, name, path string) (*data.Dataset, error) {
	d, err := data.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s data: %w", name, err)
	}
	logger.Info("dataset loaded", "set", name, "path", path, "examples", d.Len(), "features", d.NumFeatures())
	return d, nil
}

// savePredictions classifies the first examples of d and writes each one as
// "<i>_<predicted class>.bmp".
func savePredictions(logger *slog.Logger, n *net.Network, d *data.Dataset, img config.Images) error {
	count := min(img.Predictions, d.Len())
	if count == 0 {
		return nil
	}
	x, _, err := d.Batch(count, 0)
	if err != nil {
		return err
	}
	n.SetTraining(false)
	out, err := n.Forward(x)
	if err != nil {
		return err
	}
	for i, p := range net.Predictions(out) {
		if err := imgio.SaveSamples(x, img.Height, img.Width, i, i+1, img.Dir, strconv.Itoa(p)); err != nil {
			return err
		}
	}
	logger.Info("predictions saved", "dir", img.Dir, "count", count)
	return nil
}
